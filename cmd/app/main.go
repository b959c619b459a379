package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/wichananm65/inventory-catalog/internal/catalog"
	"github.com/wichananm65/inventory-catalog/internal/client"
	"github.com/wichananm65/inventory-catalog/internal/config"
	"github.com/wichananm65/inventory-catalog/internal/interface/http/handler"
	"github.com/wichananm65/inventory-catalog/internal/interface/http/router"
	"github.com/wichananm65/inventory-catalog/internal/interface/presenter"
	"github.com/wichananm65/inventory-catalog/internal/logging"
)

// main runs the catalog web front end against the product service at CATALOG_API_URL.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.LogDev})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(client.Options{
		BaseURL: cfg.APIURL,
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	})
	ctrl := catalog.NewController(api, logger)

	// initial load; the page shows the loading state until it completes
	go func() { _ = ctrl.Refresh(ctx) }()

	app := router.New(router.Options{Name: "inventory-catalog", Logger: logger})
	handler.NewCatalogHandler(ctrl, presenter.NewProductPresenter(), logger).RegisterRoutes(app)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.String("addr", cfg.Addr), zap.Error(err))
	}
	logger.Info("catalog front end", zap.String("product_service", api.BaseURL()))
	if err := router.Serve(ctx, app, ln, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
