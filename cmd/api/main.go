package main

import (
	"context"
	"database/sql"
	"net"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/wichananm65/inventory-catalog/internal/config"
	"github.com/wichananm65/inventory-catalog/internal/interface/http/router"
	"github.com/wichananm65/inventory-catalog/internal/logging"
	"github.com/wichananm65/inventory-catalog/internal/product"
)

// main runs the development product service the catalog front end talks to.
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

	repo, closeRepo, err := openRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open product storage", zap.Error(err))
	}
	defer closeRepo()

	app := router.New(router.Options{Name: "product-service", Logger: logger, CORS: true})
	product.NewHandler(product.NewService(repo), logger).
		AllowReset(cfg.AllowResetProducts).
		RegisterRoutes(app)

	ln, err := net.Listen("tcp", cfg.ServiceAddr)
	if err != nil {
		logger.Fatal("listen", zap.String("addr", cfg.ServiceAddr), zap.Error(err))
	}
	if err := router.Serve(ctx, app, ln, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}

// openRepository uses Postgres when a database url is configured and an
// in-memory store seeded with sample products otherwise.
func openRepository(ctx context.Context, dbURL string) (product.Repository, func(), error) {
	if dbURL == "" {
		zap.L().Info("DATABASE_URL is not set, serving in-memory products")
		return product.NewInMemoryRepository(product.SampleProducts()), func() {}, nil
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { _ = db.Close() }
	if err := db.PingContext(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}

	repo := product.NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}

	// seed an empty table so the catalog has something to show
	existing, err := repo.List(ctx)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	if len(existing) == 0 {
		if err := repo.Reset(ctx, product.SampleProducts()); err != nil {
			closeDB()
			return nil, nil, err
		}
		zap.L().Info("seeded product table", zap.Int("count", len(product.SampleProducts())))
	}
	return repo, closeDB, nil
}
