package router

import (
	"context"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Serve runs app on ln until ctx is cancelled, then shuts it down. It returns
// nil after a requested shutdown and the listener error otherwise.
func Serve(ctx context.Context, app *fiber.App, ln net.Listener, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := app.Listener(ln); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		err := app.ShutdownWithTimeout(shutdownTimeout)
		// unblocks Listener if shutdown raced its start
		_ = ln.Close()
		return err
	})
	return g.Wait()
}
