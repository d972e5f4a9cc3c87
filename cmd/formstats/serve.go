package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstats/components/formstats"
	"github.com/goliatone/go-formstats/components/formstats/gorouter"
	"github.com/goliatone/go-formstats/components/formstats/httpapi"
	"github.com/goliatone/go-formstats/pkg/goadmin"
)

type serveCmd struct {
	Addr        string        `help:"Listen address (defaults to :<app.port>)."`
	SessionIdle time.Duration `name:"session-idle" default:"30m" help:"Drop dashboard sessions idle for longer than this."`
}

func (cmd *serveCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := g.load(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	hook := formstats.NewBroadcastHook()
	service := rt.service(hook)
	renderer, err := formstats.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("formstats: template renderer: %w", err)
	}
	controller := formstats.NewController(formstats.ControllerOptions{
		Service:  service,
		Renderer: renderer,
		BasePath: rt.config.App.BasePath,
	})

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:     server.Router(),
		Controller: controller,
		Sessions:   service.Sessions(),
		API:        httpapi.NewExecutor(service, rt.telemetry),
		Broadcast:  hook,
		BasePath:   rt.config.App.BasePath,
	}); err != nil {
		return fmt.Errorf("formstats: register routes: %w", err)
	}

	admin, err := goadmin.New(goadmin.Config{
		Enabled:  true,
		Service:  service,
		Menu:     &logMenuBuilder{logger: rt.logger},
		BasePath: rt.config.App.BasePath,
		PerView:  true,
	})
	if err != nil {
		return err
	}
	if err := admin.Bootstrap(ctx); err != nil {
		return err
	}

	go pruneSessions(ctx, service.Sessions(), cmd.SessionIdle, rt.logger)

	addr := cmd.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", rt.config.App.Port)
	}
	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("serving form analytics",
			zap.String("addr", addr),
			zap.String("dashboard", rt.config.App.BasePath+"/analytics"),
			zap.String("transport", rt.config.Analytics.Transport),
		)
		errCh <- server.Serve(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rt.logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("formstats: shutdown: %w", err)
	}
	return nil
}

func pruneSessions(ctx context.Context, store *formstats.SessionStore, idle time.Duration, logger *zap.Logger) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Prune(idle); n > 0 {
				logger.Debug("pruned idle sessions", zap.Int("count", n), zap.Int("remaining", store.Len()))
			}
		}
	}
}

// logMenuBuilder stands in for an admin shell navigation store.
type logMenuBuilder struct {
	logger *zap.Logger
}

func (b *logMenuBuilder) EnsureMenuItem(_ context.Context, menuCode string, item goadmin.MenuItem) error {
	b.logger.Info("menu entry registered",
		zap.String("menu", menuCode),
		zap.String("label", item.Label),
		zap.String("route", item.Route),
		zap.Int("children", len(item.Children)),
	)
	return nil
}
