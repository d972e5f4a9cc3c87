package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-formstats/components/formstats"
	"github.com/goliatone/go-formstats/internal/configuration"
	"github.com/goliatone/go-formstats/pkg/analytics"
)

type runtime struct {
	config    configuration.Configuration
	logger    *zap.Logger
	transport formstats.ReportTransport
	builder   *formstats.QueryBuilder
	telemetry *logTelemetry
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("formstats: log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if parsed == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	return cfg.Build()
}

// load reads configuration and builds the collaborators shared by commands.
func (g *Globals) load(ctx context.Context) (*runtime, error) {
	config, err := configuration.Read(configuration.Options{
		Path: g.Config,
		Overrides: map[string]any{
			"analytics.transport": g.Transport,
			"app.log_level":       g.LogLevel,
		},
	})
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(config.App.LogLevel)
	if err != nil {
		return nil, err
	}

	builder := formstats.NewQueryBuilder()
	if path := config.Dashboard.TemplatesManifest; path != "" {
		builder, err = formstats.LoadTemplates(path)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded report templates", zap.String("path", path))
	}

	transport, err := analytics.NewTransport(ctx, analytics.TransportConfig{
		Kind:            config.Analytics.Transport,
		CredentialsFile: config.Analytics.CredentialsFile,
		Endpoint:        config.Analytics.Endpoint,
		APIKey:          config.Analytics.APIKey,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("report transport ready", zap.String("transport", config.Analytics.Transport))

	return &runtime{
		config:    config,
		logger:    logger,
		transport: transport,
		builder:   builder,
		telemetry: &logTelemetry{logger: logger},
	}, nil
}

func (rt *runtime) service(hook formstats.CycleHook) *formstats.Service {
	defaults := rt.config.Settings()
	return formstats.NewService(formstats.Options{
		Transport: rt.transport,
		Logger:    rt.logger,
		Telemetry: rt.telemetry,
		CycleHook: hook,
		Builder:   rt.builder,
		Defaults:  &defaults,
		Chart:     rt.config.ChartOptions(),
	})
}

// logTelemetry writes telemetry events to the debug log.
type logTelemetry struct {
	logger *zap.Logger
}

func (t *logTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	t.logger.Debug(event, zap.Any("payload", payload))
}
