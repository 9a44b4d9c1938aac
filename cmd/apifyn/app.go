package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/engine"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/integrations"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/logging"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/processors"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/secrets"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/store"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/streaming"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/telemetry"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/validation"
)

// app is the wired object graph shared by the commands.
type app struct {
	cfg         Config
	logger      *slog.Logger
	store       store.Store
	hub         *streaming.MemoryHub
	registry    *processors.Registry
	credentials *integrations.CredentialResolver
	engine      *engine.Engine
	dispatcher  *engine.Dispatcher
	validator   *validation.WorkflowValidator
	telemetry   *telemetry.Providers
}

// newApp opens the store and wires every engine component. Logs go to logOut.
func newApp(ctx context.Context, cfg Config, logOut io.Writer) (*app, error) {
	logger := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)

	if err := ensureDBDir(cfg.Database); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.Path, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	var tel *telemetry.Providers
	if cfg.Telemetry.Enabled {
		tel, err = telemetry.Setup(ctx, telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: version,
			Exporter:       cfg.Telemetry.Exporter,
			Endpoint:       cfg.Telemetry.Endpoint,
			MetricInterval: cfg.Telemetry.MetricInterval,
			Writer:         logOut,
		})
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("telemetry: %w", err)
		}
	}

	a, err := wire(cfg, logger, st, tel)
	if err != nil {
		_ = tel.Shutdown(ctx)
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

// ensureDBDir creates the parent directory of a local libsql database file.
func ensureDBDir(db DatabaseConfig) error {
	switch db.Driver {
	case "", "libsql", "sqlite":
	default:
		return nil
	}
	path, ok := strings.CutPrefix(db.Path, "file:")
	if !ok || path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}

func wire(cfg Config, logger *slog.Logger, st store.Store, tel *telemetry.Providers) (*app, error) {
	var cipher secrets.Cipher = secrets.PlainCipher{}
	if cfg.Secrets.Key != "" {
		c, err := secrets.NewCipherFromHex(cfg.Secrets.Key)
		if err != nil {
			return nil, fmt.Errorf("secrets.key: %w", err)
		}
		cipher = c
	} else {
		logger.Warn("secrets.key is not set; integration tokens are stored unencrypted")
	}
	creds := integrations.NewCredentialResolver(st, cipher, logger)

	adapter := integrations.NewHTTPAdapter(integrations.HTTPConfig{
		Timeout:        cfg.Integrations.Timeout,
		HuggingFaceURL: cfg.Integrations.HuggingFaceModelURL,
		HuggingFaceKey: cfg.Integrations.HuggingFaceAPIKey,
	})

	registry := processors.NewRegistry()
	if err := processors.RegisterBuiltins(registry, processors.Deps{
		Adapter:     adapter,
		Credentials: creds,
		Logger:      logger,
	}); err != nil {
		return nil, fmt.Errorf("register processors: %w", err)
	}

	hub := streaming.NewMemoryHub()
	engCfg := engine.Config{
		Store:    st,
		Registry: registry,
		Hub:      hub,
		Logger:   logger,
	}
	if tel != nil {
		engCfg.TracerProvider = tel.Tracer
		engCfg.MeterProvider = tel.Meter
	}
	eng, err := engine.New(engCfg)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	validator, err := validation.NewWorkflowValidator(registry)
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}

	return &app{
		cfg:         cfg,
		logger:      logger,
		store:       st,
		hub:         hub,
		registry:    registry,
		credentials: creds,
		engine:      eng,
		dispatcher:  engine.NewDispatcher(eng, cfg.Engine.PoolSize, logger),
		validator:   validator,
		telemetry:   tel,
	}, nil
}

// Close flushes telemetry and closes the store.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(a.telemetry.Shutdown(ctx), a.store.Close())
}
