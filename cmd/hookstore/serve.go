package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/vango-dev/hookstore/internal/config"
	"github.com/vango-dev/hookstore/internal/errors"
	"github.com/vango-dev/hookstore/pkg/server"
	"github.com/vango-dev/hookstore/pkg/snapshot"
	"github.com/vango-dev/hookstore/pkg/telemetry"
)

type serveOptions struct {
	configPath string
	host       string
	port       int
	envFile    string
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve counters over HTTP and WebSocket",
		Long: `Serve named counters over a REST API and WebSocket streams.

Configuration is read from hookstore.json or hookstore.yaml in the
working directory (or --config), then HOOKSTORE_* environment variables.
The log level is reloaded when the config file changes.

Examples:
  hookstore serve
  hookstore serve --port=9090
  HOOKSTORE_SNAPSHOT_DRIVER=dir hookstore serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: hookstore.json or hookstore.yaml)")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Extra .env file with HOOKSTORE_* overrides")

	return cmd
}

// loadConfig loads the config file, falling back to defaults when no file
// exists, and applies environment and flag overrides.
func loadConfig(opts serveOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(".")
		if stderrors.Is(err, errors.New("E141")) {
			slog.Info("no config file found, using defaults")
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if opts.envFile != "" {
		if err := cfg.ApplyEnvFile(opts.envFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	return cfg, cfg.Validate()
}

func newSink(ctx context.Context, cfg *config.Config) (snapshot.Sink, error) {
	switch cfg.Snapshot.Driver {
	case config.DriverDir:
		return snapshot.NewDirSink(cfg.Snapshot.Dir)
	case config.DriverS3:
		return snapshot.NewS3SinkFromEnv(ctx, snapshot.S3Options{
			Bucket:    cfg.Snapshot.S3.Bucket,
			Region:    cfg.Snapshot.S3.Region,
			Endpoint:  cfg.Snapshot.S3.Endpoint,
			PathStyle: cfg.Snapshot.S3.PathStyle,
		})
	default:
		return nil, nil
	}
}

func newObserver(cfg *config.Config) telemetry.Observer {
	observers := []telemetry.Observer{telemetry.NewLogging(slog.Default())}
	if cfg.Metrics.Enabled {
		observers = append(observers, telemetry.NewMetrics(
			telemetry.WithNamespace(cfg.Metrics.Namespace),
			telemetry.WithConstLabels(prometheus.Labels{"instance": cfg.Name}),
		))
	}
	if cfg.Tracing.Enabled {
		// The global provider is a no-op until an exporter installs one.
		observers = append(observers, telemetry.NewTracing(
			telemetry.WithTracer(otel.Tracer(cfg.Tracing.TracerName)),
		))
	}
	return telemetry.Tee(observers...)
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if level, err := cfg.SlogLevel(); err == nil {
		applyLogLevel(level)
	}

	shutdownTimeout, _ := cfg.ShutdownTimeout()

	sink, err := newSink(ctx, cfg)
	if err != nil {
		return errors.New("E162").WithDetail(cfg.Snapshot.Driver).Wrap(err)
	}

	srvConfig := &server.Config{
		Address:         cfg.Address(),
		Version:         version,
		ShutdownTimeout: shutdownTimeout,
		SnapshotPrefix:  cfg.Snapshot.Prefix,
		Observer:        newObserver(cfg),
		Comparer:        cfg.Comparer(),
		Logger:          slog.Default(),
	}
	if sink != nil {
		srvConfig.Sink = sink
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		srvConfig.CheckOrigin = server.AllowOrigins(cfg.Server.AllowedOrigins...)
	}

	srv := server.New(srvConfig)
	defer srv.Close()

	restored, err := srv.Counters().Restore(ctx)
	if err != nil {
		return err
	}
	if err := srv.Counters().Seed(ctx, cfg.Counters); err != nil {
		return err
	}
	slog.Info("counters ready", "restored", restored, "total", len(srv.Counters().Names()), "snapshot", cfg.Snapshot.Driver)

	super := newSupervisor("hookstore")
	super.Add(newService("http", srv.ListenAndServe))
	if cfg.Path() != "" {
		super.Add(newService("config-watch", func(ctx context.Context) error {
			return config.Watch(ctx, cfg.Path(), func(next *config.Config) {
				if lvl, err := next.SlogLevel(); err == nil && applyLogLevel(lvl) {
					slog.Info("log level changed", "level", lvl.String())
				}
			}, nil)
		}))
	}

	err = super.Serve(ctx)
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
