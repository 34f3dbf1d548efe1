package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vango-dev/remoteui/internal/config"
	"github.com/vango-dev/remoteui/internal/errors"
	"github.com/vango-dev/remoteui/pkg/middleware"
	"github.com/vango-dev/remoteui/pkg/recorder"
	"github.com/vango-dev/remoteui/pkg/server"
)

type serveFlags struct {
	listen      string
	tickRate    int
	maxSessions int
	recordDir   string
}

func serveCmd(g *globalFlags) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo application to remote viewers",
		Long: `Serve runs the demo counter application and streams it to every
connected viewer over WebSocket at /ws. Metrics are exposed at /metrics
and a health check at /healthz.

Examples:
  remoteui serve
  remoteui serve --listen :9000 --tick-rate 60
  remoteui serve --record ./recordings`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if err := f.apply(cmd, cfg); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&f.listen, "listen", "l", "", "Address to listen on (default from config, :8080)")
	cmd.Flags().IntVar(&f.tickRate, "tick-rate", 0, "Ticks per second (default from config, 30)")
	cmd.Flags().IntVar(&f.maxSessions, "max-sessions", 0, "Maximum concurrent viewers, 0 for no limit")
	cmd.Flags().StringVar(&f.recordDir, "record", "", "Record sessions into this directory")
	return cmd
}

// apply overrides file values with flags that were set.
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if f.listen != "" {
		cfg.Listen = f.listen
	}
	if cmd.Flags().Changed("tick-rate") {
		cfg.TickRate = f.tickRate
	}
	if cmd.Flags().Changed("max-sessions") {
		cfg.MaxSessions = f.maxSessions
	}
	if f.recordDir != "" {
		cfg.Recording.Backend = config.BackendDir
		cfg.Recording.Path = f.recordDir
	}
	if err := cfg.Validate(); err != nil {
		return errors.FromError(err, "R120")
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := server.NewMetrics(reg)

	hostOpts := []server.HostOption{
		server.WithLogger(logger),
		server.WithMetrics(metrics),
	}

	rec, err := newRecorder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if rec != nil {
		defer func() {
			if err := rec.Close(); err != nil {
				logger.Warn("recorder close failed", zap.Error(err))
			}
			st := rec.Stats()
			logger.Info("recorder closed",
				zap.Uint64("recorded", st.Recorded),
				zap.Uint64("dropped", st.Dropped),
				zap.Uint64("segments", st.Segments),
			)
		}()
		hostOpts = append(hostOpts, server.WithRecorder(rec))
	}

	host, err := server.NewHost(cfg.HostConfig(), hostOpts...)
	if err != nil {
		return errors.New("R101").Wrap(err)
	}
	srv := server.New(host, cfg.ServerConfig(),
		server.WithServerLogger(logger),
		server.WithServerMetrics(metrics),
		server.WithGatherer(reg),
		server.WithMiddleware(middleware.NewHTTPMetrics(reg).Handler),
	)

	success("Serving on %s", cfg.Listen)
	info("viewers:  ws://%s/ws", displayAddr(cfg.Listen))
	info("metrics:  http://%s/metrics", displayAddr(cfg.Listen))

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = host.Run(ctx, newDemo().app)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = errors.New("R121").WithDetail(cfg.Listen).Wrap(err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultServerConfig().ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	<-loopDone
	return runErr
}

func newRecorder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*recorder.Recorder, error) {
	var sink recorder.Sink
	switch cfg.Recording.Backend {
	case config.BackendDir:
		s, err := recorder.NewDirSink(cfg.Recording.Path)
		if err != nil {
			return nil, errors.New("R160").WithDetail(cfg.Recording.Path).Wrap(err)
		}
		sink = s
	case config.BackendS3:
		initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		s, err := recorder.NewS3Sink(initCtx, cfg.S3Config())
		if err != nil {
			return nil, errors.New("R160").WithDetail("s3://" + cfg.Recording.Bucket).Wrap(err)
		}
		sink = s
	default:
		return nil, nil
	}

	opts := append([]recorder.Option{recorder.WithLogger(logger)}, cfg.RecorderOptions()...)
	return recorder.New(sink, opts...), nil
}

// displayAddr turns a listen address into something dialable.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
