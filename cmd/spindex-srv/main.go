package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-sod/spindex/internal/api"
	"github.com/go-sod/spindex/internal/buildinfo"
	"github.com/go-sod/spindex/internal/config"
	"github.com/go-sod/spindex/internal/logging"
	"github.com/go-sod/spindex/internal/metrics"
	"github.com/go-sod/spindex/internal/server"
	"github.com/go-sod/spindex/internal/setup"
	"github.com/go-sod/spindex/internal/shutdown"
	"github.com/go-sod/spindex/internal/srvenv"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintln(os.Stdout, buildinfo.Info.Print())

	ctx, done := shutdown.New()
	defer done()
	if err := run(ctx, done); err != nil {
		logging.FromContext(ctx).Fatal(err)
	}
}

func run(ctx context.Context, cancel func()) error {
	cfg := config.Config{}
	ctx, env, err := setup.Setup(ctx, &cfg)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer closeEnv(ctx, env)
	logger := logging.FromContext(ctx)

	if err := metrics.Register(); err != nil {
		return fmt.Errorf("metrics.Register: %w", err)
	}
	defer metrics.Unregister()
	exporter, err := metrics.NewExporter(cfg.MetricsNamespace)
	if err != nil {
		return fmt.Errorf("metrics.NewExporter: %w", err)
	}

	shutdownCh := make(chan error, 1)
	notifier, err := env.ProvideNotifier()()
	if err != nil {
		return fmt.Errorf("notifier provider function error: %w", err)
	}
	manager, err := env.ProvideIndex()(notifier, shutdownCh)
	if err != nil {
		return fmt.Errorf("index provider function error: %w", err)
	}
	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("index.Run: %w", err)
	}

	if provideScrapper := env.ProvideScrapper(); provideScrapper != nil {
		scrapper, err := provideScrapper(manager, nil)
		if err != nil {
			return fmt.Errorf("scrapper provider function error: %w", err)
		}
		if err := scrapper.Run(ctx); err != nil {
			return fmt.Errorf("scrapper.Run: %w", err)
		}
	}

	mux, err := api.NewMux(ctx, api.Config{
		AuthToken: cfg.AuthToken,
		Collect:   &cfg.Collect,
		Query:     &cfg.Query,
		Erase:     &cfg.Erase,
		Metrics:   exporter,
	}, manager)
	if err != nil {
		return fmt.Errorf("api.NewMux: %w", err)
	}

	srv, err := server.New(cfg.SrvAddr, cfg.MaxConns)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	go func() {
		logger.Infof("http listening on %s", srv.Addr())
		if err := srv.ServeHTTPHandler(ctx, mux); err != nil {
			logger.Errorf("http server: %v", err)
			cancel()
		}
	}()

	if cfg.GRPCAddr != "" {
		grpcSrv, err := server.New(cfg.GRPCAddr, 0)
		if err != nil {
			return fmt.Errorf("server.New: %w", err)
		}
		healthGRPC, _ := server.NewHealthGRPC(ctx)
		go func() {
			logger.Infof("grpc health listening on %s", grpcSrv.Addr())
			if err := grpcSrv.ServeGRPC(ctx, healthGRPC); err != nil {
				logger.Errorf("grpc server: %v", err)
				cancel()
			}
		}()
	}

	if cfg.DebugAddr != "" {
		go func() {
			if err := http.ListenAndServe(cfg.DebugAddr, nil); err != nil {
				logger.Errorf("debug server: %v", err)
			}
		}()
	}

	// the index stops by itself once ctx is done and reports the final flush
	return <-shutdownCh
}

func closeEnv(ctx context.Context, env *srvenv.SrvEnv) {
	if err := env.Close(ctx); err != nil {
		logging.FromContext(ctx).Errorf("close env: %v", err)
	}
}
