package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/foodcart/gateway"
	"github.com/example/foodcart/internal/app"
	"github.com/example/foodcart/pkg/config"
	"github.com/example/foodcart/pkg/discovery"
	"github.com/example/foodcart/pkg/grpc"
	"github.com/example/foodcart/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	zlog, err := logger.New(&cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer zlog.Sync()

	zlog.Info("Starting API Gateway",
		zap.Int("port", cfg.Server.Port),
		zap.String("host", cfg.Server.Host))

	// Prefer a registered order service for matching, if there is one
	var opts []app.Option
	if len(cfg.Etcd.Endpoints) > 0 {
		sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, zlog)
		if err != nil {
			zlog.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else {
			defer sd.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			client, err := grpc.DiscoverMatcher(ctx, sd, cfg.GRPC.Name, zlog)
			cancel()
			if err != nil {
				zlog.Info("Matching restaurants in process", zap.String("reason", err.Error()))
			} else {
				defer client.Close()
				opts = append(opts, app.WithRemoteMatcher(client))
			}
		}
	}

	a, err := app.New(cfg, zlog, opts...)
	if err != nil {
		zlog.Fatal("Failed to initialise services", zap.Error(err))
	}
	defer a.Close()

	gw, err := gateway.NewGateway(cfg, zlog, a.Orders, a.Catalog, a.History)
	if err != nil {
		zlog.Fatal("Failed to create gateway", zap.Error(err))
	}

	// Start gateway in goroutine
	gwErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			gwErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info("Received shutdown signal")
	case err := <-gwErr:
		zlog.Error("Gateway error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gw.Shutdown(ctx); err != nil {
		zlog.Error("Gateway shutdown failed", zap.Error(err))
	}

	zlog.Info("Gateway stopped")
}
