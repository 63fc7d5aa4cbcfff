package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

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

	zlog.Info("Starting order service",
		zap.String("name", cfg.GRPC.Name),
		zap.Int("port", cfg.GRPC.Port))

	a, err := app.New(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialise services", zap.Error(err))
	}
	defer a.Close()

	server := grpc.NewOrderServer(cfg, zlog, a.Orders, a.Matcher)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Register service
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	instance := &discovery.ServiceInstance{
		Name: cfg.GRPC.Name,
		Host: cfg.GRPC.Host,
		Port: cfg.GRPC.Port,
	}
	var sd *discovery.ServiceDiscovery
	if len(cfg.Etcd.Endpoints) > 0 {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, zlog)
		if err != nil {
			zlog.Fatal("Failed to connect to etcd", zap.Error(err))
		}
		defer sd.Close()

		if err := sd.Register(ctx, instance); err != nil {
			zlog.Fatal("Failed to register service", zap.Error(err))
		}
		zlog.Info("Service registered in etcd",
			zap.String("name", instance.Name),
			zap.String("address", instance.Address()))
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info("Received shutdown signal")
	case err := <-serverErr:
		zlog.Error("Server error", zap.Error(err))
	}

	// Deregister service
	if sd != nil {
		if err := sd.Deregister(context.Background(), instance); err != nil {
			zlog.Error("Failed to deregister service", zap.Error(err))
		}
	}
	server.Stop()

	zlog.Info("Service stopped")
}
