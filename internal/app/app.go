// Package app wires the storage, geocoding, matching and messaging layers
// shared by the gateway and the order service.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/foodcart/pkg/audit"
	"github.com/example/foodcart/pkg/catalog"
	"github.com/example/foodcart/pkg/config"
	"github.com/example/foodcart/pkg/events"
	"github.com/example/foodcart/pkg/geocoder"
	"github.com/example/foodcart/pkg/matcher"
	"github.com/example/foodcart/pkg/orders"
	"github.com/example/foodcart/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Resolver *geocoder.Resolver
	Matcher  *matcher.Matcher
	Orders   *orders.Service
	Catalog  *catalog.Service
	// History is nil when MongoDB is not configured.
	History audit.History

	events events.Publisher
	redis  *repository.RedisRepository
	mongo  *repository.MongoRepository
	trail  *audit.Trail
	logger *zap.Logger
}

type options struct {
	remoteMatcher orders.RestaurantMatcher
}

type Option func(*options)

// WithRemoteMatcher makes the dashboard ask another service for candidate
// restaurants instead of matching in process.
func WithRemoteMatcher(m orders.RestaurantMatcher) Option {
	return func(o *options) { o.remoteMatcher = m }
}

func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, logger: logger}

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, err
	}
	a.DB = db

	store, err := a.coordinateStore()
	if err != nil {
		a.Close()
		return nil, err
	}

	var recorder audit.Recorder = audit.Nop{}
	if cfg.MongoDB.URI != "" {
		mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		a.mongo = mongoRepo
		a.trail = audit.NewTrail(mongoRepo, logger)
		a.History = mongoRepo
		recorder = a.trail
	} else {
		logger.Info("MongoDB not configured, audit trail disabled")
	}

	publisher, err := events.NewPublisher(&cfg.Kafka, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.events = publisher

	catalogRepo := repository.NewCatalogRepository(db)
	a.Resolver = geocoder.NewResolver(store, geocoder.NewClient(&cfg.Geocoder), cfg.Geocoder.CacheTTL, logger.Named("geocoder"))
	a.Matcher = matcher.New(catalogRepo, a.Resolver, logger.Named("matcher"))

	var restaurantMatcher orders.RestaurantMatcher = a.Matcher
	if o.remoteMatcher != nil {
		restaurantMatcher = o.remoteMatcher
	}

	a.Orders = orders.NewService(orders.Deps{
		Orders:  repository.NewOrderRepository(db),
		Catalog: catalogRepo,
		Cache:   a.Resolver,
		Matcher: restaurantMatcher,
		Events:  publisher,
		Audit:   recorder,
		Logger:  logger.Named("orders"),
	})
	a.Catalog = catalog.NewService(catalogRepo, a.Resolver, recorder, logger.Named("catalog"))

	return a, nil
}

func (a *App) coordinateStore() (geocoder.Store, error) {
	switch a.Config.Geocoder.CacheBackend {
	case "redis":
		redisRepo := repository.NewRedisRepository(&a.Config.Redis, a.Config.Geocoder.CacheTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisRepo.Ping(ctx); err != nil {
			_ = redisRepo.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.redis = redisRepo
		a.logger.Info("Coordinate cache in Redis", zap.String("addr", a.Config.Redis.Addr))
		return redisRepo, nil
	case "database", "":
		return repository.NewCoordinateRepository(a.DB), nil
	default:
		return nil, fmt.Errorf("unknown coordinate cache backend %q", a.Config.Geocoder.CacheBackend)
	}
}

// Close releases every connection the app opened, draining the audit trail
// first.
func (a *App) Close() {
	if a.trail != nil {
		a.trail.Close(5 * time.Second)
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Warn("Failed to close event publisher", zap.Error(err))
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Close(ctx); err != nil {
			a.logger.Warn("Failed to close MongoDB", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close Redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
