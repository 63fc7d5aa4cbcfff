// Package geocoder turns free-text addresses into coordinates through a
// TTL cache in front of an external geocoding service.
package geocoder

import (
	"context"
	"errors"
	"time"

	"github.com/example/foodcart/pkg/geo"
	"github.com/example/foodcart/pkg/metrics"
	"github.com/example/foodcart/pkg/models"
	"go.uber.org/zap"
)

type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Resolution is the outcome of resolving one address. Point is set only
// for StatusFound; Err only for StatusFailed.
type Resolution struct {
	Status Status
	Point  *geo.Point
	Cached bool
	Err    error
}

// Store persists resolved coordinates keyed by raw address text.
// LoadCoordinates returns nil, nil for an unknown address.
type Store interface {
	LoadCoordinates(ctx context.Context, address string) (*models.AddressCoordinates, error)
	SaveCoordinates(ctx context.Context, entry *models.AddressCoordinates) error
	DeleteCoordinates(ctx context.Context, address string) error
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geo.Point, error)
}

type Resolver struct {
	store    Store
	geocoder Geocoder
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewResolver(store Store, geocoder Geocoder, ttl time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:    store,
		geocoder: geocoder,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Resolve serves fresh cache entries directly and otherwise makes a single
// geocoder call, recording the result (or its absence) in the cache.
func (r *Resolver) Resolve(ctx context.Context, address string) Resolution {
	if address == "" {
		return Resolution{Status: StatusFailed, Err: errors.New("empty address")}
	}

	now := r.now()
	entry, err := r.store.LoadCoordinates(ctx, address)
	if err != nil {
		r.logger.Warn("Coordinate cache read failed", zap.String("address", address), zap.Error(err))
		entry = nil
	}
	if entry != nil && !entry.Stale(now, r.ttl) {
		metrics.GeocoderCacheHits.Inc()
		if p := entry.Point(); p != nil {
			return Resolution{Status: StatusFound, Point: p, Cached: true}
		}
		return Resolution{Status: StatusNotFound, Cached: true}
	}

	point, gerr := r.geocoder.Geocode(ctx, address)
	res := Resolution{Status: StatusFound, Point: point}
	switch {
	case errors.Is(gerr, ErrNotFound):
		r.logger.Info("Address not found by geocoder", zap.String("address", address))
		res = Resolution{Status: StatusNotFound}
	case gerr != nil:
		r.logger.Warn("Geocoding failed", zap.String("address", address), zap.Error(gerr))
		res = Resolution{Status: StatusFailed, Err: gerr}
	}
	metrics.GeocoderRequests.WithLabelValues(res.Status.String()).Inc()

	record := &models.AddressCoordinates{Address: address, UpdatedAt: now}
	if res.Point != nil {
		record.Latitude = &res.Point.Lat
		record.Longitude = &res.Point.Lon
	}
	if err := r.store.SaveCoordinates(ctx, record); err != nil {
		r.logger.Warn("Coordinate cache write failed", zap.String("address", address), zap.Error(err))
		return Resolution{Status: StatusFailed, Err: err}
	}

	return res
}

// Lookup returns the coordinates for address or nil when it cannot be resolved.
func (r *Resolver) Lookup(ctx context.Context, address string) *geo.Point {
	return r.Resolve(ctx, address).Point
}

// Invalidate drops the cache entry of an address that is no longer in use.
func (r *Resolver) Invalidate(ctx context.Context, address string) error {
	if address == "" {
		return nil
	}
	return r.store.DeleteCoordinates(ctx, address)
}
