package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodcart_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodcart_http_request_duration_seconds",
		Help:    "Time spent serving HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodcart_orders_created_total",
		Help: "The total number of orders accepted through the public API",
	})

	GeocoderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodcart_geocoder_requests_total",
		Help: "External geocoder calls by outcome",
	}, []string{"outcome"})

	GeocoderCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodcart_geocoder_cache_hits_total",
		Help: "Address resolutions served from the coordinate cache",
	})
)
