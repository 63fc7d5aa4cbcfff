package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/example/foodcart/pkg/config"
	"github.com/example/foodcart/pkg/matcher"
	"github.com/example/foodcart/pkg/models"
	"github.com/example/foodcart/pkg/orders"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type OrderLoader interface {
	Get(ctx context.Context, id uint) (*models.Order, error)
}

type OrderMatcher interface {
	Match(ctx context.Context, order *models.Order) matcher.Result
}

// OrderServer answers restaurant matching requests for stored orders.
type OrderServer struct {
	orders  OrderLoader
	matcher OrderMatcher
	health  *health.Server
	server  *grpc.Server
	logger  *zap.Logger
	config  *config.Config
}

func NewOrderServer(cfg *config.Config, logger *zap.Logger, loader OrderLoader, m OrderMatcher) *OrderServer {
	s := &OrderServer{
		orders:  loader,
		matcher: m,
		health:  health.NewServer(),
		server:  grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(logger))),
		logger:  logger,
		config:  cfg,
	}

	RegisterMatcherServer(s.server, s)
	healthpb.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)
	s.health.SetServingStatus(MatcherServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *OrderServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.GRPC.Host, s.config.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.logger.Info("Order service started", zap.String("address", addr))
	return s.Serve(lis)
}

func (s *OrderServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Stop marks the service as not serving and drains in-flight calls.
func (s *OrderServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

func (s *OrderServer) MatchRestaurants(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.ListValue, error) {
	if req.GetValue() == 0 {
		return nil, status.Error(codes.InvalidArgument, "order id is required")
	}

	order, err := s.orders.Get(ctx, uint(req.GetValue()))
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "order not found")
		}
		s.logger.Error("Failed to load order", zap.Uint64("order_id", req.GetValue()), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to load order")
	}

	res := s.matcher.Match(ctx, order)
	if res.Err != nil {
		s.logger.Warn("Restaurant matching failed", zap.Uint("order_id", order.ID), zap.Error(res.Err))
		return nil, status.Error(codes.Unavailable, res.Err.Error())
	}

	items := make([]interface{}, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		items = append(items, map[string]interface{}{
			"restaurant_id": float64(c.Restaurant.ID),
			"name":          c.Restaurant.Name,
			"address":       c.Restaurant.Address,
			"distance_km":   c.DistanceKm,
		})
	}
	list, err := structpb.NewList(items)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode candidates")
	}
	return list, nil
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		logger.Info("gRPC request",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()))
		return resp, err
	}
}
