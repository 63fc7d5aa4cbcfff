package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/example/foodcart/pkg/discovery"
	"github.com/example/foodcart/pkg/matcher"
	"github.com/example/foodcart/pkg/models"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// MatcherClient calls a remote order service for restaurant candidates.
type MatcherClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	logger  *zap.Logger
}

// DiscoverMatcher finds an instance of serviceName in etcd and connects to it.
func DiscoverMatcher(ctx context.Context, disc *discovery.ServiceDiscovery, serviceName string, logger *zap.Logger) (*MatcherClient, error) {
	instances, err := disc.Discover(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("no instances of %s registered", serviceName)
	}

	target := instances[0].Address()
	logger.Info("Discovered order service", zap.String("address", target))
	return NewMatcherClient(target, logger, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func NewMatcherClient(target string, logger *zap.Logger, opts ...grpc.DialOption) (*MatcherClient, error) {
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return &MatcherClient{conn: conn, timeout: 10 * time.Second, logger: logger}, nil
}

// Match returns the candidates for a stored order, nearest first.
func (c *MatcherClient) Match(ctx context.Context, orderID uint) ([]matcher.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, matchRestaurantsMethod, wrapperspb.UInt64(uint64(orderID)), out); err != nil {
		return nil, err
	}

	candidates := make([]matcher.Candidate, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		fields := v.GetStructValue().GetFields()
		candidates = append(candidates, matcher.Candidate{
			Restaurant: models.Restaurant{
				ID:      uint(fields["restaurant_id"].GetNumberValue()),
				Name:    fields["name"].GetStringValue(),
				Address: fields["address"].GetStringValue(),
			},
			DistanceKm: fields["distance_km"].GetNumberValue(),
		})
	}
	return candidates, nil
}

// Candidates is Match with failures logged and collapsed to an empty list.
func (c *MatcherClient) Candidates(ctx context.Context, order *models.Order) []matcher.Candidate {
	candidates, err := c.Match(ctx, order.ID)
	if err != nil {
		c.logger.Warn("Remote restaurant matching failed", zap.Uint("order_id", order.ID), zap.Error(err))
		return []matcher.Candidate{}
	}
	return candidates
}

func (c *MatcherClient) Close() error {
	return c.conn.Close()
}
