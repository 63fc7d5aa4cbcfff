package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The matcher service speaks only well-known protobuf types: the request is
// the order ID and the reply is a list of
// {restaurant_id, name, address, distance_km} structs.
const (
	MatcherServiceName     = "foodcart.Matcher"
	matchRestaurantsMethod = "/foodcart.Matcher/MatchRestaurants"
)

type MatcherServer interface {
	MatchRestaurants(ctx context.Context, orderID *wrapperspb.UInt64Value) (*structpb.ListValue, error)
}

func RegisterMatcherServer(s grpc.ServiceRegistrar, srv MatcherServer) {
	s.RegisterService(&matcherServiceDesc, srv)
}

func matchRestaurantsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.UInt64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatcherServer).MatchRestaurants(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: matchRestaurantsMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MatcherServer).MatchRestaurants(ctx, req.(*wrapperspb.UInt64Value))
	}
	return interceptor(ctx, in, info, handler)
}

var matcherServiceDesc = grpc.ServiceDesc{
	ServiceName: MatcherServiceName,
	HandlerType: (*MatcherServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "MatchRestaurants",
			Handler:    matchRestaurantsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "foodcart/matcher.proto",
}
