package grpc

import (
	"context"

	pb "github.com/dmitrijs2005/hobbyvault/internal/proto"
	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/server/auth"
	"github.com/dmitrijs2005/hobbyvault/internal/server/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// accessTokenInterceptor is the Gatekeeper for every non-public method: the
// "authorization" metadata must hold a valid bearer access token.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if pb.IsPublicMethod(info.FullMethod) {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationMetadataKey); len(values) > 0 {
			header = values[0]
		}
	}

	id, err := auth.Authenticate(s.access, header)
	if err != nil {
		s.metrics.Auth("gatekeeper", metrics.OutcomeDenied)
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	s.metrics.Auth("gatekeeper", metrics.OutcomeSuccess)

	return handler(auth.WithIdentity(ctx, id), req)
}
