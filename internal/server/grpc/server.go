// Package grpc serves the protobuf AuthService. Protected methods pass the
// Gatekeeper interceptor.
package grpc

import (
	"context"
	"net"

	pb "github.com/dmitrijs2005/hobbyvault/internal/proto"
	"github.com/dmitrijs2005/hobbyvault/internal/logging"
	"github.com/dmitrijs2005/hobbyvault/internal/server/auth"
	"github.com/dmitrijs2005/hobbyvault/internal/server/metrics"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
	"github.com/dmitrijs2005/hobbyvault/internal/server/services"
	"google.golang.org/grpc"
)

// UserService is the part of services.UserService the handlers call.
type UserService interface {
	Register(ctx context.Context, email, password string) (*models.Account, *services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.Account, *services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string)
}

type GRPCServer struct {
	pb.UnimplementedAuthServiceServer

	address string
	users   UserService
	access  *auth.Codec
	metrics *metrics.Metrics
	logger  logging.Logger
}

func NewGRPCServer(address string, l logging.Logger, us UserService, access *auth.Codec, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		access:  access,
		metrics: m,
	}
}

// Server builds a grpc.Server with the service registered and the
// Gatekeeper installed. Run uses it; tests may serve it on any listener.
func (s *GRPCServer) Server() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	pb.RegisterAuthServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

// serve blocks until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.Server()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	return srv.Serve(listen)
}
