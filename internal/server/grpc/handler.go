package grpc

import (
	"context"
	"errors"
	"sort"
	"strings"

	pb "github.com/dmitrijs2005/hobbyvault/internal/proto"
	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/server/auth"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
	"github.com/dmitrijs2005/hobbyvault/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus mirrors the HTTP mapping: validation, conflict, unauthenticated,
// and an opaque internal error for everything else.
func toStatus(err error) error {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, "validation failed: "+describeFields(ve.Fields))
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, "validation failed")
	case errors.Is(err, common.ErrorConflict):
		return status.Error(codes.AlreadyExists, "email already registered")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func describeFields(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, k+" "+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func session(a *models.Account, p *services.TokenPair) *pb.SessionResponse {
	return &pb.SessionResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		User:         &pb.User{Id: a.ID, Email: a.Email},
	}
}

func (s *GRPCServer) Register(ctx context.Context, req *pb.CredentialsRequest) (*pb.SessionResponse, error) {
	account, pair, err := s.users.Register(ctx, req.GetEmail(), req.GetPassword())
	if err != nil {
		return nil, toStatus(err)
	}
	return session(account, pair), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.CredentialsRequest) (*pb.SessionResponse, error) {
	account, pair, err := s.users.Login(ctx, req.GetEmail(), req.GetPassword())
	if err != nil {
		return nil, toStatus(err)
	}
	return session(account, pair), nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *pb.RefreshRequest) (*pb.TokenResponse, error) {
	pair, err := s.users.RefreshToken(ctx, req.GetRefreshToken())
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *pb.RefreshRequest) (*pb.Empty, error) {
	s.users.Logout(ctx, req.GetRefreshToken())
	return &pb.Empty{}, nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *pb.Empty) (*pb.User, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	return &pb.User{Id: id.AccountID, Email: id.Email}, nil
}
