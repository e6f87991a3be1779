package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/hobbyvault/internal/client/credentials"
	"github.com/dmitrijs2005/hobbyvault/internal/logging"
	pb "github.com/dmitrijs2005/hobbyvault/internal/proto"
)

// GRPCClient implements Client over the gRPC API.
type GRPCClient struct {
	conn    *grpc.ClientConn
	api     pb.AuthServiceClient
	manager *credentials.Manager
	logger  logging.Logger
}

func NewGRPCClient(ctx context.Context, target string, store credentials.TokenStore, logger logging.Logger) (*GRPCClient, error) {
	return newGRPCClient(ctx, target, store, logger, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func newGRPCClient(ctx context.Context, target string, store credentials.TokenStore, logger logging.Logger, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{logger: logger.With("module", "grpc_client")}

	m, err := credentials.NewManager(ctx, store, c, logger)
	if err != nil {
		return nil, err
	}
	c.manager = m

	opts = append(opts, grpc.WithUnaryInterceptor(m.UnaryClientInterceptor(pb.IsPublicMethod)))
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.api = pb.NewAuthServiceClient(conn)
	return c, nil
}

func (c *GRPCClient) Manager() *credentials.Manager { return c.manager }

func (c *GRPCClient) Register(ctx context.Context, email, password string) (*User, error) {
	resp, err := c.api.Register(ctx, &pb.CredentialsRequest{Email: email, Password: password})
	if err != nil {
		return nil, c.mapError(err)
	}
	return c.session(ctx, resp)
}

func (c *GRPCClient) Login(ctx context.Context, email, password string) (*User, error) {
	resp, err := c.api.Login(ctx, &pb.CredentialsRequest{Email: email, Password: password})
	if err != nil {
		return nil, c.mapError(err)
	}
	return c.session(ctx, resp)
}

func (c *GRPCClient) session(ctx context.Context, resp *pb.SessionResponse) (*User, error) {
	if err := c.manager.Set(ctx, credentials.Tokens{AccessToken: resp.GetAccessToken(), RefreshToken: resp.GetRefreshToken()}); err != nil {
		return nil, err
	}
	return &User{ID: resp.GetUser().GetId(), Email: resp.GetUser().GetEmail()}, nil
}

// Refresh performs the exchange; it is the manager's Refresher.
func (c *GRPCClient) Refresh(ctx context.Context, refreshToken string) (credentials.Tokens, error) {
	resp, err := c.api.RefreshToken(ctx, &pb.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return credentials.Tokens{}, c.mapError(err)
	}
	return credentials.Tokens{AccessToken: resp.GetAccessToken(), RefreshToken: resp.GetRefreshToken()}, nil
}

func (c *GRPCClient) WhoAmI(ctx context.Context) (*User, error) {
	resp, err := c.api.WhoAmI(ctx, &pb.Empty{})
	if err != nil {
		return nil, c.mapError(err)
	}
	return &User{ID: resp.GetId(), Email: resp.GetEmail()}, nil
}

func (c *GRPCClient) Logout(ctx context.Context) error {
	old, err := c.manager.Logout(ctx)
	if old.RefreshToken != "" {
		if _, rerr := c.api.Logout(ctx, &pb.RefreshRequest{RefreshToken: old.RefreshToken}); rerr != nil {
			c.logger.Warn(ctx, "server logout failed", "error", rerr)
		}
	}
	return err
}

func (c *GRPCClient) LoggedIn() bool { return c.manager.LoggedIn() }

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.AlreadyExists:
		return ErrConflict
	case codes.InvalidArgument:
		return &InputError{}
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.Canceled:
		return context.Canceled
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
