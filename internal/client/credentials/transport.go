package credentials

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
)

// DefaultBypassPrefix is the path prefix of the authentication endpoints.
// Requests under it never carry a token and never trigger a refresh.
const DefaultBypassPrefix = "/api/auth/"

// Transport is an http.RoundTripper that attaches the bearer access token
// and refreshes once on a 401. Without a refresh the caller receives the
// 401 response unchanged.
type Transport struct {
	Manager      *Manager
	Base         http.RoundTripper
	BypassPrefix string
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) bypassPrefix() string {
	if t.BypassPrefix != "" {
		return t.BypassPrefix
	}
	return DefaultBypassPrefix
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasPrefix(req.URL.Path, t.bypassPrefix()) {
		return t.base().RoundTrip(req)
	}

	// A body that cannot be rebuilt is sent once, without the retry path.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return t.base().RoundTrip(withBearer(req.Clone(req.Context()), t.Manager.Tokens().AccessToken))
	}

	var (
		resp     *http.Response
		attempts int
	)
	err := t.Manager.Do(req.Context(), func(ctx context.Context, accessToken string) error {
		r := req.Clone(ctx)
		if attempts > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return err
			}
			r.Body = body
		}
		attempts++

		if resp != nil {
			drain(resp)
			resp = nil
		}

		res, err := t.base().RoundTrip(withBearer(r, accessToken))
		if err != nil {
			return err
		}
		resp = res
		if res.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return nil
	})

	if resp != nil && (err == nil || errors.Is(err, ErrUnauthorized)) {
		return resp, nil
	}
	if resp != nil {
		drain(resp)
	}
	return nil, err
}

func withBearer(r *http.Request, accessToken string) *http.Request {
	if accessToken != "" {
		r.Header.Set(common.AuthorizationHeader, common.BearerPrefix+accessToken)
	}
	return r
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// unauthenticated carries the original gRPC status through Manager.Do.
type unauthenticated struct{ err error }

func (e *unauthenticated) Error() string        { return e.err.Error() }
func (e *unauthenticated) Is(target error) bool { return target == ErrUnauthorized }
func (e *unauthenticated) Unwrap() error        { return e.err }

// UnaryClientInterceptor attaches the access token as "authorization"
// metadata and refreshes once on codes.Unauthenticated. Methods for which
// bypass reports true are passed through untouched.
func (m *Manager) UnaryClientInterceptor(bypass func(method string) bool) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if bypass != nil && bypass(method) {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		err := m.Do(ctx, func(ctx context.Context, accessToken string) error {
			err := invoker(withAccessToken(ctx, accessToken), method, req, reply, cc, opts...)
			if status.Code(err) == codes.Unauthenticated {
				return &unauthenticated{err: err}
			}
			return err
		})

		var ue *unauthenticated
		if errors.As(err, &ue) {
			return ue.err
		}
		return err
	}
}

func withAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationMetadataKey, common.BearerPrefix+token)

	return metadata.NewOutgoingContext(ctx, md)
}
