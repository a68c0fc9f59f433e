package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/logging"
	"github.com/dmitrijs2005/teamflow/internal/server/api"
	"github.com/dmitrijs2005/teamflow/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newTestServer(secret string) *Server {
	return NewServer("127.0.0.1:0", logging.Nop(), &echoHandler{}, secret)
}

func TestInterceptor_OtherMethod_AllowsWithoutToken(t *testing.T) {
	s := newTestServer("secret")

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	handlerCalled := false

	h := func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Fatal("handler was not called")
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
}

func TestInterceptor_Call_MissingToken(t *testing.T) {
	s := newTestServer("secret")

	info := &grpc.UnaryServerInfo{FullMethod: CallMethod}
	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
	if status.Convert(err).Message() != "missing token" {
		t.Fatalf("expected 'missing token', got %q", status.Convert(err).Message())
	}
}

func TestInterceptor_Call_InvalidToken(t *testing.T) {
	s := newTestServer("secret")

	md := metadata.New(map[string]string{common.AccessTokenHeaderName: "not-a-valid-jwt"})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: CallMethod}

	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called for invalid token")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(ctx, nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
}

func TestInterceptor_Call_ExpiredToken(t *testing.T) {
	s := newTestServer("secret")

	token, err := auth.GenerateToken(7, nil, []byte("secret"), -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, token))

	_, err = s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: CallMethod},
		func(ctx context.Context, req any) (any, error) { return nil, nil })
	if status.Convert(err).Message() != "token expired" {
		t.Fatalf("expected 'token expired', got %v", err)
	}
}

func TestInterceptor_Call_ValidToken_SetsPrincipal(t *testing.T) {
	secret := "super-secret"
	s := newTestServer(secret)

	token, err := auth.GenerateToken(123, []string{common.CapTrackTime}, []byte(secret), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	md := metadata.New(map[string]string{common.AccessTokenHeaderName: token})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: CallMethod}

	var got api.Principal
	h := func(ctx context.Context, req any) (any, error) {
		got, _ = api.PrincipalFrom(ctx)
		return "ok", nil
	}

	if _, err := s.accessTokenInterceptor(ctx, nil, info, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != 123 || !got.Can(common.CapTrackTime) {
		t.Fatalf("principal not propagated in context: %+v", got)
	}
}
