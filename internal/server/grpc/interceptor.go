package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/server/api"
	"github.com/dmitrijs2005/teamflow/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// accessTokenInterceptor authenticates TeamFlow calls and leaves other
// services (health) open.
func (s *Server) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if info.FullMethod != CallMethod {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		s.logger.Debug(ctx, "rejected access token", "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	ctx = api.WithPrincipal(ctx, api.Principal{UserID: claims.UserID, Capabilities: claims.Capabilities})

	return handler(ctx, req)
}
