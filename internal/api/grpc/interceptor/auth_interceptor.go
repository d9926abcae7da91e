package interceptor

import (
	"context"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"reservation-engine/internal/config"
	"reservation-engine/internal/logger"
	"reservation-engine/internal/security"
)

// Identity headers handlers read the caller from. Anything a client sends
// under these names is replaced.
const (
	headerUserID   = "user-id"
	headerUserRole = "user-role"
)

type AuthInterceptor struct {
	tokenManager security.TokenManager
}

func NewAuthInterceptor(tm security.TokenManager) *AuthInterceptor {
	return &AuthInterceptor{tokenManager: tm}
}

// Unary authenticates every non-public RPC and stamps the caller's identity
// into the incoming metadata.
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if config.GetSecurityLevel(info.FullMethod) == config.SecurityPublic {
			return handler(ctx, req)
		}

		authed, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(authed, req)
	}
}

func (i *AuthInterceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	token, ok := bearerToken(md)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	claims, err := i.tokenManager.ValidateToken(token)
	if err != nil {
		logger.Debug("Rejected token", "method", method, "error", err)
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}
	if claims.Type != security.TokenTypeAccess {
		return nil, status.Error(codes.PermissionDenied, security.ErrWrongTokenType.Error())
	}

	out := md.Copy()
	if out == nil {
		out = metadata.MD{}
	}
	out.Set(headerUserID, strconv.FormatInt(int64(claims.UserID), 10))
	out.Set(headerUserRole, string(claims.Role))
	return metadata.NewIncomingContext(ctx, out), nil
}

// bearerToken reads the first authorization value, with or without a
// "Bearer " prefix in any case.
func bearerToken(md metadata.MD) (string, bool) {
	values := md.Get("authorization")
	if len(values) == 0 || values[0] == "" {
		return "", false
	}
	token := values[0]
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = token[7:]
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
