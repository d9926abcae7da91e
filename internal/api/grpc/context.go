package grpc

import (
	"context"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"reservation-engine/internal/domain"
)

const (
	MetadataUserID   = "user-id"
	MetadataUserRole = "user-role"
)

// GetUserIDFromContext extracts the user ID from the gRPC metadata.
// It expects a header named "user-id".
func GetUserIDFromContext(ctx context.Context) (int32, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	userIDs := md.Get(MetadataUserID)
	if len(userIDs) == 0 {
		return 0, status.Errorf(codes.Unauthenticated, "user_id is not provided in metadata")
	}

	userID, err := strconv.ParseInt(userIDs[0], 10, 32)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "invalid user_id format: %v", err)
	}

	return int32(userID), nil
}

// GetActorFromContext combines "user-id" and "user-role" as set by the auth
// interceptor. A missing role means a plain user.
func GetActorFromContext(ctx context.Context) (domain.Actor, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return domain.Actor{}, err
	}

	role := domain.ActorRoleUser
	md, _ := metadata.FromIncomingContext(ctx)
	if roles := md.Get(MetadataUserRole); len(roles) > 0 && roles[0] != "" {
		role = domain.ActorRole(roles[0])
	}
	if role != domain.ActorRoleUser && role != domain.ActorRoleAdmin {
		return domain.Actor{}, status.Errorf(codes.PermissionDenied, "role %q cannot call this API", role)
	}
	return domain.Actor{ID: userID, Role: role}, nil
}
