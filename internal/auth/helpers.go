package auth

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
)

// RequireAuth extracts user claims from context or returns an unauthenticated error
func RequireAuth(ctx context.Context) (*UserClaims, error) {
	claims, ok := GetUserClaims(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("user not authenticated"))
	}
	return claims, nil
}

// RequireUserAccess verifies the authenticated user matches the requested user ID
func RequireUserAccess(ctx context.Context, requestedUserID string) (*UserClaims, error) {
	claims, err := RequireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if requestedUserID != "" && requestedUserID != claims.UID {
		return nil, connect.NewError(connect.CodePermissionDenied,
			fmt.Errorf("cannot access another user's transactions"))
	}

	return claims, nil
}

// ResolveUserID returns the user a request is about: the requested ID when
// the caller may access it, otherwise the caller's own ID when none was given.
func ResolveUserID(ctx context.Context, requestedUserID string) (string, error) {
	claims, err := RequireUserAccess(ctx, requestedUserID)
	if err != nil {
		return "", err
	}
	return claims.UID, nil
}
