package authz

import (
	"context"
	"net/http"

	"github.com/tripplan/tripplan-api/internal/models"
)

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	usernameKey contextKey = "username"
)

// WithIdentity stores the authenticated user on the context.
func WithIdentity(ctx context.Context, userID int64, username string) context.Context {
	if userID <= 0 {
		return ctx
	}
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, usernameKey, username)
	return ctx
}

func UserIDFromRequest(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value(userIDKey).(int64)
	if !ok || uid <= 0 {
		return 0, false
	}
	return uid, true
}

// UserFromRequest returns the identity as a User with only ID and Username set.
func UserFromRequest(r *http.Request) (models.User, bool) {
	uid, ok := UserIDFromRequest(r)
	if !ok {
		return models.User{}, false
	}
	username, _ := r.Context().Value(usernameKey).(string)
	return models.User{ID: uid, Username: username}, true
}
