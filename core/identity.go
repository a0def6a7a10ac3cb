package core

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// UserHeader carries the authenticated caller id set by the upstream gateway.
const UserHeader = "X-User-ID"

type userKey struct{}

// WithUserID stores the caller id in ctx.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// UserIDFromContext returns the caller id and whether one was present.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userKey{}).(uuid.UUID)
	return id, ok
}

// RequireUser rejects requests without a well-formed caller id with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(UserHeader))
		if err != nil || id == uuid.Nil {
			_ = JSONError(w, ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

// UUIDParam parses a path value as a UUID or returns a 400 HTTPError.
func UUIDParam(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrBadRequest.WithMessage("invalid " + name)
	}
	return id, nil
}
