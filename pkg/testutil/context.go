package testutil

import (
	"context"
	"net/http"

	id "spendwise/pkg/domain"
	"spendwise/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the userID is not a valid UUID, it will not be added to the context.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsedUserID, err := id.ParseUserID(userID); err == nil {
		ctx := requestcontext.WithUserID(req.Context(), parsedUserID)
		return req.WithContext(ctx)
	}
	return req
}

// WithUser adds an already typed user ID to the request context.
func WithUser(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
