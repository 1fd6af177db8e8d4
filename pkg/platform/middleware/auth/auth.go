package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/httputil"
	request "spendwise/pkg/platform/middleware/request"
	"spendwise/pkg/requestcontext"
)

// JWTValidator validates a bearer token and returns its claims.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker reports whether a token jti has been revoked.
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims are the claims the middleware relies on.
type JWTClaims struct {
	UserID    string
	JTI       string
	ExpiresAt time.Time
}

func unauthorized(w http.ResponseWriter, msg string) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, msg))
}

// RequireAuth rejects requests without a valid, unrevoked bearer token and
// stores the caller's user ID and token metadata in the context.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token", "request_id", requestID)
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token", "error", err, "request_id", requestID)
				unauthorized(w, "Invalid or expired token")
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid subject", "error", err, "request_id", requestID)
				unauthorized(w, "Invalid or expired token")
				return
			}

			if revocationChecker != nil {
				if claims.JTI == "" {
					logger.WarnContext(ctx, "unauthorized access - missing token jti", "request_id", requestID)
					unauthorized(w, "Invalid or expired token")
					return
				}
				revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation", "error", err, "request_id", requestID)
					httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate token"))
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked", "jti", claims.JTI, "request_id", requestID)
					unauthorized(w, "Token has been revoked")
					return
				}
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			ctx = requestcontext.WithToken(ctx, claims.JTI, claims.ExpiresAt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
