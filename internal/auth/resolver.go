package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/tutorhub/backend/internal/logging"
	"github.com/tutorhub/backend/internal/models"
	"github.com/tutorhub/backend/internal/repositories"
)

// TokenCookie is the name of the cookie carrying the session token.
const TokenCookie = "token"

// UserStore loads persisted user records during identity resolution.
type UserStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Resolver turns the request's token cookie into an Identity. It performs
// no mutation beyond clearing a stale cookie.
type Resolver struct {
	tokens *TokenService
	users  UserStore
}

// NewResolver constructs an identity resolver.
func NewResolver(tokens *TokenService, users UserStore) *Resolver {
	if tokens == nil || users == nil {
		panic("auth: resolver requires a token service and a user store")
	}
	return &Resolver{tokens: tokens, users: users}
}

// Middleware resolves the caller's identity on every request and stores it
// on the context. Verification failures leave the caller anonymous; gated
// routes decide what that means. A stale cookie is cleared here so that
// soft-fail pages continue cleanly as anonymous; a transient lookup
// failure keeps the cookie since the credential is still usable.
func (rs *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := rs.Resolve(r.Context(), tokenFromRequest(r))
		if identity.Reason == FailureExpired || identity.Reason == FailureInvalid {
			ClearTokenCookie(w)
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// Resolve verifies the raw token and loads the user it names. The returned
// identity never carries the password hash.
func (rs *Resolver) Resolve(ctx context.Context, raw string) Identity {
	if raw == "" {
		return Identity{}
	}

	claims, err := rs.tokens.Verify(raw)
	if err != nil {
		reason := FailureInvalid
		if errors.Is(err, ErrExpiredToken) {
			reason = FailureExpired
		}
		logging.FromContext(ctx).Warn("token verification failed", "reason", reason, "error", err)
		return Identity{Reason: reason}
	}

	user, err := rs.users.FindByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Token outlived the account it was issued for.
			return Identity{Reason: FailureInvalid}
		}
		logging.FromContext(ctx).Error("identity lookup failed", "userId", claims.SubjectID, "error", err)
		return Identity{Reason: FailureTransient}
	}

	user.PasswordHash = ""
	return Identity{User: &user}
}

func tokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetTokenCookie attaches a freshly issued session token to the response.
func SetTokenCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie removes the session token from the client.
func ClearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
