package auth

import (
	"context"

	"github.com/tutorhub/backend/internal/models"
)

// FailureReason records why a presented credential did not resolve to a user.
type FailureReason string

const (
	// FailureNone means no credential was presented at all.
	FailureNone FailureReason = ""
	// FailureExpired means the token was well formed but past its expiry.
	FailureExpired FailureReason = "expired"
	// FailureInvalid means the token was malformed, forged, or referenced
	// a user that no longer exists.
	FailureInvalid FailureReason = "invalid"
	// FailureTransient means the token verified but the user lookup hit a
	// persistence error. The credential itself is still good.
	FailureTransient FailureReason = "transient"
)

// Identity is the resolved authentication state of a request. The User
// projection never includes the password hash.
type Identity struct {
	User   *models.User
	Reason FailureReason
}

// LoggedIn reports whether the request belongs to a known user.
func (id Identity) LoggedIn() bool {
	return id.User != nil
}

// identityKey is the context key type for the resolved identity.
type identityKey struct{}

// WithIdentity attaches the resolved identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the resolved identity, or an anonymous one
// when the resolver has not run.
func IdentityFromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Identity{}
}
