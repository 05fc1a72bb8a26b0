package auth

import (
	"net/http"

	"github.com/tutorhub/backend/internal/flash"
	"github.com/tutorhub/backend/internal/models"
)

const (
	// LoginPath is where unauthenticated callers are sent.
	LoginPath = "/login"
	// ViewerLanding is the post-login destination for viewers.
	ViewerLanding = "/videos"
	// TutorLanding is the post-login destination for tutors.
	TutorLanding = "/tutor/dashboard"
)

// LandingPath returns the role-appropriate home page. Only the persisted
// role decides this; the token's role claim is a pre-load hint at best.
func LandingPath(role models.Role) string {
	if role == models.RoleTutor {
		return TutorLanding
	}
	return ViewerLanding
}

// Guards builds the composable access gates used by the router. Each gate
// is a pure predicate over the identity the Resolver placed on the context;
// gates never mutate anything beyond writing the redirect flash.
type Guards struct {
	flashes *flash.Store
}

// NewGuards constructs the gate set around the given flash store.
func NewGuards(flashes *flash.Store) *Guards {
	if flashes == nil {
		panic("auth: guards require a flash store")
	}
	return &Guards{flashes: flashes}
}

// RequireAuthenticated terminates anonymous requests with a redirect to the
// login page, distinguishing an expired credential from an invalid one.
func (g *Guards) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if identity.LoggedIn() {
			next.ServeHTTP(w, r)
			return
		}

		switch identity.Reason {
		case FailureExpired:
			_ = g.flashes.Error(w, r, "Session expired, please login again")
		case FailureInvalid:
			_ = g.flashes.Error(w, r, "Invalid token, please login again")
		case FailureTransient:
			_ = g.flashes.Error(w, r, "Something went wrong, please try again")
		default:
			_ = g.flashes.Error(w, r, "Please login to continue")
		}
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
	})
}

// RequireAnonymous keeps authenticated users off the login and registration
// pages by sending them to their landing page instead.
func (g *Guards) RequireAnonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if identity.LoggedIn() {
			http.Redirect(w, r, LandingPath(identity.User.Role), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole gates a route to one role. It must be composed after
// RequireAuthenticated; a mismatch is a hard redirect to the caller's own
// landing page, never silently downgraded access.
func (g *Guards) RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if !identity.LoggedIn() {
				_ = g.flashes.Error(w, r, "Please login to continue")
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}

			if identity.User.Role != role {
				_ = g.flashes.Error(w, r, "You do not have access to that page")
				http.Redirect(w, r, LandingPath(identity.User.Role), http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
