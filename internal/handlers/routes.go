package handlers

import (
	"net/http"
	"time"

	"github.com/tutorhub/backend/internal/auth"
	"github.com/tutorhub/backend/internal/engagement"
	"github.com/tutorhub/backend/internal/flash"
	"github.com/tutorhub/backend/internal/models"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users      UserStore
	Videos     VideoStore
	Engine     *engagement.Engine
	Tokens     TokenIssuer
	Guards     *auth.Guards
	Flashes    *flash.Store
	Stats      StatsProvider
	StatsCache StatsInvalidator
	Uploads    UploadQueue
	Blobs      BlobDeleter
	Limiter    RateLimiter
	TokenTTL   time.Duration
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Access
// gates compose around each handler: anonymous-only for the login and
// registration flows, authenticated for everything behind them, and the
// tutor role gate on the management surface.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	account := AuthHandler{
		Users:    deps.Users,
		Tokens:   deps.Tokens,
		Flashes:  deps.Flashes,
		Limiter:  deps.Limiter,
		TokenTTL: deps.TokenTTL,
	}
	videos := VideoHandler{
		Videos:  deps.Videos,
		Users:   deps.Users,
		Engine:  deps.Engine,
		Flashes: deps.Flashes,
	}
	tutor := TutorHandler{
		Videos:  deps.Videos,
		Users:   deps.Users,
		Stats:   deps.Stats,
		Cache:   deps.StatsCache,
		Uploads: deps.Uploads,
		Blobs:   deps.Blobs,
		Flashes: deps.Flashes,
	}

	guards := deps.Guards
	authed := guards.RequireAuthenticated
	anon := guards.RequireAnonymous
	tutorOnly := func(h http.Handler) http.Handler {
		return guards.RequireAuthenticated(guards.RequireRole(models.RoleTutor)(h))
	}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.Handle("POST /register", anon(http.HandlerFunc(account.Register)))
	mux.Handle("POST /login", anon(http.HandlerFunc(account.Login)))
	mux.Handle("POST /logout", authed(http.HandlerFunc(account.Logout)))
	mux.Handle("GET /dashboard", authed(http.HandlerFunc(account.Dashboard)))

	mux.Handle("GET /videos", authed(http.HandlerFunc(videos.List)))
	mux.Handle("GET /videos/{id}", authed(http.HandlerFunc(videos.Watch)))
	mux.Handle("POST /videos/{id}/like", authed(http.HandlerFunc(videos.Like)))
	mux.Handle("POST /videos/{id}/feedback", authed(http.HandlerFunc(videos.Feedback)))

	mux.Handle("GET /tutor/dashboard", tutorOnly(http.HandlerFunc(tutor.Dashboard)))
	mux.Handle("GET /tutor/videos", tutorOnly(http.HandlerFunc(tutor.ListOwn)))
	mux.Handle("POST /tutor/videos/upload", tutorOnly(http.HandlerFunc(tutor.Upload)))
	mux.Handle("POST /tutor/videos/{id}/edit", tutorOnly(http.HandlerFunc(tutor.Edit)))
	mux.Handle("POST /tutor/videos/{id}/delete", tutorOnly(http.HandlerFunc(tutor.Delete)))
}
