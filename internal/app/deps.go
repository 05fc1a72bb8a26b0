package app

import (
	"log/slog"

	"github.com/tutorhub/backend/internal/auth"
	"github.com/tutorhub/backend/internal/config"
	"github.com/tutorhub/backend/internal/db"
	"github.com/tutorhub/backend/internal/engagement"
	"github.com/tutorhub/backend/internal/flash"
	"github.com/tutorhub/backend/internal/handlers"
	"github.com/tutorhub/backend/internal/middleware"
	"github.com/tutorhub/backend/internal/repositories"
	"github.com/tutorhub/backend/internal/stats"
	"github.com/tutorhub/backend/internal/storage"
	"github.com/tutorhub/backend/internal/uploads"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers, plus the identity resolver that fronts the router and the upload
// ingestor the caller must shut down on exit.
func buildDependencies(pool db.Pool, cfg config.Config, blobs *storage.S3Storage, logger *slog.Logger) (handlers.Dependencies, *auth.Resolver, *uploads.Ingestor) {
	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)

	tokens := auth.NewTokenService(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	resolver := auth.NewResolver(tokens, users)
	flashes := flash.NewStore(cfg.Auth.FlashSecret)
	guards := auth.NewGuards(flashes)

	engine := engagement.NewEngine(videos)

	statsCache := stats.NewCachingProvider(stats.NewRepositoryProvider(videos), cfg.StatsCacheTTL)

	ingestor := uploads.NewIngestor(blobs, videos, uploads.IngestorConfig{
		QueueSize: cfg.UploadQueueSize,
		Workers:   cfg.UploadWorkers,
	}, logger)

	limiter := middleware.NewIPRateLimiter(
		cfg.LoginRateLimit.Requests,
		cfg.LoginRateLimit.Window,
		cfg.LoginRateLimit.Burst,
		cfg.LoginRateLimit.TTL,
	)

	deps := handlers.Dependencies{
		Users:      users,
		Videos:     videos,
		Engine:     engine,
		Tokens:     tokens,
		Guards:     guards,
		Flashes:    flashes,
		Stats:      statsCache,
		StatsCache: statsCache,
		Uploads:    ingestor,
		Blobs:      blobs,
		Limiter:    limiter,
		TokenTTL:   cfg.Auth.TokenTTL,
	}

	return deps, resolver, ingestor
}
