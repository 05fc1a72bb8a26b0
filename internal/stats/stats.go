package stats

import (
	"context"
	"errors"

	"github.com/tutorhub/backend/internal/models"
)

// ErrProviderUnavailable indicates the stats provider is not configured.
var ErrProviderUnavailable = errors.New("stats provider unavailable")

// Provider returns aggregate engagement numbers for one tutor's uploads.
type Provider interface {
	Lookup(ctx context.Context, ownerID string) (models.OwnerStats, error)
}

// RepositoryProvider computes stats straight from the video repository.
type RepositoryProvider struct {
	videos OwnerStatsSource
}

// OwnerStatsSource is the repository slice the provider needs.
type OwnerStatsSource interface {
	OwnerStats(ctx context.Context, ownerID string) (models.OwnerStats, error)
}

// NewRepositoryProvider wraps the repository aggregate query as a Provider.
func NewRepositoryProvider(videos OwnerStatsSource) *RepositoryProvider {
	return &RepositoryProvider{videos: videos}
}

// Lookup delegates to the repository aggregate query.
func (p *RepositoryProvider) Lookup(ctx context.Context, ownerID string) (models.OwnerStats, error) {
	if p == nil || p.videos == nil {
		return models.OwnerStats{}, ErrProviderUnavailable
	}
	return p.videos.OwnerStats(ctx, ownerID)
}
