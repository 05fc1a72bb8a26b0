package repositories

import (
	"context"

	"github.com/tutorhub/backend/internal/models"
)

// VideoRepository exposes data access for the video aggregate, including
// its embedded like set and feedback list.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	ListAll(ctx context.Context) ([]models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	UpdateDetails(ctx context.Context, id, title, description, category string) error
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, videoID, userID string) (liked bool, likeCount int, err error)
	IncrementViews(ctx context.Context, videoID string) (int64, error)
	AppendFeedback(ctx context.Context, videoID string, feedback models.Feedback) error
	MarkAssetReady(ctx context.Context, videoID, location string, durationSeconds int) error
	MarkAssetFailed(ctx context.Context, videoID string) error
	OwnerStats(ctx context.Context, ownerID string) (models.OwnerStats, error)
}
