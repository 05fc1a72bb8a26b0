package handlers

import (
	"context"

	"github.com/tutorhub/backend/internal/engagement"
	"github.com/tutorhub/backend/internal/models"
	"github.com/tutorhub/backend/internal/uploads"
)

// UserStore captures the persistence operations required by the handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	MarkNewVideoForViewers(ctx context.Context, videoID string) error
	MarkWatched(ctx context.Context, userID, videoID string) error
}

// VideoStore captures persistence for the video aggregate.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	ListAll(ctx context.Context) ([]models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	UpdateDetails(ctx context.Context, id, title, description, category string) error
	Delete(ctx context.Context, id string) error
}

// EngagementEngine mutates a video's likes, views and feedback.
type EngagementEngine interface {
	ToggleLike(ctx context.Context, videoID, userID string) (engagement.LikeResult, error)
	RecordView(ctx context.Context, videoID string) (int64, error)
	AddFeedback(ctx context.Context, videoID, userID, comment string) (models.Feedback, error)
}

// TokenIssuer mints signed session tokens on successful login.
type TokenIssuer interface {
	Issue(subjectID string, role models.Role) (string, error)
}

// UploadQueue schedules background persistence of uploaded payloads.
type UploadQueue interface {
	Enqueue(ctx context.Context, job uploads.Job) error
}

// StatsProvider resolves dashboard aggregates for a tutor.
type StatsProvider interface {
	Lookup(ctx context.Context, ownerID string) (models.OwnerStats, error)
}

// StatsInvalidator drops cached dashboard aggregates after a mutation.
type StatsInvalidator interface {
	Invalidate(ownerID string)
}

// BlobDeleter releases a stored blob by its location. Best effort only.
type BlobDeleter interface {
	Delete(ctx context.Context, location string) error
}
