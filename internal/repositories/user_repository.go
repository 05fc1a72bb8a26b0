package repositories

import (
	"context"

	"github.com/tutorhub/backend/internal/models"
)

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	MarkNewVideoForViewers(ctx context.Context, videoID string) error
	MarkWatched(ctx context.Context, userID, videoID string) error
}
