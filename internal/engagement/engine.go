package engagement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/backend/internal/logging"
	"github.com/tutorhub/backend/internal/models"
)

// Store is the persistence surface the engine mutates. Every operation is a
// single read-modify-write against one video aggregate; the store reports
// repositories.ErrNotFound for an unknown video and passes other failures
// through untouched.
type Store interface {
	ToggleLike(ctx context.Context, videoID, userID string) (liked bool, likeCount int, err error)
	IncrementViews(ctx context.Context, videoID string) (int64, error)
	AppendFeedback(ctx context.Context, videoID string, feedback models.Feedback) error
}

// LikeResult describes the like set after a toggle.
type LikeResult struct {
	Liked     bool
	LikeCount int
}

// Engine owns mutation of a video's likes, view counter and feedback list.
// It applies each call at most once and leaves retries to the caller.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine constructs an engagement engine over the provided store.
func NewEngine(store Store) *Engine {
	if store == nil {
		panic("engagement: store must not be nil")
	}
	return &Engine{store: store, now: time.Now}
}

// ToggleLike flips the user's membership in the video's like set. Calling
// it twice restores the original state; the like count is always recomputed
// from the set size, never adjusted independently.
func (e *Engine) ToggleLike(ctx context.Context, videoID, userID string) (LikeResult, error) {
	if videoID == "" || userID == "" {
		return LikeResult{}, fmt.Errorf("%w: video and user ids are required", ErrValidation)
	}

	ctx, span := logging.StartSpan(ctx, "engagement.toggle_like")
	defer span.End()

	liked, count, err := e.store.ToggleLike(ctx, videoID, userID)
	if err != nil {
		return LikeResult{}, fmt.Errorf("toggle like on video %s: %w", videoID, err)
	}

	return LikeResult{Liked: liked, LikeCount: count}, nil
}

// RecordView increments the video's monotonic view counter by one. Every
// fetch counts; there is no per-viewer dedup.
func (e *Engine) RecordView(ctx context.Context, videoID string) (int64, error) {
	if videoID == "" {
		return 0, fmt.Errorf("%w: video id is required", ErrValidation)
	}

	ctx, span := logging.StartSpan(ctx, "engagement.record_view")
	defer span.End()

	views, err := e.store.IncrementViews(ctx, videoID)
	if err != nil {
		return 0, fmt.Errorf("record view on video %s: %w", videoID, err)
	}

	return views, nil
}

// AddFeedback appends an immutable comment to the video's feedback list.
// An empty or whitespace-only comment is rejected with no mutation.
func (e *Engine) AddFeedback(ctx context.Context, videoID, userID, comment string) (models.Feedback, error) {
	if videoID == "" || userID == "" {
		return models.Feedback{}, fmt.Errorf("%w: video and user ids are required", ErrValidation)
	}
	if strings.TrimSpace(comment) == "" {
		return models.Feedback{}, fmt.Errorf("%w: comment must not be empty", ErrValidation)
	}

	ctx, span := logging.StartSpan(ctx, "engagement.add_feedback")
	defer span.End()

	feedback := models.Feedback{
		ID:        uuid.NewString(),
		UserID:    userID,
		Comment:   comment,
		CreatedAt: e.now().UTC(),
	}

	if err := e.store.AppendFeedback(ctx, videoID, feedback); err != nil {
		return models.Feedback{}, fmt.Errorf("add feedback to video %s: %w", videoID, err)
	}

	return feedback, nil
}

// AssertOwner fails with ErrForbidden unless the user created the video.
// Applied before every edit, update and delete.
func AssertOwner(video models.Video, userID string) error {
	if userID == "" || video.UploadedBy != userID {
		return fmt.Errorf("%w: video %s is not owned by %s", ErrForbidden, video.ID, userID)
	}
	return nil
}

// WithNowFunc overrides the time source. Used by tests.
func (e *Engine) WithNowFunc(now func() time.Time) {
	e.now = now
}
