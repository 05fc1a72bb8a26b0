package engagement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tutorhub/backend/internal/models"
)

var errUnknownVideo = errors.New("unknown video")

type memoryStore struct {
	likes     map[string]map[string]bool
	views     map[string]int64
	feedbacks map[string][]models.Feedback
	known     map[string]bool
}

func newMemoryStore(videoIDs ...string) *memoryStore {
	s := &memoryStore{
		likes:     make(map[string]map[string]bool),
		views:     make(map[string]int64),
		feedbacks: make(map[string][]models.Feedback),
		known:     make(map[string]bool),
	}
	for _, id := range videoIDs {
		s.known[id] = true
	}
	return s
}

func (s *memoryStore) ToggleLike(_ context.Context, videoID, userID string) (bool, int, error) {
	if !s.known[videoID] {
		return false, 0, errUnknownVideo
	}
	set := s.likes[videoID]
	if set == nil {
		set = make(map[string]bool)
		s.likes[videoID] = set
	}
	if set[userID] {
		delete(set, userID)
		return false, len(set), nil
	}
	set[userID] = true
	return true, len(set), nil
}

func (s *memoryStore) IncrementViews(_ context.Context, videoID string) (int64, error) {
	if !s.known[videoID] {
		return 0, errUnknownVideo
	}
	s.views[videoID]++
	return s.views[videoID], nil
}

func (s *memoryStore) AppendFeedback(_ context.Context, videoID string, feedback models.Feedback) error {
	if !s.known[videoID] {
		return errUnknownVideo
	}
	s.feedbacks[videoID] = append(s.feedbacks[videoID], feedback)
	return nil
}

func TestToggleLikeIsIdempotentPerState(t *testing.T) {
	store := newMemoryStore("v1")
	engine := NewEngine(store)
	ctx := context.Background()

	first, err := engine.ToggleLike(ctx, "v1", "u1")
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !first.Liked || first.LikeCount != 1 {
		t.Fatalf("expected liked with count 1, got %+v", first)
	}

	second, err := engine.ToggleLike(ctx, "v1", "u1")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if second.Liked || second.LikeCount != 0 {
		t.Fatalf("expected unliked with count 0, got %+v", second)
	}
}

func TestToggleLikeCountsDistinctUsers(t *testing.T) {
	store := newMemoryStore("v1")
	engine := NewEngine(store)
	ctx := context.Background()

	if _, err := engine.ToggleLike(ctx, "v1", "u1"); err != nil {
		t.Fatalf("toggle u1: %v", err)
	}
	result, err := engine.ToggleLike(ctx, "v1", "u2")
	if err != nil {
		t.Fatalf("toggle u2: %v", err)
	}
	if result.LikeCount != 2 {
		t.Fatalf("expected count 2, got %d", result.LikeCount)
	}
}

func TestToggleLikeValidatesInput(t *testing.T) {
	engine := NewEngine(newMemoryStore("v1"))

	if _, err := engine.ToggleLike(context.Background(), "", "u1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := engine.ToggleLike(context.Background(), "v1", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestToggleLikeUnknownVideo(t *testing.T) {
	engine := NewEngine(newMemoryStore())

	_, err := engine.ToggleLike(context.Background(), "missing", "u1")
	if !errors.Is(err, errUnknownVideo) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordViewIsMonotonic(t *testing.T) {
	store := newMemoryStore("v1")
	engine := NewEngine(store)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		views, err := engine.RecordView(ctx, "v1")
		if err != nil {
			t.Fatalf("record view %d: %v", want, err)
		}
		if views != want {
			t.Fatalf("expected %d views, got %d", want, views)
		}
	}
}

func TestViewsAndLikesAreIndependent(t *testing.T) {
	store := newMemoryStore("v1")
	engine := NewEngine(store)
	ctx := context.Background()

	if _, err := engine.RecordView(ctx, "v1"); err != nil {
		t.Fatalf("record view: %v", err)
	}
	if _, err := engine.ToggleLike(ctx, "v1", "u1"); err != nil {
		t.Fatalf("toggle like: %v", err)
	}
	if _, err := engine.ToggleLike(ctx, "v1", "u1"); err != nil {
		t.Fatalf("toggle like back: %v", err)
	}

	if store.views["v1"] != 1 {
		t.Fatalf("expected views untouched by like toggles, got %d", store.views["v1"])
	}
}

func TestAddFeedbackAppends(t *testing.T) {
	store := newMemoryStore("v1")
	engine := NewEngine(store)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.WithNowFunc(func() time.Time { return fixed })
	ctx := context.Background()

	first, err := engine.AddFeedback(ctx, "v1", "u1", "great explanation")
	if err != nil {
		t.Fatalf("add feedback: %v", err)
	}
	if first.ID == "" || first.UserID != "u1" || first.Comment != "great explanation" {
		t.Fatalf("unexpected feedback %+v", first)
	}
	if !first.CreatedAt.Equal(fixed) {
		t.Fatalf("expected stamped time %v, got %v", fixed, first.CreatedAt)
	}

	if _, err := engine.AddFeedback(ctx, "v1", "u2", "thanks"); err != nil {
		t.Fatalf("add second feedback: %v", err)
	}

	stored := store.feedbacks["v1"]
	if len(stored) != 2 {
		t.Fatalf("expected 2 feedback entries, got %d", len(stored))
	}
	if stored[0].Comment != "great explanation" || stored[1].Comment != "thanks" {
		t.Fatalf("feedback order not preserved: %+v", stored)
	}
}

func TestAddFeedbackRejectsEmptyComment(t *testing.T) {
	store := newMemoryStore("v1")
	engine := NewEngine(store)

	for _, comment := range []string{"", "   ", "\n\t"} {
		if _, err := engine.AddFeedback(context.Background(), "v1", "u1", comment); !errors.Is(err, ErrValidation) {
			t.Fatalf("comment %q: expected validation error, got %v", comment, err)
		}
	}

	if len(store.feedbacks["v1"]) != 0 {
		t.Fatal("rejected comment must not be stored")
	}
}

func TestAssertOwner(t *testing.T) {
	video := models.Video{ID: "v1", UploadedBy: "tutor-1"}

	if err := AssertOwner(video, "tutor-1"); err != nil {
		t.Fatalf("owner rejected: %v", err)
	}
	if err := AssertOwner(video, "tutor-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := AssertOwner(video, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for empty user, got %v", err)
	}
}
