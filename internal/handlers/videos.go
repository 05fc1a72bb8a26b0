package handlers

import (
	"errors"
	"net/http"

	"github.com/tutorhub/backend/internal/auth"
	"github.com/tutorhub/backend/internal/engagement"
	"github.com/tutorhub/backend/internal/flash"
	"github.com/tutorhub/backend/internal/logging"
	"github.com/tutorhub/backend/internal/models"
	"github.com/tutorhub/backend/internal/repositories"
)

// VideoHandler serves the viewer-facing video pages and engagement actions.
type VideoHandler struct {
	Videos  VideoStore
	Users   UserStore
	Engine  EngagementEngine
	Flashes *flash.Store
}

// List handles GET /videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videos, err := h.Videos.ListAll(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list videos", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load videos"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, videoListResponse{Videos: toVideoSummaries(videos)})
}

// Watch handles GET /videos/{id}. Fetching the page counts as a view;
// repeat visits count again. The caller's watched set is updated as a
// side channel and never blocks the response.
func (h VideoHandler) Watch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	videoID := r.PathValue("id")

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			redirectWithError(w, r, h.Flashes, auth.ViewerLanding, "Video not found.")
			return
		}
		logger.Error("load video", "videoId", videoID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load video"})
		return
	}

	views, err := h.Engine.RecordView(ctx, videoID)
	if err != nil {
		// A lost view increment never fails the read path.
		logger.Warn("record view", "videoId", videoID, "error", err)
		views = video.Views
	}
	video.Views = views

	identity := auth.IdentityFromContext(ctx)
	if identity.LoggedIn() {
		if err := h.Users.MarkWatched(ctx, identity.User.ID, videoID); err != nil {
			logger.Warn("mark watched", "videoId", videoID, "userId", identity.User.ID, "error", err)
		}
	}

	resp := watchResponse{
		Video:     toVideoSummary(video),
		Feedbacks: make([]feedbackResponse, 0, len(video.Feedbacks)),
	}
	if identity.LoggedIn() {
		resp.LikedByCaller = video.LikedBy(identity.User.ID)
	}
	for _, fb := range video.Feedbacks {
		resp.Feedbacks = append(resp.Feedbacks, feedbackResponse{
			ID:        fb.ID,
			UserID:    fb.UserID,
			Comment:   fb.Comment,
			CreatedAt: fb.CreatedAt.Format(timeFormat),
		})
	}

	respondJSON(ctx, w, http.StatusOK, resp)
}

// Like handles POST /videos/{id}/like. The toggle is idempotent: liking an
// already-liked video removes the like.
func (h VideoHandler) Like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	videoID := r.PathValue("id")

	identity := auth.IdentityFromContext(ctx)
	if !identity.LoggedIn() {
		redirectWithError(w, r, h.Flashes, auth.LoginPath, "Please login to continue")
		return
	}

	result, err := h.Engine.ToggleLike(ctx, videoID, identity.User.ID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			redirectWithError(w, r, h.Flashes, auth.ViewerLanding, "Video not found.")
		case errors.Is(err, engagement.ErrValidation):
			redirectWithError(w, r, h.Flashes, "/videos/"+videoID, "Unable to update like.")
		default:
			logger.Error("toggle like", "videoId", videoID, "userId", identity.User.ID, "error", err)
			redirectWithError(w, r, h.Flashes, "/videos/"+videoID, "Something went wrong.")
		}
		return
	}

	logger.Info("like toggled", "videoId", videoID, "userId", identity.User.ID, "liked", result.Liked, "likeCount", result.LikeCount)
	http.Redirect(w, r, "/videos/"+videoID, http.StatusSeeOther)
}

// Feedback handles POST /videos/{id}/feedback.
func (h VideoHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	videoID := r.PathValue("id")

	identity := auth.IdentityFromContext(ctx)
	if !identity.LoggedIn() {
		redirectWithError(w, r, h.Flashes, auth.LoginPath, "Please login to continue")
		return
	}

	comment := r.FormValue("comment")
	if _, err := h.Engine.AddFeedback(ctx, videoID, identity.User.ID, comment); err != nil {
		switch {
		case errors.Is(err, engagement.ErrValidation):
			redirectWithError(w, r, h.Flashes, "/videos/"+videoID, "Feedback must not be empty.")
		case errors.Is(err, repositories.ErrNotFound):
			redirectWithError(w, r, h.Flashes, auth.ViewerLanding, "Video not found.")
		default:
			logger.Error("add feedback", "videoId", videoID, "userId", identity.User.ID, "error", err)
			redirectWithError(w, r, h.Flashes, "/videos/"+videoID, "Something went wrong.")
		}
		return
	}

	redirectWithSuccess(w, r, h.Flashes, "/videos/"+videoID, "Feedback added.")
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

type videoListResponse struct {
	Videos []videoSummary `json:"videos"`
}

type watchResponse struct {
	Video         videoSummary       `json:"video"`
	LikedByCaller bool               `json:"likedByCaller"`
	Feedbacks     []feedbackResponse `json:"feedbacks"`
}

type videoSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	VideoURL        string `json:"videoUrl"`
	Thumbnail       string `json:"thumbnail"`
	Category        string `json:"category"`
	DurationSeconds int    `json:"durationSeconds"`
	UploadedBy      string `json:"uploadedBy"`
	AssetStatus     string `json:"assetStatus"`
	LikeCount       int    `json:"likeCount"`
	Views           int64  `json:"views"`
}

type feedbackResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"createdAt"`
}

func toVideoSummary(video models.Video) videoSummary {
	return videoSummary{
		ID:              video.ID,
		Title:           video.Title,
		Description:     video.Description,
		VideoURL:        video.VideoURL,
		Thumbnail:       video.Thumbnail,
		Category:        video.Category,
		DurationSeconds: video.DurationSeconds,
		UploadedBy:      video.UploadedBy,
		AssetStatus:     video.AssetStatus,
		LikeCount:       video.LikeCount,
		Views:           video.Views,
	}
}

func toVideoSummaries(videos []models.Video) []videoSummary {
	summaries := make([]videoSummary, 0, len(videos))
	for _, video := range videos {
		summaries = append(summaries, toVideoSummary(video))
	}
	return summaries
}
