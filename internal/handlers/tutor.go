package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/backend/internal/auth"
	"github.com/tutorhub/backend/internal/engagement"
	"github.com/tutorhub/backend/internal/flash"
	"github.com/tutorhub/backend/internal/logging"
	"github.com/tutorhub/backend/internal/models"
	"github.com/tutorhub/backend/internal/repositories"
	"github.com/tutorhub/backend/internal/uploads"
)

const maxUploadMemory = 32 << 20

// TutorHandler serves the tutor dashboard and video management surface.
// Every route behind it is gated to the tutor role; ownership of the
// specific video is still asserted per mutation.
type TutorHandler struct {
	Videos  VideoStore
	Users   UserStore
	Stats   StatsProvider
	Cache   StatsInvalidator
	Uploads UploadQueue
	Blobs   BlobDeleter
	Flashes *flash.Store
	NowFunc func() time.Time
}

// Dashboard handles GET /tutor/dashboard.
func (h TutorHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	identity := auth.IdentityFromContext(ctx)

	videos, err := h.Videos.ListByOwner(ctx, identity.User.ID)
	if err != nil {
		logger.Error("list tutor videos", "tutorId", identity.User.ID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load dashboard"})
		return
	}

	stats, err := h.Stats.Lookup(ctx, identity.User.ID)
	if err != nil {
		logger.Error("load tutor stats", "tutorId", identity.User.ID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load dashboard"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, dashboardResponse{
		Tutor: profileResponse{
			ID:          identity.User.ID,
			Name:        identity.User.Name,
			Email:       identity.User.Email,
			Role:        identity.User.Role,
			HasNewVideo: identity.User.Notification.HasNewVideo,
		},
		Stats: statsResponse{
			TotalVideos: stats.TotalVideos,
			TotalViews:  stats.TotalViews,
			TotalLikes:  stats.TotalLikes,
		},
		Videos: toVideoSummaries(videos),
	})
}

// ListOwn handles GET /tutor/videos.
func (h TutorHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := auth.IdentityFromContext(ctx)

	videos, err := h.Videos.ListByOwner(ctx, identity.User.ID)
	if err != nil {
		logging.FromContext(ctx).Error("list tutor videos", "tutorId", identity.User.ID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to load videos"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, videoListResponse{Videos: toVideoSummaries(videos)})
}

// Upload handles POST /tutor/videos/upload. The metadata row is created
// immediately with a pending asset; the payload is persisted by the upload
// workers. The owner is always the authenticated tutor, never client input.
func (h TutorHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	identity := auth.IdentityFromContext(ctx)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		logger.Warn("invalid upload form", "error", err)
		redirectWithError(w, r, h.Flashes, "/tutor/videos/upload", "Title and video file are required.")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	category := strings.TrimSpace(r.FormValue("category"))
	duration, _ := strconv.Atoi(strings.TrimSpace(r.FormValue("durationSeconds")))

	file, header, err := r.FormFile("video")
	if title == "" || err != nil {
		redirectWithError(w, r, h.Flashes, "/tutor/videos/upload", "Title and video file are required.")
		return
	}
	defer file.Close()

	tempPath, err := spoolUpload(file)
	if err != nil {
		logger.Error("spool upload", "error", err)
		redirectWithError(w, r, h.Flashes, "/tutor/videos/upload", "Error uploading video")
		return
	}

	now := h.now()
	video := models.Video{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     description,
		Category:        category,
		DurationSeconds: duration,
		UploadedBy:      identity.User.ID,
		AssetStatus:     models.AssetStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("create video", "tutorId", identity.User.ID, "error", err)
		_ = os.Remove(tempPath)
		redirectWithError(w, r, h.Flashes, "/tutor/videos/upload", "Error uploading video")
		return
	}

	job := uploads.Job{
		VideoID:         video.ID,
		Filename:        header.Filename,
		TempPath:        tempPath,
		DurationSeconds: duration,
	}
	if err := h.Uploads.Enqueue(ctx, job); err != nil {
		logger.Error("enqueue upload", "videoId", video.ID, "error", err)
		_ = os.Remove(tempPath)
		redirectWithError(w, r, h.Flashes, "/tutor/videos/upload", "Error uploading video")
		return
	}

	if err := h.Users.MarkNewVideoForViewers(ctx, video.ID); err != nil {
		logger.Warn("flag new video for viewers", "videoId", video.ID, "error", err)
	}
	if h.Cache != nil {
		h.Cache.Invalidate(identity.User.ID)
	}

	logger.Info("video uploaded", "videoId", video.ID, "tutorId", identity.User.ID)
	redirectWithSuccess(w, r, h.Flashes, auth.TutorLanding, "Video uploaded successfully!")
}

// Edit handles POST /tutor/videos/{id}/edit.
func (h TutorHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	identity := auth.IdentityFromContext(ctx)
	videoID := r.PathValue("id")

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			redirectWithError(w, r, h.Flashes, auth.TutorLanding, "Video not found.")
			return
		}
		logger.Error("load video for edit", "videoId", videoID, "error", err)
		redirectWithError(w, r, h.Flashes, auth.TutorLanding, "Something went wrong.")
		return
	}

	if err := engagement.AssertOwner(video, identity.User.ID); err != nil {
		logger.Warn("edit denied", "videoId", videoID, "tutorId", identity.User.ID)
		redirectWithError(w, r, h.Flashes, auth.TutorLanding, "You can only edit your own videos.")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		redirectWithError(w, r, h.Flashes, "/tutor/videos/"+videoID+"/edit", "Title is required.")
		return
	}
	description := strings.TrimSpace(r.FormValue("description"))
	category := strings.TrimSpace(r.FormValue("category"))

	if err := h.Videos.UpdateDetails(ctx, videoID, title, description, category); err != nil {
		logger.Error("update video details", "videoId", videoID, "error", err)
		redirectWithError(w, r, h.Flashes, "/tutor/videos/"+videoID+"/edit", "Error updating video")
		return
	}

	redirectWithSuccess(w, r, h.Flashes, "/tutor/videos", "Video updated successfully!")
}

// Delete handles POST /tutor/videos/{id}/delete. The metadata row goes
// first; releasing the blob is best effort and never blocks deletion.
func (h TutorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	identity := auth.IdentityFromContext(ctx)
	videoID := r.PathValue("id")

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			redirectWithError(w, r, h.Flashes, auth.TutorLanding, "Video not found.")
			return
		}
		logger.Error("load video for delete", "videoId", videoID, "error", err)
		redirectWithError(w, r, h.Flashes, auth.TutorLanding, "Something went wrong.")
		return
	}

	if err := engagement.AssertOwner(video, identity.User.ID); err != nil {
		logger.Warn("delete denied", "videoId", videoID, "tutorId", identity.User.ID)
		redirectWithError(w, r, h.Flashes, auth.TutorLanding, "You can only delete your own videos.")
		return
	}

	if err := h.Videos.Delete(ctx, videoID); err != nil {
		logger.Error("delete video", "videoId", videoID, "error", err)
		redirectWithError(w, r, h.Flashes, auth.TutorLanding, "Something went wrong.")
		return
	}

	if video.VideoURL != "" && h.Blobs != nil {
		if err := h.Blobs.Delete(ctx, video.VideoURL); err != nil {
			logger.Warn("release video blob", "videoId", videoID, "location", video.VideoURL, "error", err)
		}
	}
	if h.Cache != nil {
		h.Cache.Invalidate(identity.User.ID)
	}

	logger.Info("video deleted", "videoId", videoID, "tutorId", identity.User.ID)
	redirectWithSuccess(w, r, h.Flashes, auth.TutorLanding, "Video deleted.")
}

func (h TutorHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func spoolUpload(file io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "tutorhub-upload-*")
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return tmp.Name(), nil
}

type dashboardResponse struct {
	Tutor  profileResponse `json:"tutor"`
	Stats  statsResponse   `json:"stats"`
	Videos []videoSummary  `json:"videos"`
}

type statsResponse struct {
	TotalVideos int   `json:"totalVideos"`
	TotalViews  int64 `json:"totalViews"`
	TotalLikes  int   `json:"totalLikes"`
}
