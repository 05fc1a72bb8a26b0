package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorhub/backend/internal/db"
	"github.com/tutorhub/backend/internal/engagement"
	"github.com/tutorhub/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, name, email, password_hash, role, has_new_video, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), user.Notification.HasNewVideo, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their normalised email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return r.findOne(ctx, conn, `
        SELECT id, name, email, password_hash, role, last_video_checked, has_new_video, created_at, updated_at
        FROM users
        WHERE email = $1
    `, email)
}

// FindByID fetches a user by their identifier, including notification state.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return r.findOne(ctx, conn, `
        SELECT id, name, email, password_hash, role, last_video_checked, has_new_video, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, conn *pgxpool.Conn, query string, arg any) (models.User, error) {
	row := conn.QueryRow(ctx, query, arg)

	var (
		user        models.User
		role        string
		lastChecked sql.NullString
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &lastChecked, &user.Notification.HasNewVideo, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	user.Role = models.Role(role)
	if lastChecked.Valid {
		user.Notification.LastVideoChecked = lastChecked.String
	}

	rows, err := conn.Query(ctx, `
        SELECT video_id FROM watched_videos WHERE user_id = $1 ORDER BY watched_at
    `, user.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("query watched videos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var videoID string
		if err := rows.Scan(&videoID); err != nil {
			return models.User{}, fmt.Errorf("scan watched video: %w", err)
		}
		user.Notification.WatchedVideos = append(user.Notification.WatchedVideos, videoID)
	}
	if err := rows.Err(); err != nil {
		return models.User{}, fmt.Errorf("iterate watched videos: %w", err)
	}

	return user, nil
}

// Update modifies the mutable profile fields of a user record. The role is
// immutable after creation and is deliberately not part of the statement.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET name = $2, email = $3, password_hash = $4, updated_at = $5
        WHERE id = $1
    `, user.ID, user.Name, user.Email, user.PasswordHash, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkNewVideoForViewers raises the new-video flag for every viewer after
// an upload.
func (r *PostgresUserRepository) MarkNewVideoForViewers(ctx context.Context, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        UPDATE users SET has_new_video = TRUE WHERE role = $1
    `, string(models.RoleViewer)); err != nil {
		return fmt.Errorf("flag new video %s: %w", videoID, err)
	}

	return nil
}

// MarkWatched records that the user watched the video and clears their
// new-video flag. Watching the same video again is a no-op on the set.
func (r *PostgresUserRepository) MarkWatched(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        INSERT INTO watched_videos (user_id, video_id, watched_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id, video_id) DO NOTHING
    `, userID, videoID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert watched video: %w", err)
	}

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET has_new_video = FALSE, last_video_checked = $2
        WHERE id = $1
    `, userID, videoID)
	if err != nil {
		return fmt.Errorf("clear new video flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for the
// video aggregate.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

const videoColumns = `id, title, description, video_url, thumbnail, category, duration_seconds, uploaded_by, asset_status, views, created_at, updated_at`

// Create stores a new video record owned by the uploading tutor.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	status := video.AssetStatus
	if strings.TrimSpace(status) == "" {
		status = models.AssetStatusPending
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, title, description, video_url, thumbnail, category, duration_seconds, uploaded_by, asset_status, views, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, video.ID, video.Title, video.Description, video.VideoURL, video.Thumbnail, video.Category, video.DurationSeconds, video.UploadedBy, status, video.Views, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID loads the full aggregate: the video row plus its like set and
// feedback list. The like count is derived from the set size.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)

	var video models.Video
	if err := row.Scan(&video.ID, &video.Title, &video.Description, &video.VideoURL, &video.Thumbnail, &video.Category, &video.DurationSeconds, &video.UploadedBy, &video.AssetStatus, &video.Views, &video.CreatedAt, &video.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	likeRows, err := conn.Query(ctx, `
        SELECT user_id FROM video_likes WHERE video_id = $1 ORDER BY created_at
    `, id)
	if err != nil {
		return models.Video{}, fmt.Errorf("query likes: %w", err)
	}
	defer likeRows.Close()

	for likeRows.Next() {
		var userID string
		if err := likeRows.Scan(&userID); err != nil {
			return models.Video{}, fmt.Errorf("scan like: %w", err)
		}
		video.Likes = append(video.Likes, userID)
	}
	if err := likeRows.Err(); err != nil {
		return models.Video{}, fmt.Errorf("iterate likes: %w", err)
	}
	video.LikeCount = len(video.Likes)

	feedbackRows, err := conn.Query(ctx, `
        SELECT id, user_id, comment, created_at
        FROM video_feedback
        WHERE video_id = $1
        ORDER BY created_at, id
    `, id)
	if err != nil {
		return models.Video{}, fmt.Errorf("query feedback: %w", err)
	}
	defer feedbackRows.Close()

	for feedbackRows.Next() {
		var fb models.Feedback
		if err := feedbackRows.Scan(&fb.ID, &fb.UserID, &fb.Comment, &fb.CreatedAt); err != nil {
			return models.Video{}, fmt.Errorf("scan feedback: %w", err)
		}
		video.Feedbacks = append(video.Feedbacks, fb)
	}
	if err := feedbackRows.Err(); err != nil {
		return models.Video{}, fmt.Errorf("iterate feedback: %w", err)
	}

	return video, nil
}

// ListAll returns a reverse chronological listing of videos with derived
// like counts. Embedded collections are not loaded on the list path.
func (r *PostgresVideoRepository) ListAll(ctx context.Context) ([]models.Video, error) {
	return r.list(ctx, `
        SELECT `+videoColumns+`,
            (SELECT COUNT(*) FROM video_likes vl WHERE vl.video_id = videos.id) AS like_count
        FROM videos
        ORDER BY created_at DESC
        LIMIT 100
    `)
}

// ListByOwner returns the videos one tutor uploaded, newest first.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error) {
	return r.list(ctx, `
        SELECT `+videoColumns+`,
            (SELECT COUNT(*) FROM video_likes vl WHERE vl.video_id = videos.id) AS like_count
        FROM videos
        WHERE uploaded_by = $1
        ORDER BY created_at DESC
    `, ownerID)
}

func (r *PostgresVideoRepository) list(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var video models.Video
		if err := rows.Scan(&video.ID, &video.Title, &video.Description, &video.VideoURL, &video.Thumbnail, &video.Category, &video.DurationSeconds, &video.UploadedBy, &video.AssetStatus, &video.Views, &video.CreatedAt, &video.UpdatedAt, &video.LikeCount); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

// UpdateDetails modifies the editable metadata of a video.
func (r *PostgresVideoRepository) UpdateDetails(ctx context.Context, id, title, description, category string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = $2, description = $3, category = $4, updated_at = NOW()
        WHERE id = $1
    `, id, title, description, category)
	if err != nil {
		return fmt.Errorf("update video details: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the video row; likes, feedback and watch records cascade.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ToggleLike flips the user's membership in the like set and recomputes
// the count from the set. A successful insert means this call is a like; an
// existing row means it is an unlike.
func (r *PostgresVideoRepository) ToggleLike(ctx context.Context, videoID, userID string) (bool, int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1)`, videoID).Scan(&exists); err != nil {
		return false, 0, fmt.Errorf("check video exists: %w", err)
	}
	if !exists {
		return false, 0, ErrNotFound
	}

	tag, err := conn.Exec(ctx, `
        INSERT INTO video_likes (video_id, user_id, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (video_id, user_id) DO NOTHING
    `, videoID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, 0, ErrNotFound
		}
		return false, 0, fmt.Errorf("insert like: %w", err)
	}

	liked := tag.RowsAffected() > 0
	if !liked {
		if _, err := conn.Exec(ctx, `
            DELETE FROM video_likes WHERE video_id = $1 AND user_id = $2
        `, videoID, userID); err != nil {
			return false, 0, fmt.Errorf("delete like: %w", err)
		}
	}

	var count int
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*) FROM video_likes WHERE video_id = $1
    `, videoID).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("count likes: %w", err)
	}

	return liked, count, nil
}

// IncrementViews bumps the monotonic view counter and returns the new value.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, videoID string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var views int64
	err = conn.QueryRow(ctx, `
        UPDATE videos SET views = views + 1 WHERE id = $1 RETURNING views
    `, videoID).Scan(&views)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment views: %w", err)
	}

	return views, nil
}

// AppendFeedback inserts an immutable feedback entry for the video.
func (r *PostgresVideoRepository) AppendFeedback(ctx context.Context, videoID string, feedback models.Feedback) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO video_feedback (id, video_id, user_id, comment, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, feedback.ID, videoID, feedback.UserID, feedback.Comment, feedback.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert feedback: %w", err)
	}

	return nil
}

// MarkAssetReady records the blob location once the upload worker finishes.
func (r *PostgresVideoRepository) MarkAssetReady(ctx context.Context, videoID, location string, durationSeconds int) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET asset_status = $2, video_url = $3, duration_seconds = $4, updated_at = NOW()
        WHERE id = $1
    `, videoID, models.AssetStatusReady, location, durationSeconds)
	if err != nil {
		return fmt.Errorf("mark asset ready: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkAssetFailed records a failed blob upload for the video.
func (r *PostgresVideoRepository) MarkAssetFailed(ctx context.Context, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET asset_status = $2, video_url = '', updated_at = NOW()
        WHERE id = $1
    `, videoID, models.AssetStatusFailed)
	if err != nil {
		return fmt.Errorf("mark asset failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// OwnerStats aggregates totals across one tutor's uploads for the dashboard.
func (r *PostgresVideoRepository) OwnerStats(ctx context.Context, ownerID string) (models.OwnerStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.OwnerStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var stats models.OwnerStats
	err = conn.QueryRow(ctx, `
        SELECT
            COUNT(*),
            COALESCE(SUM(views), 0),
            COALESCE((
                SELECT COUNT(*)
                FROM video_likes vl
                JOIN videos v ON v.id = vl.video_id
                WHERE v.uploaded_by = $1
            ), 0)
        FROM videos
        WHERE uploaded_by = $1
    `, ownerID).Scan(&stats.TotalVideos, &stats.TotalViews, &stats.TotalLikes)
	if err != nil {
		return models.OwnerStats{}, fmt.Errorf("aggregate owner stats: %w", err)
	}

	return stats, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ engagement.Store = (*PostgresVideoRepository)(nil)
