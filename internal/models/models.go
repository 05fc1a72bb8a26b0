package models

import "time"

// Role distinguishes the two account types supported by TutorHub.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleTutor  Role = "tutor"
)

// Valid reports whether the role is one of the supported account types.
func (r Role) Valid() bool {
	return r == RoleViewer || r == RoleTutor
}

// User represents an account within the TutorHub platform.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Notification NotificationState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NotificationState tracks which uploads a user has already seen.
type NotificationState struct {
	LastVideoChecked string
	HasNewVideo      bool
	WatchedVideos    []string
}

// Video is the aggregate a tutor publishes and viewers engage with.
// Likes, Views and Feedbacks share the video's consistency boundary.
type Video struct {
	ID              string
	Title           string
	Description     string
	VideoURL        string
	Thumbnail       string
	Category        string
	DurationSeconds int
	UploadedBy      string
	AssetStatus     string
	Likes           []string
	LikeCount       int
	Views           int64
	Feedbacks       []Feedback
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LikedBy reports whether the user is currently in the video's like set.
func (v Video) LikedBy(userID string) bool {
	for _, id := range v.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

const (
	AssetStatusPending = "pending"
	AssetStatusReady   = "ready"
	AssetStatusFailed  = "failed"
)

// OwnerStats aggregates engagement across all videos a tutor uploaded.
type OwnerStats struct {
	TotalVideos int
	TotalViews  int64
	TotalLikes  int
}

// Feedback is a single immutable comment left on a video.
type Feedback struct {
	ID        string
	UserID    string
	Comment   string
	CreatedAt time.Time
}
