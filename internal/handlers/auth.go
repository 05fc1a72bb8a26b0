package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutorhub/backend/internal/auth"
	"github.com/tutorhub/backend/internal/flash"
	"github.com/tutorhub/backend/internal/logging"
	"github.com/tutorhub/backend/internal/models"
	"github.com/tutorhub/backend/internal/repositories"
)

const minPasswordLength = 6

// AuthHandler implements registration, login and logout.
type AuthHandler struct {
	Users    UserStore
	Tokens   TokenIssuer
	Flashes  *flash.Store
	Limiter  RateLimiter
	TokenTTL time.Duration
	NowFunc  func() time.Time
}

// Register handles POST /register form submissions.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil {
		logger.Error("registration dependencies unavailable")
		redirectWithError(w, r, h.Flashes, "/register", "An error occurred while registering.")
		return
	}

	if !allowRequest(h.Limiter, r, "register") {
		logger.Warn("registration rate limited", "ip", clientIP(r))
		redirectWithError(w, r, h.Flashes, "/register", "Too many attempts, please try again later.")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password := r.FormValue("password")

	if name == "" || email == "" || password == "" {
		redirectWithError(w, r, h.Flashes, "/register", "Name, email and password are required.")
		return
	}

	if _, err := mail.ParseAddress(email); err != nil {
		logger.Warn("registration invalid email", "email", email, "error", err)
		redirectWithError(w, r, h.Flashes, "/register", "Email is invalid.")
		return
	}

	if len(password) < minPasswordLength {
		redirectWithError(w, r, h.Flashes, "/register", "Password must be at least 6 characters long.")
		return
	}

	if _, err := h.Users.FindByEmail(ctx, email); err == nil {
		redirectWithError(w, r, h.Flashes, "/register", "Email already exists.")
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("registration user lookup failed", "email", email, "error", err)
		redirectWithError(w, r, h.Flashes, "/register", "An error occurred while registering.")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("registration failed to hash password", "error", err)
		redirectWithError(w, r, h.Flashes, "/register", "An error occurred while registering.")
		return
	}

	// Self-registration only creates viewers; tutor accounts are
	// provisioned through seeding.
	now := h.now()
	user := models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         models.RoleViewer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			redirectWithError(w, r, h.Flashes, "/register", "Email already exists.")
			return
		}
		logger.Error("registration failed to create user", "email", email, "error", err)
		redirectWithError(w, r, h.Flashes, "/register", "An error occurred while registering.")
		return
	}

	logger.Info("account created", "userId", user.ID, "role", user.Role)
	redirectWithSuccess(w, r, h.Flashes, auth.LoginPath, "Account created successfully. Please login.")
}

// Login handles POST /login form submissions.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil {
		logger.Error("authentication dependencies unavailable", "hasUsers", h.Users != nil, "hasTokens", h.Tokens != nil)
		redirectWithError(w, r, h.Flashes, auth.LoginPath, "An error occurred while logging in.")
		return
	}

	if !allowRequest(h.Limiter, r, "login") {
		logger.Warn("login rate limited", "ip", clientIP(r))
		redirectWithError(w, r, h.Flashes, auth.LoginPath, "Too many attempts, please try again later.")
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password := r.FormValue("password")

	if email == "" || password == "" {
		redirectWithError(w, r, h.Flashes, auth.LoginPath, "Email and password are required.")
		return
	}

	user, err := h.Users.FindByEmail(ctx, email)
	if err != nil {
		logger.Warn("login user lookup failed", "email", email, "error", err)
		redirectWithError(w, r, h.Flashes, auth.LoginPath, "Invalid email or password.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		redirectWithError(w, r, h.Flashes, auth.LoginPath, "Invalid email or password.")
		return
	}

	token, err := h.Tokens.Issue(user.ID, user.Role)
	if err != nil {
		logger.Error("failed to issue token", "userId", user.ID, "error", err)
		redirectWithError(w, r, h.Flashes, auth.LoginPath, "An error occurred while logging in.")
		return
	}

	auth.SetTokenCookie(w, token, int(h.ttl().Seconds()))
	logger.Info("login succeeded", "userId", user.ID, "role", user.Role)
	redirectWithSuccess(w, r, h.Flashes, auth.LandingPath(user.Role), "Welcome back!")
}

// Logout handles GET /logout: the token is invalidated client-side by
// clearing the cookie.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w)
	redirectWithSuccess(w, r, h.Flashes, auth.LoginPath, "You have logged out.")
}

// Dashboard handles GET /dashboard for any authenticated user.
func (h AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := auth.IdentityFromContext(ctx)
	if !identity.LoggedIn() {
		redirectWithError(w, r, h.Flashes, auth.LoginPath, "Please login to continue")
		return
	}

	respondJSON(ctx, w, http.StatusOK, profileResponse{
		ID:          identity.User.ID,
		Name:        identity.User.Name,
		Email:       identity.User.Email,
		Role:        identity.User.Role,
		HasNewVideo: identity.User.Notification.HasNewVideo,
	})
}

type profileResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	HasNewVideo bool        `json:"hasNewVideo"`
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func (h AuthHandler) ttl() time.Duration {
	if h.TokenTTL > 0 {
		return h.TokenTTL
	}
	return time.Hour
}
