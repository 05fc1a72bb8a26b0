package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tutorhub/backend/internal/auth"
	"github.com/tutorhub/backend/internal/flash"
	"github.com/tutorhub/backend/internal/models"
	"github.com/tutorhub/backend/internal/repositories"
)

type inMemoryUserStore struct {
	byEmail map[string]models.User
	byID    map[string]models.User
	watched map[string][]string
	flagged int
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{
		byEmail: make(map[string]models.User),
		byID:    make(map[string]models.User),
		watched: make(map[string][]string),
	}
}

func (s *inMemoryUserStore) add(user models.User) {
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	if _, exists := s.byEmail[user.Email]; exists {
		return repositories.ErrConflict
	}
	s.add(user)
	return nil
}

func (s *inMemoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) Update(_ context.Context, user models.User) error {
	if _, ok := s.byID[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.add(user)
	return nil
}

func (s *inMemoryUserStore) MarkNewVideoForViewers(_ context.Context, _ string) error {
	s.flagged++
	return nil
}

func (s *inMemoryUserStore) MarkWatched(_ context.Context, userID, videoID string) error {
	s.watched[userID] = append(s.watched[userID], videoID)
	return nil
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func loggedInRequest(req *http.Request, user models.User) *http.Request {
	identity := auth.Identity{User: &user}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func tokenCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.TokenCookie {
			return c
		}
	}
	return nil
}

func newAuthHandler(store *inMemoryUserStore) AuthHandler {
	return AuthHandler{
		Users:   store,
		Tokens:  auth.NewTokenService("test-secret", time.Hour),
		Flashes: flash.NewStore("test-secret"),
	}
}

func TestRegisterCreatesHashedViewer(t *testing.T) {
	store := newInMemoryUserStore()
	handler := newAuthHandler(store)

	rec := httptest.NewRecorder()
	handler.Register(rec, formRequest("/register", url.Values{
		"name":     {"Ada"},
		"email":    {"ada@example.com"},
		"password": {"supersafe"},
	}))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != auth.LoginPath {
		t.Fatalf("expected redirect to login got %s", got)
	}

	stored, err := store.FindByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if stored.Role != models.RoleViewer {
		t.Fatalf("expected viewer role got %s", stored.Role)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("supersafe")) != nil {
		t.Fatal("stored password is not hashed")
	}
}

func TestRegisterIgnoresSubmittedRole(t *testing.T) {
	store := newInMemoryUserStore()
	handler := newAuthHandler(store)

	rec := httptest.NewRecorder()
	handler.Register(rec, formRequest("/register", url.Values{
		"name":     {"Vic"},
		"email":    {"vic@example.com"},
		"password": {"supersafe"},
		"role":     {"tutor"},
	}))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect got %d", rec.Code)
	}

	stored, err := store.FindByEmail(context.Background(), "vic@example.com")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if stored.Role != models.RoleViewer {
		t.Fatalf("self-registration must not grant tutor, got %s", stored.Role)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	store := newInMemoryUserStore()
	handler := newAuthHandler(store)

	rec := httptest.NewRecorder()
	handler.Register(rec, formRequest("/register", url.Values{
		"name":     {"Ada"},
		"email":    {"ada@example.com"},
		"password": {"short"},
	}))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/register" {
		t.Fatalf("expected redirect back to register got %s", got)
	}
	if _, err := store.FindByEmail(context.Background(), "ada@example.com"); err == nil {
		t.Fatal("user must not be created")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	store := newInMemoryUserStore()
	store.add(models.User{ID: "u1", Email: "ada@example.com", Role: models.RoleViewer})
	handler := newAuthHandler(store)

	rec := httptest.NewRecorder()
	handler.Register(rec, formRequest("/register", url.Values{
		"name":     {"Ada"},
		"email":    {"ada@example.com"},
		"password": {"supersafe"},
	}))

	if got := rec.Header().Get("Location"); got != "/register" {
		t.Fatalf("expected redirect back to register got %s", got)
	}
}

func TestLoginSetsCookieAndRedirectsByRole(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	cases := []struct {
		role    models.Role
		landing string
	}{
		{models.RoleViewer, auth.ViewerLanding},
		{models.RoleTutor, auth.TutorLanding},
	}

	for _, tc := range cases {
		store := newInMemoryUserStore()
		store.add(models.User{ID: "u1", Email: "login@example.com", PasswordHash: string(hashed), Role: tc.role})
		handler := newAuthHandler(store)

		rec := httptest.NewRecorder()
		handler.Login(rec, formRequest("/login", url.Values{
			"email":    {"login@example.com"},
			"password": {"password123"},
		}))

		if rec.Code != http.StatusSeeOther {
			t.Fatalf("role %s: expected redirect got %d", tc.role, rec.Code)
		}
		if got := rec.Header().Get("Location"); got != tc.landing {
			t.Fatalf("role %s: expected landing %s got %s", tc.role, tc.landing, got)
		}

		cookie := tokenCookie(rec)
		if cookie == nil || cookie.Value == "" {
			t.Fatalf("role %s: expected token cookie to be set", tc.role)
		}
		if !cookie.HttpOnly {
			t.Fatalf("role %s: token cookie must be http only", tc.role)
		}
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	store := newInMemoryUserStore()
	store.add(models.User{ID: "u1", Email: "login@example.com", PasswordHash: string(hashed), Role: models.RoleViewer})
	handler := newAuthHandler(store)

	rec := httptest.NewRecorder()
	handler.Login(rec, formRequest("/login", url.Values{
		"email":    {"login@example.com"},
		"password": {"wrong"},
	}))

	if got := rec.Header().Get("Location"); got != auth.LoginPath {
		t.Fatalf("expected redirect back to login got %s", got)
	}
	if tokenCookie(rec) != nil {
		t.Fatal("no token cookie may be issued on failure")
	}
}

func TestLoginUnknownEmailLooksLikeWrongPassword(t *testing.T) {
	handler := newAuthHandler(newInMemoryUserStore())

	rec := httptest.NewRecorder()
	handler.Login(rec, formRequest("/login", url.Values{
		"email":    {"ghost@example.com"},
		"password": {"password123"},
	}))

	if got := rec.Header().Get("Location"); got != auth.LoginPath {
		t.Fatalf("expected redirect back to login got %s", got)
	}
	if tokenCookie(rec) != nil {
		t.Fatal("no token cookie may be issued for unknown accounts")
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func TestLoginRateLimited(t *testing.T) {
	handler := newAuthHandler(newInMemoryUserStore())
	handler.Limiter = denyAllLimiter{}

	rec := httptest.NewRecorder()
	handler.Login(rec, formRequest("/login", url.Values{
		"email":    {"login@example.com"},
		"password": {"password123"},
	}))

	if got := rec.Header().Get("Location"); got != auth.LoginPath {
		t.Fatalf("expected redirect back to login got %s", got)
	}
	if tokenCookie(rec) != nil {
		t.Fatal("no token cookie may be issued when rate limited")
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	handler := newAuthHandler(newInMemoryUserStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	handler.Logout(rec, loggedInRequest(req, models.User{ID: "u1", Role: models.RoleViewer}))

	cookie := tokenCookie(rec)
	if cookie == nil {
		t.Fatal("expected token cookie to be rewritten")
	}
	if cookie.Value != "" || cookie.MaxAge != -1 {
		t.Fatalf("expected cleared cookie, got value=%q maxAge=%d", cookie.Value, cookie.MaxAge)
	}
	if got := rec.Header().Get("Location"); got != auth.LoginPath {
		t.Fatalf("expected redirect to login got %s", got)
	}
}
