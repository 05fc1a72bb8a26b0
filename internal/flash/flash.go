package flash

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// Kind classifies a flash message for the presentation layer.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Message is a one-shot notification that survives a single redirect.
type Message struct {
	Kind Kind
	Text string
}

const sessionName = "tutorhub_flash"

// Store writes one-shot messages into a signed cookie session. The session
// exists only to carry flashes; no other state is kept in it.
type Store struct {
	cookies *sessions.CookieStore
}

// NewStore constructs a cookie-backed flash store signed with the secret.
func NewStore(secret string) *Store {
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cookies: cs}
}

// Success queues a success message for the next page load.
func (s *Store) Success(w http.ResponseWriter, r *http.Request, text string) error {
	return s.add(w, r, KindSuccess, text)
}

// Error queues an error message for the next page load.
func (s *Store) Error(w http.ResponseWriter, r *http.Request, text string) error {
	return s.add(w, r, KindError, text)
}

func (s *Store) add(w http.ResponseWriter, r *http.Request, kind Kind, text string) error {
	session, err := s.cookies.Get(r, sessionName)
	if err != nil {
		// A tampered cookie yields a fresh session alongside the error.
		session, _ = s.cookies.New(r, sessionName)
	}
	session.AddFlash(text, string(kind))
	return session.Save(r, w)
}

// Pop drains all queued messages, clearing the cookie. Consumed by the
// presentation layer when rendering the next page.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) []Message {
	session, err := s.cookies.Get(r, sessionName)
	if err != nil {
		return nil
	}

	var messages []Message
	for _, kind := range []Kind{KindSuccess, KindError} {
		for _, raw := range session.Flashes(string(kind)) {
			if text, ok := raw.(string); ok {
				messages = append(messages, Message{Kind: kind, Text: text})
			}
		}
	}

	_ = session.Save(r, w)
	return messages
}
