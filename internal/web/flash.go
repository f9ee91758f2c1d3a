package web

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	flashCookie = "mwiki_session"
	flashTTL    = 5 * time.Minute
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	ID        string
	Message   string
	Kind      string
	CreatedAt time.Time
}

type flashStore struct {
	mu    sync.Mutex
	byKey map[string][]Flash
}

func newFlashStore() *flashStore {
	return &flashStore{byKey: make(map[string][]Flash)}
}

func (s *flashStore) Add(key string, flash Flash) {
	if key == "" {
		return
	}
	if flash.ID == "" {
		flash.ID = uuid.NewString()
	}
	if flash.CreatedAt.IsZero() {
		flash.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[key] = append(s.byKey[key], flash)
}

// Pop returns the pending messages for key that have not expired and forgets
// all of them.
func (s *flashStore) Pop(key string) []Flash {
	if key == "" {
		return nil
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.byKey[key]
	delete(s.byKey, key)
	var out []Flash
	for _, flash := range pending {
		if now.Sub(flash.CreatedAt) > flashTTL {
			continue
		}
		out = append(out, flash)
	}
	return out
}

// flashKey identifies the browser a flash belongs to, issuing a session
// cookie to anonymous visitors.
func flashKey(w http.ResponseWriter, r *http.Request) string {
	if name := strings.TrimSpace(Identity(r.Context())); name != "" {
		return "user:" + name
	}
	if cookie, err := r.Cookie(flashCookie); err == nil && cookie.Value != "" {
		return "session:" + cookie.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.AddCookie(&http.Cookie{Name: flashCookie, Value: id})
	return "session:" + id
}

func (s *Server) flash(w http.ResponseWriter, r *http.Request, kind, message string) {
	s.flashes.Add(flashKey(w, r), Flash{Kind: kind, Message: message})
}
