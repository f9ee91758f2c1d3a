package web

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"mwiki/internal/auth"
	"mwiki/internal/config"
)

type authEntry struct {
	plain string
	hash  *auth.Hash
}

type Auth struct {
	users   map[string]authEntry
	private bool
}

func newAuth(cfg config.Config) (*Auth, error) {
	users := make(map[string]authEntry)

	if cfg.AuthFile != "" {
		fileUsers, err := auth.LoadFile(cfg.AuthFile)
		if err != nil {
			return nil, err
		}
		for user, hash := range fileUsers {
			users[user] = authEntry{hash: hash}
		}
	}

	if cfg.AuthUser != "" || cfg.AuthPass != "" {
		if cfg.AuthUser == "" || cfg.AuthPass == "" {
			return nil, errors.New("WIKI_AUTH_USER and WIKI_AUTH_PASS must be set together")
		}
		users[cfg.AuthUser] = authEntry{plain: cfg.AuthPass}
	}

	if len(users) == 0 {
		if cfg.Private {
			return nil, errors.New("WIKI_PRIVATE requires WIKI_AUTH_FILE or WIKI_AUTH_USER")
		}
		return nil, nil
	}

	return &Auth{users: users, private: cfg.Private}, nil
}

// Middleware resolves basic auth credentials into the request identity.
// Anonymous requests pass through unless the wiki is private.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok && !a.private {
			next.ServeHTTP(w, r)
			return
		}
		if !ok || !a.verify(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="mwiki"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := WithUser(r.Context(), User{Name: user, Authenticated: true})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) verify(user, pass string) bool {
	entry, ok := a.users[user]
	if !ok {
		return false
	}
	if entry.hash != nil {
		return entry.hash.Verify(pass)
	}
	return subtle.ConstantTimeCompare([]byte(entry.plain), []byte(pass)) == 1
}
