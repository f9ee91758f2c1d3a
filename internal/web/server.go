package web

import (
	"net/http"

	"mwiki/internal/config"
	"mwiki/internal/wiki"
)

type Server struct {
	cfg     config.Config
	wiki    *wiki.Wiki
	mux     *http.ServeMux
	views   *Templates
	auth    *Auth
	flashes *flashStore
}

func NewServer(cfg config.Config, w *wiki.Wiki) (*Server, error) {
	auth, err := newAuth(cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     cfg,
		wiki:    w,
		mux:     http.NewServeMux(),
		views:   MustParseTemplates(),
		auth:    auth,
		flashes: newFlashStore(),
	}
	s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.auth != nil {
		h = s.auth.Middleware(h)
	}
	return withRequestLog(h)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleHome)
	s.mux.HandleFunc("GET /index/{$}", s.handleIndex)
	s.mux.HandleFunc("GET /profile/{$}", s.handleProfile)
	s.mux.HandleFunc("GET /create/{$}", s.handleCreate)
	s.mux.HandleFunc("POST /create/{$}", s.handleCreate)
	s.mux.HandleFunc("GET /edit/{url...}", s.handleEdit)
	s.mux.HandleFunc("POST /edit/{url...}", s.handleEdit)
	s.mux.HandleFunc("POST /save/{url...}", s.handleSave)
	s.mux.HandleFunc("POST /preview/{$}", s.handlePreview)
	s.mux.HandleFunc("GET /move/{url...}", s.handleMove)
	s.mux.HandleFunc("POST /move/{url...}", s.handleMove)
	s.mux.HandleFunc("GET /delete/{url...}", s.handleDelete)
	s.mux.HandleFunc("GET /tags/{$}", s.handleTags)
	s.mux.HandleFunc("GET /tag/{name}/{$}", s.handleTag)
	s.mux.HandleFunc("GET /search/{$}", s.handleSearch)
	s.mux.HandleFunc("POST /search/{$}", s.handleSearch)
	s.mux.HandleFunc("GET /{url...}", s.handleDisplay)
}
