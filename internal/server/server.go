// Package server exposes the document, card sessions, the remote save
// endpoint and the change event stream over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/rcliao/cardfolio/internal/card"
	"github.com/rcliao/cardfolio/internal/cardsession"
	"github.com/rcliao/cardfolio/internal/editor"
	"github.com/rcliao/cardfolio/internal/notify"
	"github.com/rcliao/cardfolio/internal/persist"
	"github.com/rcliao/cardfolio/internal/render"
	"github.com/rcliao/cardfolio/internal/store"
)

// maxBodySize bounds every request body.
const maxBodySize = 10 << 20

// Option configures optional Server behavior.
type Option func(*Server)

// WithLogger sets the request and handler logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithHub streams notifications and saved content to /api/events clients.
func WithHub(h *notify.Hub) Option {
	return func(s *Server) { s.hub = h }
}

// WithRenderer sets the HTML renderer used for previews and the portfolio page.
func WithRenderer(r *render.Renderer) Option {
	return func(s *Server) { s.renderer = r }
}

// WithAdapter sets the card adapter.
func WithAdapter(a *card.Adapter) Option {
	return func(s *Server) { s.adapter = a }
}

// WithTitle sets the portfolio page title.
func WithTitle(title string) Option {
	return func(s *Server) { s.title = title }
}

// WithClock overrides the time source for savedAt stamps and previews.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server holds the router and everything the handlers reach.
type Server struct {
	router   chi.Router
	doc      editor.Document
	ctl      *persist.Controller
	sessions *cardsession.Manager
	repo     store.Repository
	adapter  *card.Adapter
	renderer *render.Renderer
	hub      *notify.Hub
	log      zerolog.Logger
	title    string
	now      func() time.Time
}

// New wires the routes. repo backs the save-content endpoint; the other
// dependencies serve the editor API.
func New(doc editor.Document, ctl *persist.Controller, sessions *cardsession.Manager, repo store.Repository, opts ...Option) (*Server, error) {
	s := &Server{
		doc:      doc,
		ctl:      ctl,
		sessions: sessions,
		repo:     repo,
		log:      zerolog.Nop(),
		title:    "Portfolio",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.adapter == nil {
		s.adapter = card.NewAdapter(s.log)
	}
	if s.renderer == nil {
		r, err := render.New()
		if err != nil {
			return nil, err
		}
		s.renderer = r
	}
	if s.hub != nil {
		ctl.OnContentChange(s.hub.ContentSaved)
	}

	r := chi.NewRouter()
	r.Use(requestLogger(s.log))

	// Remote save endpoint
	r.HandleFunc("/api/save-content", s.handleSaveContent)
	r.Get("/api/save-content/{id}", s.handleGetContent)

	// Document
	r.Get("/api/document", s.handleGetDocument)
	r.Put("/api/document", s.handleReplaceDocument)
	r.Post("/api/document/cards", s.handleInsertCard)
	r.Post("/api/save", s.handleSave)
	r.Get("/api/export", s.handleExport)
	r.Post("/api/import", s.handleImport)
	r.Post("/api/keys", s.handleKey)
	r.Get("/api/schema", s.handleSchema)

	// Cards and their editing sessions
	r.Get("/api/cards", s.handleListCards)
	r.Get("/api/cards/{id}/preview", s.handleCardPreview)
	r.Post("/api/cards/{id}/sessions", s.handleOpenSession)
	r.Get("/api/sessions/{sid}", s.handleGetSession)
	r.Patch("/api/sessions/{sid}", s.handleEditSession)
	r.Post("/api/sessions/{sid}/save", s.handleSaveSession)
	r.Post("/api/sessions/{sid}/close", s.handleCloseSession)
	r.Post("/api/sessions/{sid}/keys", s.handleSessionKey)

	r.Get("/api/events", s.handleEvents)
	r.Get("/portfolio", s.handlePortfolio)

	s.router = r
	return s, nil
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
