package cardsession

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/cardfolio/internal/card"
	"github.com/rcliao/cardfolio/internal/editor"
	"github.com/rcliao/cardfolio/internal/model"
)

var (
	// ErrSessionNotFound is returned for an unknown or expired session id.
	ErrSessionNotFound = errors.New("card session not found")
	// ErrCardNotFound is returned when no card block has the requested id.
	ErrCardNotFound = errors.New("card not found")
)

// Manager tracks the open sessions on one document. Idle sessions are
// closed and evicted by Cleanup; when full, the least recently used
// session is evicted to make room.
type Manager struct {
	doc     editor.Document
	adapter *card.Adapter
	opts    Options
	log     zerolog.Logger

	mu          sync.Mutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
}

// NewManager creates a manager for doc.
func NewManager(doc editor.Document, adapter *card.Adapter, maxSessions int, ttl time.Duration, opts Options) *Manager {
	if maxSessions <= 0 {
		maxSessions = 16
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		doc:         doc,
		adapter:     adapter,
		opts:        opts,
		log:         opts.Log,
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
	}
}

// FindCard returns the last top-level card block whose id property is cardID.
func FindCard(blocks []model.Block, cardID string) (model.Block, bool) {
	var found model.Block
	ok := false
	for _, b := range blocks {
		if pc, isCard := b.Variant().(model.ProjectCard); isCard && pc.Props.ID == cardID {
			found, ok = b, true
		}
	}
	return found, ok
}

// Open starts a session on the card with the given id.
func (m *Manager) Open(cardID string) (*Session, error) {
	b, ok := FindCard(m.doc.Blocks(), cardID)
	if !ok {
		return nil, fmt.Errorf("open %s: %w", cardID, ErrCardNotFound)
	}
	d := m.adapter.Deserialize(model.CardPropsFrom(b))
	s := Open(d, b.ID, BlockUpdater(m.doc, m.adapter, b.ID), m.opts)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	if len(m.sessions) >= m.maxSessions {
		var oldest *Session
		for _, cand := range m.sessions {
			if oldest == nil || cand.idleSince().Before(oldest.idleSince()) {
				oldest = cand
			}
		}
		oldest.finish()
		delete(m.sessions, oldest.ID())
		m.log.Warn().Str("session", oldest.ID()).Msg("evicted card session at capacity")
	}
	m.sessions[s.ID()] = s
	return s, nil
}

// Get returns an open session and marks it used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.State() == StateClosed {
		delete(m.sessions, id)
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	s.touch()
	return s, nil
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Cleanup drops closed sessions and closes those idle longer than the TTL.
// Unsaved changes in an expired session are discarded.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()
	if m.ttl <= 0 {
		return
	}
	cutoff := m.opts.Now().Add(-m.ttl)
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			if s.Dirty() {
				m.log.Warn().Str("session", id).Msg("discarding unsaved card session on expiry")
			}
			s.finish()
			delete(m.sessions, id)
		}
	}
}

func (m *Manager) pruneLocked() {
	for id, s := range m.sessions {
		if s.State() == StateClosed {
			delete(m.sessions, id)
		}
	}
}

// CloseAll closes every session without confirmation.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.finish()
		delete(m.sessions, id)
	}
}

// StartCleanup starts a background cleanup goroutine and returns a stop function.
func (m *Manager) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				m.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}
