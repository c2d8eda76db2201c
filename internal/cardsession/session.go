// Package cardsession implements the nested editing session opened on one
// project card: its change tracking, save with preview derivation, and the
// confirm-before-discard close.
package cardsession

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rcliao/cardfolio/internal/card"
	"github.com/rcliao/cardfolio/internal/editor"
	"github.com/rcliao/cardfolio/internal/model"
	"github.com/rcliao/cardfolio/internal/notify"
)

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("card session closed")
	// ErrBusy is returned when editing a session that is saving.
	ErrBusy = errors.New("card session is saving")
)

const (
	// Placeholder seeds the nested document of a card with no content.
	Placeholder = "Start writing your project details..."
	// DefaultCloseDelay is how long a saved session stays open.
	DefaultCloseDelay = 500 * time.Millisecond

	MsgSaved      = "Project saved successfully!"
	MsgSaveFailed = "Failed to save project"
)

// State is the lifecycle state of a session.
type State int

const (
	StateClosed State = iota
	StateEditing
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	default:
		return "closed"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UpdateFunc writes saved card data back to wherever the card came from.
type UpdateFunc func(ctx context.Context, d model.ProjectCardData) error

// Options configure a session.
type Options struct {
	CloseDelay time.Duration
	Notifier   notify.Notifier
	Log        zerolog.Logger
	Now        func() time.Time
}

// Session edits one card.
type Session struct {
	id      string
	blockID string
	update  UpdateFunc

	notifier   notify.Notifier
	log        zerolog.Logger
	now        func() time.Time
	closeDelay time.Duration

	mu         sync.Mutex
	state      State
	card       model.ProjectCardData
	title      string
	content    []model.Block
	dirty      bool
	lastAccess time.Time
	closeTimer *time.Timer
	done       chan struct{}
}

// View is a point-in-time copy of a session.
type View struct {
	ID         string                `json:"id"`
	BlockID    string                `json:"blockId"`
	State      State                 `json:"state"`
	Dirty      bool                  `json:"hasChanges"`
	Title      string                `json:"title"`
	Content    []model.Block         `json:"content"`
	Card       model.ProjectCardData `json:"card"`
	LastAccess time.Time             `json:"lastAccess"`
}

// Open starts editing d. blockID names the originating block and is only
// reported back in views.
func Open(d model.ProjectCardData, blockID string, update UpdateFunc, opts Options) *Session {
	s := &Session{
		id:         uuid.New().String(),
		blockID:    blockID,
		update:     update,
		notifier:   opts.Notifier,
		log:        opts.Log,
		now:        opts.Now,
		closeDelay: opts.CloseDelay,
		state:      StateEditing,
		card:       d,
		title:      d.Title,
		done:       make(chan struct{}),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.closeDelay < 0 {
		s.closeDelay = 0
	}
	if len(d.Content) == 0 {
		s.content = []model.Block{model.NewParagraph(Placeholder)}
	} else {
		s.content = model.CloneBlocks(d.Content)
	}
	s.lastAccess = s.now()
	s.log = s.log.With().Str("session", s.id).Str("card", d.ID).Logger()
	s.log.Debug().Msg("card session opened")
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dirty reports unsaved title or content changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// View returns a copy of the session state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:         s.id,
		BlockID:    s.blockID,
		State:      s.state,
		Dirty:      s.dirty,
		Title:      s.title,
		Content:    model.CloneBlocks(s.content),
		Card:       s.card,
		LastAccess: s.lastAccess,
	}
}

func (s *Session) editable() error {
	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateSaving:
		return ErrBusy
	}
	s.lastAccess = s.now()
	return nil
}

// SetTitle changes the working title.
func (s *Session) SetTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.title = title
	s.dirty = true
	return nil
}

// SetContent replaces the working nested document.
func (s *Session) SetContent(blocks []model.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.content = model.CloneBlocks(blocks)
	if s.content == nil {
		s.content = []model.Block{}
	}
	s.dirty = true
	return nil
}

// Save writes the working title and content back through the update
// callback and closes the session after the close delay. Saving with no
// changes does nothing.
func (s *Session) Save(ctx context.Context) (model.ProjectCardData, error) {
	s.mu.Lock()
	if err := s.editable(); err != nil {
		s.mu.Unlock()
		return model.ProjectCardData{}, err
	}
	if !s.dirty {
		d := s.card
		s.mu.Unlock()
		return d, nil
	}
	s.state = StateSaving

	next := s.card
	next.Title = strings.TrimSpace(s.title)
	if next.Title == "" {
		next.Title = model.UntitledTitle
	}
	next.Content = model.CloneBlocks(s.content)
	if img := card.FirstImage(next.Content); img != "" {
		next.PreviewImage = img
	}
	next.UpdatedAt = model.Timestamp(s.now())
	s.mu.Unlock()

	if err := s.update(ctx, next); err != nil {
		s.mu.Lock()
		if s.state == StateSaving {
			s.state = StateEditing
		}
		s.mu.Unlock()
		s.log.Error().Err(err).Msg("save card")
		notify.Send(s.notifier, notify.Error, MsgSaveFailed)
		return model.ProjectCardData{}, fmt.Errorf("save card %s: %w", next.ID, err)
	}

	s.mu.Lock()
	s.card = next
	s.title = next.Title
	s.dirty = false
	if s.closeDelay > 0 && s.state == StateSaving {
		s.closeTimer = time.AfterFunc(s.closeDelay, s.finish)
	}
	s.mu.Unlock()

	s.log.Info().Str("title", next.Title).Msg("card saved")
	notify.Send(s.notifier, notify.Success, MsgSaved)
	if s.closeDelay == 0 {
		s.finish()
	}
	return next, nil
}

// Close ends the session. With unsaved changes it asks confirm first and
// stays open unless confirm returns true; a nil confirm declines. It reports
// whether the session is closed.
func (s *Session) Close(confirm func() bool) bool {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return true
	}
	dirty := s.dirty
	s.mu.Unlock()

	if dirty && (confirm == nil || !confirm()) {
		return false
	}
	s.finish()
	return true
}

// HandleKey applies a key pressed while the session is open: Escape closes
// with confirmation, Cmd/Ctrl+S saves. Keys are ignored once closed.
func (s *Session) HandleKey(ctx context.Context, ev editor.KeyEvent, confirm func() bool) (bool, error) {
	if s.State() == StateClosed {
		return false, nil
	}
	var km editor.Keymap
	km.Bind("close", editor.KeyEvent.IsEscape, func(context.Context) error {
		s.Close(confirm)
		return nil
	})
	km.Bind("save", editor.KeyEvent.IsSave, func(ctx context.Context) error {
		_, err := s.Save(ctx)
		return err
	})
	name, err := km.Dispatch(ctx, ev)
	return name != "", err
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	if s.closeTimer != nil {
		s.closeTimer.Stop()
	}
	close(s.done)
	s.log.Debug().Msg("card session closed")
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccess = s.now()
	s.mu.Unlock()
}

// BlockUpdater returns an UpdateFunc that serializes card data and merges it
// into the properties of the top-level block blockID in doc.
func BlockUpdater(doc editor.Document, adapter *card.Adapter, blockID string) UpdateFunc {
	return func(_ context.Context, d model.ProjectCardData) error {
		props := adapter.Serialize(d).Map()
		return doc.UpdateBlock(blockID, func(b model.Block) model.Block {
			if b.Props == nil {
				b.Props = make(map[string]any, len(props))
			}
			for k, v := range props {
				b.Props[k] = v
			}
			return b
		})
	}
}
