// Package persist saves, restores, imports and exports the top-level
// document, and runs the periodic autosave.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/rcliao/cardfolio/internal/card"
	"github.com/rcliao/cardfolio/internal/editor"
	"github.com/rcliao/cardfolio/internal/model"
	"github.com/rcliao/cardfolio/internal/notify"
	"github.com/rcliao/cardfolio/internal/remote"
	"github.com/rcliao/cardfolio/internal/store"
)

const (
	// StorageKey is the local store key holding the last saved snapshot.
	StorageKey = "blocknote-portfolio-content"
	// DefaultAutosaveInterval is how often autosave checks for changes.
	DefaultAutosaveInterval = 30 * time.Second
	// MaxImportSize bounds the size of an import file.
	MaxImportSize = 10 << 20
)

// ErrInvalidImport is returned when an import file is not JSON or has no
// blocks array.
var ErrInvalidImport = errors.New("invalid import file")

// User-facing messages.
const (
	MsgSaved         = "Content saved successfully!"
	MsgSaveFailed    = "Failed to save content"
	MsgRestored      = "Content restored from previous session"
	MsgRestoreFailed = "Failed to restore previous content"
	MsgExported      = "Content exported successfully!"
	MsgExportFailed  = "Failed to export content"
	MsgImported      = "Content imported successfully!"
	MsgInvalidFormat = "Invalid file format"
	MsgImportFailed  = "Failed to import content"
)

// Options tune a Controller. Zero values pick the defaults.
type Options struct {
	StorageKey       string
	AutosaveInterval time.Duration
	Adapter          *card.Adapter
	Now              func() time.Time
	NewID            func() string
}

// Controller owns persistence for one document session.
type Controller struct {
	doc      editor.Document
	local    store.LocalStore
	remote   remote.Saver
	notifier notify.Notifier
	adapter  *card.Adapter
	log      zerolog.Logger

	key      string
	interval time.Duration
	now      func() time.Time
	newID    func() string

	group    singleflight.Group
	inFlight atomic.Bool

	mu        sync.Mutex
	sessionID string
	gen       uint64
	savedGen  uint64
	observers []func(model.EditorContent)

	keymap      editor.Keymap
	unsubscribe func()
}

// New builds a controller for doc. rem may be nil to skip the remote call.
func New(doc editor.Document, local store.LocalStore, rem remote.Saver, n notify.Notifier, log zerolog.Logger, opts Options) *Controller {
	c := &Controller{
		doc:      doc,
		local:    local,
		remote:   rem,
		notifier: n,
		adapter:  opts.Adapter,
		log:      log,
		key:      opts.StorageKey,
		interval: opts.AutosaveInterval,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if c.key == "" {
		c.key = StorageKey
	}
	if c.interval <= 0 {
		c.interval = DefaultAutosaveInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = func() string { return uuid.New().String() }
	}
	if c.adapter == nil {
		c.adapter = card.NewAdapter(log, card.WithClock(c.now))
	}

	c.keymap.Bind("save", editor.KeyEvent.IsSave, func(ctx context.Context) error {
		_, err := c.Save(ctx)
		return err
	})
	c.unsubscribe = doc.Subscribe(func(editor.Change) { c.markDirty() })
	return c
}

// Adapter returns the card adapter used to build the card index.
func (c *Controller) Adapter() *card.Adapter {
	return c.adapter
}

// Close stops tracking document changes.
func (c *Controller) Close() {
	c.unsubscribe()
}

func (c *Controller) markDirty() {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
}

// Dirty reports whether the document has changes not yet saved.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen != c.savedGen
}

// SessionID returns the snapshot id, or "" before the first save or restore.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Saving reports whether a save is in flight.
func (c *Controller) Saving() bool {
	return c.inFlight.Load()
}

// OnContentChange registers fn to receive the content of every successful save.
func (c *Controller) OnContentChange(fn func(model.EditorContent)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// Content returns the current blocks with their card index.
func (c *Controller) Content() model.EditorContent {
	blocks := c.doc.Blocks()
	return model.EditorContent{Blocks: blocks, ProjectCards: c.adapter.Index(blocks)}
}

// Save writes the document to the local store, then offers it to the remote
// saver. Only the local write decides success. Calls that overlap an
// in-flight save wait for it and share its result.
func (c *Controller) Save(ctx context.Context) (*model.SavedContent, error) {
	v, err, shared := c.group.Do("save", func() (interface{}, error) {
		c.inFlight.Store(true)
		defer c.inFlight.Store(false)
		return c.save(ctx)
	})
	if shared {
		c.log.Debug().Msg("save coalesced with in-flight save")
	}
	if err != nil {
		return nil, err
	}
	snap := *v.(*model.SavedContent)
	return &snap, nil
}

func (c *Controller) save(ctx context.Context) (*model.SavedContent, error) {
	c.mu.Lock()
	gen := c.gen
	id := c.sessionID
	c.mu.Unlock()
	if id == "" {
		id = c.newID()
	}

	snap := &model.SavedContent{
		ID:      id,
		Content: c.Content(),
		SavedAt: model.Timestamp(c.now()),
	}
	data, err := snap.Encode()
	if err != nil {
		c.log.Error().Err(err).Msg("encode snapshot")
		notify.Send(c.notifier, notify.Error, MsgSaveFailed)
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.local.SetItem(ctx, c.key, data); err != nil {
		c.log.Error().Err(err).Str("key", c.key).Msg("local save failed")
		notify.Send(c.notifier, notify.Error, MsgSaveFailed)
		return nil, fmt.Errorf("save content: %w", err)
	}

	if c.remote != nil {
		if _, err := c.remote.SaveContent(ctx, *snap); err != nil {
			c.log.Warn().Err(err).Str("id", id).Msg("remote save failed")
		}
	}

	c.mu.Lock()
	c.sessionID = id
	c.savedGen = gen
	observers := append([]func(model.EditorContent){}, c.observers...)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(snap.Content)
	}
	c.log.Info().Str("id", id).Int("blocks", len(snap.Content.Blocks)).
		Int("cards", len(snap.Content.ProjectCards)).Msg("content saved")
	notify.Send(c.notifier, notify.Success, MsgSaved)
	return snap, nil
}

type storedSnapshot struct {
	ID      string `json:"id"`
	Content struct {
		Blocks *[]model.Block `json:"blocks"`
	} `json:"content"`
}

// Load restores the last saved snapshot into the document. It reports
// whether anything was restored; bad or missing data leaves the document as
// it is.
func (c *Controller) Load(ctx context.Context) bool {
	raw, ok, err := c.local.GetItem(ctx, c.key)
	if err != nil {
		c.log.Warn().Err(err).Msg("read saved content")
		notify.Send(c.notifier, notify.Error, MsgRestoreFailed)
		return false
	}
	if !ok {
		return false
	}

	var saved storedSnapshot
	if err := json.Unmarshal([]byte(raw), &saved); err != nil || saved.Content.Blocks == nil {
		if err == nil {
			err = errors.New("missing content.blocks")
		}
		c.log.Warn().Err(err).Msg("saved content is invalid, starting empty")
		notify.Send(c.notifier, notify.Error, MsgRestoreFailed)
		return false
	}

	c.doc.ReplaceBlocks(*saved.Content.Blocks)

	c.mu.Lock()
	if saved.ID != "" {
		c.sessionID = saved.ID
	}
	c.savedGen = c.gen
	c.mu.Unlock()

	c.log.Info().Str("id", saved.ID).Int("blocks", len(*saved.Content.Blocks)).Msg("content restored")
	notify.Send(c.notifier, notify.Success, MsgRestored)
	return true
}

// ExportFileName returns the download name for an export made at t.
func ExportFileName(t time.Time) string {
	return fmt.Sprintf("portfolio-export-%d.json", t.UnixMilli())
}

// Export renders the document as an indented export file and returns its
// suggested file name.
func (c *Controller) Export(ctx context.Context) (string, []byte, error) {
	now := c.now()
	content := c.Content()
	file := model.ExportFile{
		Blocks:       content.Blocks,
		ProjectCards: content.ProjectCards,
		ExportedAt:   model.Timestamp(now),
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		c.log.Error().Err(err).Msg("export content")
		notify.Send(c.notifier, notify.Error, MsgExportFailed)
		return "", nil, fmt.Errorf("export content: %w", err)
	}
	notify.Send(c.notifier, notify.Success, MsgExported)
	return ExportFileName(now), data, nil
}

// Import replaces the document with the blocks of an export file. Nothing is
// applied unless the whole file decodes.
func (c *Controller) Import(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, MaxImportSize+1))
	if err != nil {
		c.log.Error().Err(err).Msg("read import file")
		notify.Send(c.notifier, notify.Error, MsgImportFailed)
		return fmt.Errorf("read import: %w", err)
	}
	if len(data) > MaxImportSize {
		notify.Send(c.notifier, notify.Error, MsgImportFailed)
		return fmt.Errorf("%w: larger than %d bytes", ErrInvalidImport, MaxImportSize)
	}

	blocks, err := ParseImport(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("rejected import file")
		if errors.Is(err, errNotJSON) {
			notify.Send(c.notifier, notify.Error, MsgImportFailed)
		} else {
			notify.Send(c.notifier, notify.Error, MsgInvalidFormat)
		}
		return err
	}

	c.doc.ReplaceBlocks(blocks)
	c.markDirty()
	c.log.Info().Int("blocks", len(blocks)).Msg("content imported")
	notify.Send(c.notifier, notify.Success, MsgImported)
	return nil
}

var errNotJSON = errors.New("not JSON")

// ParseImport decodes the blocks of an import file. The file must be a JSON
// object whose blocks field is an array.
func ParseImport(data []byte) ([]model.Block, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, errNotJSON)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidImport)
	}
	raw, ok := fields["blocks"]
	if !ok {
		return nil, fmt.Errorf("%w: missing blocks", ErrInvalidImport)
	}
	var blocks []model.Block
	if err := json.Unmarshal(raw, &blocks); err != nil || blocks == nil {
		return nil, fmt.Errorf("%w: blocks is not an array of blocks", ErrInvalidImport)
	}
	return blocks, nil
}

// HandleKey runs the binding for a key pressed on the top-level surface.
func (c *Controller) HandleKey(ctx context.Context, ev editor.KeyEvent) (bool, error) {
	name, err := c.keymap.Dispatch(ctx, ev)
	return name != "", err
}

// Interval returns the autosave interval.
func (c *Controller) Interval() time.Duration {
	return c.interval
}

// RunAutosave saves on every tick that finds unsaved changes, until ctx is
// cancelled.
func (c *Controller) RunAutosave(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.autosaveTick(ctx)
		}
	}
}

// autosaveTick saves if there are unsaved changes and no save in flight. It
// reports whether a save was started.
func (c *Controller) autosaveTick(ctx context.Context) bool {
	if !c.Dirty() || c.inFlight.Load() {
		return false
	}
	if _, err := c.Save(ctx); err != nil {
		c.log.Warn().Err(err).Msg("autosave failed")
	}
	return true
}
