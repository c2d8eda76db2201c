// Package editor holds the top-level document the rich-text engine edits
// and the keymap of the editing surface.
package editor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rcliao/cardfolio/internal/model"
)

// ErrBlockNotFound is returned when an update targets a block id that is not
// in the document.
var ErrBlockNotFound = errors.New("block not found")

// ChangeKind describes what kind of edit produced a change event.
type ChangeKind string

const (
	ChangeReplace ChangeKind = "replace"
	ChangeUpdate  ChangeKind = "update"
	ChangeInsert  ChangeKind = "insert"
)

// Change is delivered to subscribers after every edit.
type Change struct {
	Kind     ChangeKind
	BlockIDs []string
}

// Document is the editing engine's contract: read the blocks, replace them,
// edit one block in place, insert blocks, and observe edits.
type Document interface {
	Blocks() []model.Block
	ReplaceBlocks(blocks []model.Block)
	UpdateBlock(id string, update func(model.Block) model.Block) error
	InsertBlocks(blocks []model.Block, afterID string) error
	Subscribe(fn func(Change)) (unsubscribe func())
}

// MemDocument is an in-memory Document safe for concurrent use. Top-level
// blocks without an id are assigned one.
type MemDocument struct {
	mu      sync.RWMutex
	blocks  []model.Block
	prepare func(model.Block) model.Block

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Change)
}

// Option configures a MemDocument.
type Option func(*MemDocument)

// WithPrepare runs fn on every top-level block entering the document through
// NewMemDocument, ReplaceBlocks or InsertBlocks.
func WithPrepare(fn func(model.Block) model.Block) Option {
	return func(d *MemDocument) { d.prepare = fn }
}

// NewMemDocument returns a document holding a copy of blocks.
func NewMemDocument(blocks []model.Block, opts ...Option) *MemDocument {
	d := &MemDocument{subs: make(map[int]func(Change))}
	for _, opt := range opts {
		opt(d)
	}
	d.blocks = d.admit(blocks)
	if d.blocks == nil {
		d.blocks = []model.Block{}
	}
	return d
}

// admit copies incoming blocks, assigns missing ids and runs the prepare hook.
func (d *MemDocument) admit(blocks []model.Block) []model.Block {
	out := model.CloneBlocks(blocks)
	for i := range out {
		if d.prepare != nil {
			out[i] = d.prepare(out[i])
		}
		if out[i].ID == "" {
			out[i].ID = uuid.New().String()
		}
	}
	return out
}

func ids(blocks []model.Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.ID
	}
	return out
}

// Blocks returns a deep copy of the current top-level blocks.
func (d *MemDocument) Blocks() []model.Block {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := model.CloneBlocks(d.blocks)
	if out == nil {
		out = []model.Block{}
	}
	return out
}

// ReplaceBlocks swaps the whole document.
func (d *MemDocument) ReplaceBlocks(blocks []model.Block) {
	next := d.admit(blocks)
	if next == nil {
		next = []model.Block{}
	}
	d.mu.Lock()
	d.blocks = next
	d.mu.Unlock()
	d.emit(Change{Kind: ChangeReplace, BlockIDs: ids(next)})
}

// UpdateBlock applies update to the top-level block with the given id. The
// block keeps its id whatever update returns.
func (d *MemDocument) UpdateBlock(id string, update func(model.Block) model.Block) error {
	d.mu.Lock()
	idx := -1
	for i := range d.blocks {
		if d.blocks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.mu.Unlock()
		return fmt.Errorf("update block %s: %w", id, ErrBlockNotFound)
	}
	next := update(d.blocks[idx].Clone())
	next.ID = id
	d.blocks[idx] = next
	d.mu.Unlock()

	d.emit(Change{Kind: ChangeUpdate, BlockIDs: []string{id}})
	return nil
}

// InsertBlocks inserts blocks after the block with id afterID, or appends
// them when afterID is empty.
func (d *MemDocument) InsertBlocks(blocks []model.Block, afterID string) error {
	ins := d.admit(blocks)
	if len(ins) == 0 {
		return nil
	}

	d.mu.Lock()
	pos := len(d.blocks)
	if afterID != "" {
		pos = -1
		for i := range d.blocks {
			if d.blocks[i].ID == afterID {
				pos = i + 1
				break
			}
		}
		if pos < 0 {
			d.mu.Unlock()
			return fmt.Errorf("insert after %s: %w", afterID, ErrBlockNotFound)
		}
	}
	next := make([]model.Block, 0, len(d.blocks)+len(ins))
	next = append(next, d.blocks[:pos]...)
	next = append(next, ins...)
	next = append(next, d.blocks[pos:]...)
	d.blocks = next
	d.mu.Unlock()

	d.emit(Change{Kind: ChangeInsert, BlockIDs: ids(ins)})
	return nil
}

// Block returns a copy of the top-level block with the given id.
func (d *MemDocument) Block(id string) (model.Block, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, b := range d.blocks {
		if b.ID == id {
			return b.Clone(), true
		}
	}
	return model.Block{}, false
}

// Subscribe registers fn for change events. Listeners run synchronously on
// the editing goroutine, after the document lock is released.
func (d *MemDocument) Subscribe(fn func(Change)) func() {
	d.subMu.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	d.subMu.Unlock()

	return func() {
		d.subMu.Lock()
		delete(d.subs, id)
		d.subMu.Unlock()
	}
}

func (d *MemDocument) emit(c Change) {
	d.subMu.Lock()
	fns := make([]func(Change), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
