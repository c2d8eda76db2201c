package cardsession

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/cardfolio/internal/card"
	"github.com/rcliao/cardfolio/internal/editor"
	"github.com/rcliao/cardfolio/internal/model"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, maxSessions int, ttl time.Duration) (*Manager, *editor.MemDocument, *clock) {
	t.Helper()
	a := card.NewAdapter(zerolog.Nop())
	var blocks []model.Block
	for _, id := range []string{"c1", "c2", "c3"} {
		b := a.Serialize(model.ProjectCardData{ID: id, Title: "Card " + id})
		blocks = append(blocks, model.Block{ID: "blk-" + id, Type: model.TypeProjectCard, Props: b.Map()})
	}
	doc := editor.NewMemDocument(blocks)
	clk := &clock{now: fixedNow}
	m := NewManager(doc, a, maxSessions, ttl, Options{Log: zerolog.Nop(), Now: clk.Now})
	return m, doc, clk
}

func TestManagerOpenAndSave(t *testing.T) {
	m, doc, _ := newTestManager(t, 4, time.Minute)

	s, err := m.Open("c2")
	require.NoError(t, err)
	assert.Equal(t, "blk-c2", s.View().BlockID)
	assert.Equal(t, "Card c2", s.View().Title)

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	require.NoError(t, got.SetTitle("Renamed"))
	_, err = got.Save(context.Background())
	require.NoError(t, err)

	b, _ := doc.Block("blk-c2")
	assert.Equal(t, "Renamed", b.Prop("title"))
	assert.Equal(t, "c2", b.Prop("id"))

	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound, "closed sessions are dropped")
}

func TestManagerOpenUnknownCard(t *testing.T) {
	m, _, _ := newTestManager(t, 4, time.Minute)
	_, err := m.Open("nope")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestManagerEvictsLeastRecentlyUsed(t *testing.T) {
	m, _, clk := newTestManager(t, 2, time.Hour)

	first, _ := m.Open("c1")
	clk.Advance(time.Second)
	second, _ := m.Open("c2")
	clk.Advance(time.Second)
	m.Get(first.ID())
	clk.Advance(time.Second)

	_, err := m.Open("c3")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, StateClosed, second.State())
	assert.Equal(t, StateEditing, first.State())
}

func TestManagerCleanupExpiresIdle(t *testing.T) {
	m, _, clk := newTestManager(t, 4, time.Minute)

	idle, _ := m.Open("c1")
	idle.SetTitle("unsaved")
	clk.Advance(30 * time.Second)
	active, _ := m.Open("c2")
	clk.Advance(45 * time.Second)

	m.Cleanup()
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, StateClosed, idle.State())
	assert.Equal(t, StateEditing, active.State())
}

func TestManagerCloseAll(t *testing.T) {
	m, _, _ := newTestManager(t, 4, time.Minute)
	s, _ := m.Open("c1")
	m.CloseAll()
	assert.Equal(t, 0, m.Len())
	<-s.Done()
}

func TestFindCardLastWins(t *testing.T) {
	a := model.CardProps{ID: "dup", Title: "first"}
	b := model.CardProps{ID: "dup", Title: "second"}
	blocks := []model.Block{
		{ID: "1", Type: model.TypeProjectCard, Props: a.Map()},
		{ID: "2", Type: model.TypeProjectCard, Props: b.Map()},
	}
	got, ok := FindCard(blocks, "dup")
	require.True(t, ok)
	assert.Equal(t, "2", got.ID)
}
