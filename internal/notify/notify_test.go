package notify

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/cardfolio/internal/model"
)

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()

	Send(h, Success, "Content saved successfully!")
	h.ContentSaved(model.EditorContent{Blocks: []model.Block{model.NewParagraph("x")}})

	for _, ch := range []<-chan Event{a, b} {
		ev := <-ch
		require.Equal(t, EventNotification, ev.Kind)
		assert.Equal(t, "Content saved successfully!", ev.Notification.Message)
		ev = <-ch
		require.Equal(t, EventContent, ev.Kind)
		assert.Len(t, ev.Content.Blocks, 1)
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	for i := 0; i < 100; i++ {
		Send(h, Info, "tick")
	}
	assert.Len(t, ch, 64)
}

func TestHubUnsubscribeAndClose(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)

	other := h.Subscribe()
	h.Close()
	_, ok = <-other
	assert.False(t, ok)

	// no panic after close
	Send(h, Info, "late")
	late := h.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestLogNotifierAndMulti(t *testing.T) {
	var buf bytes.Buffer
	rec := &Recorder{}
	n := Multi{LogNotifier{Log: zerolog.New(&buf)}, rec, nil}

	Send(n, Error, "Failed to save content")

	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "Failed to save content")
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, Error, last.Level)
	assert.Equal(t, []string{"Failed to save content"}, rec.Messages())
}

func TestSendNil(t *testing.T) {
	assert.NotPanics(t, func() { Send(nil, Info, "x") })
}
