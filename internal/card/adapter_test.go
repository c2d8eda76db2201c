package card

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/cardfolio/internal/model"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestAdapter(t *testing.T, logs *bytes.Buffer) *Adapter {
	t.Helper()
	log := zerolog.Nop()
	if logs != nil {
		log = zerolog.New(logs)
	}
	n := 0
	return NewAdapter(log,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return "gen-" + string(rune('0'+n))
		}),
	)
}

func imageBlock(url string) model.Block {
	return model.Block{Type: model.TypeImage, Props: map[string]any{"url": url}, Children: []model.Block{}}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	a := newTestAdapter(t, nil)
	d := model.ProjectCardData{
		ID:    "card-1",
		Title: "Robot arm",
		Content: []model.Block{
			model.NewParagraph("Built a robot"),
			imageBlock("https://img/arm.png"),
		},
		PreviewImage: "https://img/arm.png",
		CreatedAt:    "2024-01-01T00:00:00.000Z",
		UpdatedAt:    "2024-02-01T00:00:00.000Z",
	}

	got := a.Deserialize(a.Serialize(d))

	want, _ := json.Marshal(d)
	have, _ := json.Marshal(got)
	assert.JSONEq(t, string(want), string(have))
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, d.UpdatedAt, got.UpdatedAt)
}

func TestDeserializeDefaults(t *testing.T) {
	a := newTestAdapter(t, nil)
	d := a.Deserialize(model.CardProps{})

	assert.Equal(t, "gen-1", d.ID)
	assert.Equal(t, model.DefaultTitle, d.Title)
	assert.Empty(t, d.PreviewImage)
	assert.NotNil(t, d.Content)
	assert.Empty(t, d.Content)
	assert.Equal(t, "2024-05-01T12:00:00.000Z", d.CreatedAt)
	assert.Equal(t, d.CreatedAt, d.UpdatedAt)
}

func TestDeserializeMalformedContentDegrades(t *testing.T) {
	var logs bytes.Buffer
	a := newTestAdapter(t, &logs)

	d := a.Deserialize(model.CardProps{ID: "c", Title: "T", EditorContent: "{not json"})

	assert.Equal(t, "c", d.ID)
	assert.Equal(t, "T", d.Title)
	assert.Empty(t, d.Content)
	assert.Contains(t, logs.String(), "not valid JSON")
}

func TestSerializeNilContent(t *testing.T) {
	a := newTestAdapter(t, nil)
	p := a.Serialize(model.ProjectCardData{ID: "c"})
	assert.Equal(t, model.EmptyContent, p.EditorContent)
}

func TestNewBlock(t *testing.T) {
	a := newTestAdapter(t, nil)
	b := a.NewBlock()

	pc, ok := b.Variant().(model.ProjectCard)
	require.True(t, ok)
	assert.Equal(t, "gen-1", pc.Props.ID)
	assert.Equal(t, model.DefaultTitle, pc.Props.Title)
	assert.Equal(t, model.EmptyContent, pc.Props.EditorContent)
	assert.Equal(t, pc.Props.CreatedAt, pc.Props.UpdatedAt)
}

func TestIndexLastDuplicateWins(t *testing.T) {
	var logs bytes.Buffer
	a := newTestAdapter(t, &logs)

	first := model.CardProps{ID: "dup", Title: "first"}
	second := model.CardProps{ID: "dup", Title: "second"}
	other := model.CardProps{ID: "solo", Title: "solo"}
	blocks := []model.Block{
		{ID: "b1", Type: model.TypeProjectCard, Props: first.Map()},
		model.NewParagraph("between"),
		{ID: "b2", Type: model.TypeProjectCard, Props: other.Map()},
		{ID: "b3", Type: model.TypeProjectCard, Props: second.Map()},
	}

	idx := a.Index(blocks)
	require.Len(t, idx, 2)
	assert.Equal(t, "second", idx["dup"].Title)
	assert.Equal(t, "solo", idx["solo"].Title)
	assert.Contains(t, logs.String(), "duplicate card id")
}

func TestIndexKeysEveryCardBlock(t *testing.T) {
	a := newTestAdapter(t, nil)
	var blocks []model.Block
	for _, id := range []string{"a", "b", "c"} {
		p := model.CardProps{ID: id}
		blocks = append(blocks, model.Block{Type: model.TypeProjectCard, Props: p.Map()})
	}
	idx := a.Index(blocks)
	for _, b := range blocks {
		assert.Contains(t, idx, b.Prop("id"))
	}
}

func TestIndexCopiesStoredFields(t *testing.T) {
	a := newTestAdapter(t, nil)
	bare := model.Block{Type: model.TypeProjectCard, Props: map[string]any{"id": "c", "editorContent": "[]"}}

	first := a.Index([]model.Block{bare})
	second := a.Index([]model.Block{bare})

	assert.Equal(t, first, second)
	assert.Empty(t, first["c"].CreatedAt)
	assert.Empty(t, first["c"].UpdatedAt)
	assert.Equal(t, model.DefaultTitle, first["c"].Title)
}

func TestStampFillsMissingFieldsOnce(t *testing.T) {
	a := newTestAdapter(t, nil)
	bare := model.Block{ID: "b", Type: model.TypeProjectCard, Props: map[string]any{"title": "T"}}

	stamped := a.Stamp(bare)
	assert.Equal(t, "gen-1", stamped.Prop("id"))
	assert.Equal(t, "2024-05-01T12:00:00.000Z", stamped.Prop("createdAt"))
	assert.Equal(t, stamped.Prop("createdAt"), stamped.Prop("updatedAt"))
	assert.Equal(t, "T", stamped.Prop("title"))
	assert.Empty(t, bare.Prop("id"), "input props are not mutated")

	again := a.Stamp(stamped)
	assert.Equal(t, stamped.Props, again.Props)
}

func TestStampKeepsExistingValues(t *testing.T) {
	a := newTestAdapter(t, nil)
	p := model.CardProps{ID: "c", CreatedAt: "2020-01-01T00:00:00.000Z"}
	b := a.Stamp(model.Block{Type: model.TypeProjectCard, Props: p.Map()})
	assert.Equal(t, "c", b.Prop("id"))
	assert.Equal(t, "2020-01-01T00:00:00.000Z", b.Prop("createdAt"))
	assert.Equal(t, "2020-01-01T00:00:00.000Z", b.Prop("updatedAt"))

	para := model.NewParagraph("x")
	assert.Equal(t, para, a.Stamp(para))
}

func TestRoundTripNumbersComeBackAsJSONNumber(t *testing.T) {
	a := newTestAdapter(t, nil)
	d := model.ProjectCardData{
		ID: "c", Title: "T",
		Content:   []model.Block{{Type: "heading", Props: map[string]any{"level": float64(2)}}},
		CreatedAt: "2024-01-01T00:00:00.000Z", UpdatedAt: "2024-01-01T00:00:00.000Z",
	}
	got := a.Deserialize(a.Serialize(d))

	want, _ := json.Marshal(d)
	have, _ := json.Marshal(got)
	assert.JSONEq(t, string(want), string(have))
	assert.Equal(t, json.Number("2"), got.Content[0].Props["level"])
}

func TestFirstImageNestedThreeLevels(t *testing.T) {
	deep := []model.Block{
		model.NewParagraph("top"),
		{
			Type: "bulletListItem",
			Children: []model.Block{
				{
					Type: "bulletListItem",
					Children: []model.Block{
						imageBlock("https://img/deep.png"),
					},
				},
			},
		},
		imageBlock("https://img/later.png"),
	}
	assert.Equal(t, "https://img/deep.png", FirstImage(deep))
}

func TestFirstImageSkipsEmptyURL(t *testing.T) {
	blocks := []model.Block{imageBlock(""), imageBlock("https://img/ok.png")}
	assert.Equal(t, "https://img/ok.png", FirstImage(blocks))
	assert.Equal(t, "", FirstImage([]model.Block{model.NewParagraph("none")}))
}
