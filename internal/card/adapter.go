// Package card translates between card blocks and ProjectCardData.
package card

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rcliao/cardfolio/internal/model"
)

// InsertAliases are the slash-menu search terms for inserting a card.
var InsertAliases = []string{"project", "card", "portfolio", "nested"}

// Adapter is the single translation point between a card block's flat
// property bag and ProjectCardData.
type Adapter struct {
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock overrides the time source used for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithIDGenerator overrides the card id generator.
func WithIDGenerator(fn func() string) Option {
	return func(a *Adapter) { a.newID = fn }
}

// NewAdapter returns an adapter that logs degraded input to log.
func NewAdapter(log zerolog.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Deserialize builds card data from block properties, filling defaults.
// Malformed editorContent yields empty content; it is logged, not returned.
// Deserialize(Serialize(d)) equals d as JSON: numeric props inside content
// come back as json.Number.
func (a *Adapter) Deserialize(p model.CardProps) model.ProjectCardData {
	now := model.Timestamp(a.now())
	d := model.ProjectCardData{
		ID:           p.ID,
		Title:        p.Title,
		Content:      a.parseContent(p.ID, p.EditorContent),
		PreviewImage: p.PreviewImage,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if d.ID == "" {
		d.ID = a.newID()
	}
	if d.Title == "" {
		d.Title = model.DefaultTitle
	}
	if d.CreatedAt == "" {
		d.CreatedAt = now
	}
	if d.UpdatedAt == "" {
		d.UpdatedAt = now
	}
	return d
}

func (a *Adapter) parseContent(cardID, raw string) []model.Block {
	if raw == "" {
		return []model.Block{}
	}
	var blocks []model.Block
	if err := json.Unmarshal([]byte(raw), &blocks); err != nil {
		a.log.Warn().Err(err).Str("card", cardID).Msg("card content is not valid JSON, using empty content")
		return []model.Block{}
	}
	if blocks == nil {
		return []model.Block{}
	}
	return blocks
}

// Serialize flattens card data into block properties.
func (a *Adapter) Serialize(d model.ProjectCardData) model.CardProps {
	content := d.Content
	if content == nil {
		content = []model.Block{}
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		// Blocks decoded from JSON always re-encode; keep the schema default otherwise.
		a.log.Error().Err(err).Str("card", d.ID).Msg("encode card content")
		encoded = []byte(model.EmptyContent)
	}
	return model.CardProps{
		ID:            d.ID,
		Title:         d.Title,
		EditorContent: string(encoded),
		PreviewImage:  d.PreviewImage,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// NewBlock builds a freshly inserted card block with a new id.
func (a *Adapter) NewBlock() model.Block {
	now := model.Timestamp(a.now())
	props := model.CardProps{
		ID:            a.newID(),
		Title:         model.DefaultTitle,
		EditorContent: model.EmptyContent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return model.Block{
		Type:     model.TypeProjectCard,
		Props:    props.Map(),
		Children: []model.Block{},
	}
}

// Stamp fills a card block's missing id and timestamps into its props, so
// every later read of the block sees the same values. Other blocks and
// complete cards are returned unchanged.
func (a *Adapter) Stamp(b model.Block) model.Block {
	pc, ok := b.Variant().(model.ProjectCard)
	if !ok {
		return b
	}
	p := pc.Props
	if p.ID != "" && p.CreatedAt != "" && p.UpdatedAt != "" {
		return b
	}
	props := maps.Clone(b.Props)
	if props == nil {
		props = make(map[string]any)
	}
	if p.ID == "" {
		props["id"] = a.newID()
	}
	if p.CreatedAt == "" {
		p.CreatedAt = model.Timestamp(a.now())
		props["createdAt"] = p.CreatedAt
	}
	if p.UpdatedAt == "" {
		props["updatedAt"] = p.CreatedAt
	}
	b.Props = props
	return b
}

// Index scans top-level blocks and keys every card by its id property, as
// stored on the block. When two blocks share an id the last one scanned wins.
// Ids and timestamps are copied as stored, so indexing the same blocks twice
// gives the same result.
func (a *Adapter) Index(blocks []model.Block) map[string]model.ProjectCardData {
	cards := make(map[string]model.ProjectCardData)
	for _, b := range blocks {
		pc, ok := b.Variant().(model.ProjectCard)
		if !ok {
			continue
		}
		key := pc.Props.ID
		if _, dup := cards[key]; dup {
			a.log.Warn().Str("card", key).Str("block", b.ID).Msg("duplicate card id, keeping last")
		}
		cards[key] = a.indexed(pc.Props)
	}
	return cards
}

func (a *Adapter) indexed(p model.CardProps) model.ProjectCardData {
	d := model.ProjectCardData{
		ID:           p.ID,
		Title:        p.Title,
		Content:      a.parseContent(p.ID, p.EditorContent),
		PreviewImage: p.PreviewImage,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if d.Title == "" {
		d.Title = model.DefaultTitle
	}
	return d
}

// FirstImage returns the url of the first image block found depth-first,
// or "" when the tree holds none.
func FirstImage(blocks []model.Block) string {
	var url string
	model.Walk(blocks, func(b model.Block) bool {
		if img, ok := b.Variant().(model.Image); ok && img.URL != "" {
			url = img.URL
			return false
		}
		return true
	})
	return url
}
