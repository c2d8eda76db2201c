package model

import (
	"encoding/json"
	"time"
)

const (
	// DefaultTitle is the schema default for a freshly inserted card.
	DefaultTitle = "New Project"
	// UntitledTitle replaces a blank title when a card is saved.
	UntitledTitle = "Untitled Project"
	// EmptyContent is the schema default for the serialized nested document.
	EmptyContent = "[]"
	// TimeLayout matches JavaScript's Date.prototype.toISOString.
	TimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Timestamp formats t in TimeLayout, always in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ProjectCardData is the rich form of a card.
type ProjectCardData struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Content      []Block `json:"content"`
	PreviewImage string  `json:"previewImage,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

// CardProps is the flat, string-only property bag stored on a card block.
type CardProps struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	EditorContent string `json:"editorContent"`
	PreviewImage  string `json:"previewImage"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

// CardPropsFrom reads the card properties off a block.
func CardPropsFrom(b Block) CardProps {
	return CardProps{
		ID:            b.Prop("id"),
		Title:         b.Prop("title"),
		EditorContent: b.Prop("editorContent"),
		PreviewImage:  b.Prop("previewImage"),
		CreatedAt:     b.Prop("createdAt"),
		UpdatedAt:     b.Prop("updatedAt"),
	}
}

// Map converts the props into the generic block property map.
func (p CardProps) Map() map[string]any {
	return map[string]any{
		"id":            p.ID,
		"title":         p.Title,
		"editorContent": p.EditorContent,
		"previewImage":  p.PreviewImage,
		"createdAt":     p.CreatedAt,
		"updatedAt":     p.UpdatedAt,
	}
}

// EditorContent is the full document plus the derived card index.
type EditorContent struct {
	Blocks       []Block                    `json:"blocks"`
	ProjectCards map[string]ProjectCardData `json:"projectCards"`
}

// SavedContent is one persisted snapshot.
type SavedContent struct {
	ID      string        `json:"id"`
	Content EditorContent `json:"content"`
	SavedAt string        `json:"savedAt"`
}

// ExportFile is the downloadable export schema.
type ExportFile struct {
	Blocks       []Block                    `json:"blocks"`
	ProjectCards map[string]ProjectCardData `json:"projectCards"`
	ExportedAt   string                     `json:"exportedAt"`
}

// Encode marshals the snapshot for the local store.
func (s SavedContent) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
