// Package model defines the document, block and project card types.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// Block types the backend understands. Anything else is carried opaquely.
const (
	TypeProjectCard = "projectCard"
	TypeImage       = "image"
	TypeParagraph   = "paragraph"
	TypeText        = "text"
	TypeLink        = "link"
)

// Block is one node of an editor document. Known fields are decoded; every
// other field the editing engine emits is kept in Extra so a block survives
// a decode/encode cycle unchanged.
type Block struct {
	ID    string
	Type  string
	Props map[string]any

	// Content holds nested nodes when the engine stores content as an array
	// (inline text runs, links). RawContent holds any other shape verbatim.
	Content    []Block
	RawContent json.RawMessage

	Children []Block
	Extra    map[string]json.RawMessage
}

var knownKeys = map[string]bool{
	"id": true, "type": true, "props": true, "content": true, "children": true,
}

// UnmarshalJSON decodes a block, keeping unknown keys in Extra.
func (b *Block) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*b = Block{}

	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &b.ID); err != nil {
			return fmt.Errorf("block id: %w", err)
		}
	}
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &b.Type); err != nil {
			return fmt.Errorf("block type: %w", err)
		}
	}
	if raw, ok := fields["props"]; ok && !isNull(raw) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&b.Props); err != nil {
			return fmt.Errorf("block props: %w", err)
		}
	}
	if raw, ok := fields["content"]; ok {
		var nested []Block
		if isArray(raw) && json.Unmarshal(raw, &nested) == nil {
			if nested == nil {
				nested = []Block{}
			}
			b.Content = nested
		} else {
			b.RawContent = append(json.RawMessage(nil), raw...)
		}
	}
	if raw, ok := fields["children"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &b.Children); err != nil {
			return fmt.Errorf("block children: %w", err)
		}
		if b.Children == nil {
			b.Children = []Block{}
		}
	}

	for k, v := range fields {
		if knownKeys[k] {
			continue
		}
		if b.Extra == nil {
			b.Extra = make(map[string]json.RawMessage)
		}
		b.Extra[k] = v
	}
	return nil
}

// MarshalJSON encodes the block with its preserved unknown keys.
func (b Block) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Extra)+5)
	for k, v := range b.Extra {
		out[k] = v
	}
	if b.ID != "" {
		out["id"] = b.ID
	}
	if b.Type != "" {
		out["type"] = b.Type
	}
	if b.Props != nil {
		out["props"] = b.Props
	}
	switch {
	case b.Content != nil:
		out["content"] = b.Content
	case b.RawContent != nil:
		out["content"] = b.RawContent
	}
	if b.Children != nil {
		out["children"] = b.Children
	}
	return json.Marshal(out)
}

// Prop returns a property rendered as a string. Missing props yield "".
func (b Block) Prop(key string) string {
	v, ok := b.Props[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

// Text returns the string stored under Extra["text"] for inline text nodes.
func (b Block) Text() string {
	raw, ok := b.Extra["text"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// PlainText concatenates every inline text run below the block.
func (b Block) PlainText() string {
	var sb strings.Builder
	for _, n := range b.Content {
		if n.Type == TypeText {
			sb.WriteString(n.Text())
			continue
		}
		sb.WriteString(n.PlainText())
	}
	if b.RawContent != nil {
		var s string
		if json.Unmarshal(b.RawContent, &s) == nil {
			sb.WriteString(s)
		}
	}
	return sb.String()
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	c := b
	if b.Props != nil {
		c.Props = maps.Clone(b.Props)
	}
	if b.Extra != nil {
		c.Extra = maps.Clone(b.Extra)
	}
	if b.RawContent != nil {
		c.RawContent = append(json.RawMessage(nil), b.RawContent...)
	}
	c.Content = CloneBlocks(b.Content)
	c.Children = CloneBlocks(b.Children)
	return c
}

// CloneBlocks deep-copies a block sequence, preserving nil vs empty.
func CloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i := range blocks {
		out[i] = blocks[i].Clone()
	}
	return out
}

// Walk visits blocks depth-first, descending into content before children.
// It stops as soon as fn returns false and reports whether the walk finished.
func Walk(blocks []Block, fn func(Block) bool) bool {
	for _, b := range blocks {
		if !fn(b) {
			return false
		}
		if !Walk(b.Content, fn) {
			return false
		}
		if !Walk(b.Children, fn) {
			return false
		}
	}
	return true
}

// NewTextNode builds an unstyled inline text run.
func NewTextNode(text string) Block {
	encoded, _ := json.Marshal(text)
	return Block{
		Type: TypeText,
		Extra: map[string]json.RawMessage{
			"text":   encoded,
			"styles": json.RawMessage(`{}`),
		},
	}
}

// NewParagraph builds a paragraph holding a single text run.
func NewParagraph(text string) Block {
	return Block{
		Type:     TypeParagraph,
		Props:    map[string]any{},
		Content:  []Block{NewTextNode(text)},
		Children: []Block{},
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// BlocksText flattens the text of a block tree, one line per block that
// carries text.
func BlocksText(blocks []Block) string {
	var lines []string
	for _, b := range blocks {
		if t := strings.TrimSpace(b.PlainText()); t != "" {
			lines = append(lines, t)
		}
		if t := BlocksText(b.Children); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}
