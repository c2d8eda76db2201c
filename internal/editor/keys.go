package editor

import (
	"context"
	"strings"
)

// KeyEvent is a key press forwarded from the editing surface.
type KeyEvent struct {
	Key   string `json:"key"`
	Meta  bool   `json:"metaKey"`
	Ctrl  bool   `json:"ctrlKey"`
	Shift bool   `json:"shiftKey"`
	Alt   bool   `json:"altKey"`
}

// IsSave reports Cmd+S or Ctrl+S.
func (e KeyEvent) IsSave() bool {
	return (e.Meta || e.Ctrl) && strings.EqualFold(e.Key, "s")
}

// IsEscape reports the Escape key.
func (e KeyEvent) IsEscape() bool {
	return e.Key == "Escape" || e.Key == "Esc"
}

type binding struct {
	name   string
	match  func(KeyEvent) bool
	action func(context.Context) error
}

// Keymap maps key events to actions. The first matching binding wins.
type Keymap struct {
	bindings []binding
}

// Bind adds a binding.
func (k *Keymap) Bind(name string, match func(KeyEvent) bool, action func(context.Context) error) {
	k.bindings = append(k.bindings, binding{name: name, match: match, action: action})
}

// Dispatch runs the first binding matching ev. It returns the binding name,
// or "" when no binding matched.
func (k *Keymap) Dispatch(ctx context.Context, ev KeyEvent) (string, error) {
	for _, b := range k.bindings {
		if b.match(ev) {
			return b.name, b.action(ctx)
		}
	}
	return "", nil
}
