package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/rcliao/cardfolio/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// PreviewDateLayout is how a card preview shows its date.
const PreviewDateLayout = "Jan 2, 2006"

// CardPreview is what a card block shows in the top-level document.
type CardPreview struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	PreviewImage string `json:"previewImage,omitempty"`
	Date         string `json:"date"`
	Age          string `json:"age"`
	BlockCount   int    `json:"blockCount"`
	Excerpt      string `json:"excerpt"`
}

// NewPreview summarizes a card as of now.
func NewPreview(d model.ProjectCardData, now time.Time) CardPreview {
	p := CardPreview{
		ID:           d.ID,
		Title:        d.Title,
		PreviewImage: d.PreviewImage,
		BlockCount:   len(d.Content),
		Excerpt:      excerpt(model.BlocksText(d.Content), 140),
	}
	if t, err := time.Parse(time.RFC3339, d.UpdatedAt); err == nil {
		p.Date = t.Format(PreviewDateLayout)
		p.Age = humanize.RelTime(t, now, "ago", "from now")
	}
	return p
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Renderer converts markdown to sanitized HTML and executes the page
// templates.
type Renderer struct {
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	templates *template.Template
	now       func() time.Time
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	r := &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
		now:    time.Now,
	}
	tmpl, err := template.New("render").Funcs(template.FuncMap{
		"plural": func(n int, word string) string {
			if n == 1 {
				return fmt.Sprintf("%d %s", n, word)
			}
			return fmt.Sprintf("%d %ss", n, word)
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.templates = tmpl
	return r, nil
}

// HTML renders blocks to sanitized HTML.
func (r *Renderer) HTML(blocks []model.Block) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(BlocksToMarkdown(blocks)), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

type cardView struct {
	CardPreview
	Body template.HTML
}

// Card writes the preview fragment of one card.
func (r *Renderer) Card(w io.Writer, d model.ProjectCardData) error {
	body, err := r.HTML(d.Content)
	if err != nil {
		return err
	}
	return r.templates.ExecuteTemplate(w, "card.html", cardView{CardPreview: NewPreview(d, r.now()), Body: body})
}

type section struct {
	Card *cardView
	HTML template.HTML
}

type portfolioView struct {
	Title    string
	Sections []section
	Cards    int
}

// Portfolio writes the full portfolio page: document content in order, with
// each card block expanded into its preview and nested content.
func (r *Renderer) Portfolio(w io.Writer, title string, content model.EditorContent) error {
	view := portfolioView{Title: title}
	var run []model.Block
	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		html, err := r.HTML(run)
		if err != nil {
			return err
		}
		view.Sections = append(view.Sections, section{HTML: html})
		run = nil
		return nil
	}

	for _, b := range content.Blocks {
		pc, ok := b.Variant().(model.ProjectCard)
		if !ok {
			run = append(run, b)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		d, ok := content.ProjectCards[pc.Props.ID]
		if !ok {
			continue
		}
		body, err := r.HTML(d.Content)
		if err != nil {
			return err
		}
		view.Sections = append(view.Sections, section{Card: &cardView{CardPreview: NewPreview(d, r.now()), Body: body}})
		view.Cards++
	}
	if err := flush(); err != nil {
		return err
	}
	return r.templates.ExecuteTemplate(w, "portfolio.html", view)
}
