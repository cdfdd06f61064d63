package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown into terminal output with glamour. If glamour
// cannot be initialized or fails on a document, the raw markdown is returned.
type Renderer struct {
	tr *glamour.TermRenderer
}

// NewRenderer builds a renderer for a glamour standard style ("dark",
// "light", "notty", ...) wrapped at width. An empty style picks one from
// the terminal.
func NewRenderer(style string, width int) *Renderer {
	if width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return &Renderer{}
	}
	return &Renderer{tr: tr}
}

func (r *Renderer) Render(md string) string {
	if r == nil || r.tr == nil {
		return md
	}
	out, err := r.tr.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
