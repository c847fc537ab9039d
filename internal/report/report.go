// Package report renders resume documents to PDF.
//
// Rendering is a collaborator of the delivery pipeline: the download and
// email services ask a Renderer for bytes and never look inside them.
package report

import (
	"context"
	"errors"
)

// =============================================================================
// Renderer Interface
// =============================================================================

// Renderer turns a document into artifact bytes.
type Renderer interface {
	Render(ctx context.Context, doc *Document, tmpl Template) ([]byte, error)
}

// ErrEmptyDocument is returned for a document without a name.
var ErrEmptyDocument = errors.New("report: document has no name")

// ErrUnknownTemplate is returned for a template the renderer does not know.
var ErrUnknownTemplate = errors.New("report: unknown template")

// Template selects the visual layout.
type Template string

const (
	TemplateClassic Template = "classic"
	TemplateModern  Template = "modern"
)

// ParseTemplate returns the template named s, defaulting to classic.
func ParseTemplate(s string) (Template, error) {
	switch Template(s) {
	case "", TemplateClassic:
		return TemplateClassic, nil
	case TemplateModern:
		return TemplateModern, nil
	default:
		return "", ErrUnknownTemplate
	}
}

// =============================================================================
// Document
// =============================================================================

// Document is the content to render. It is deliberately loose: sections are
// headed lists of entries, whatever the caller puts in them.
type Document struct {
	Name     string    `json:"name" validate:"required,max=200"`
	Headline string    `json:"headline,omitempty" validate:"max=300"`
	Contact  []string  `json:"contact,omitempty" validate:"max=10,dive,max=200"`
	Summary  string    `json:"summary,omitempty"`
	Sections []Section `json:"sections,omitempty" validate:"max=30,dive"`
}

// Section is a headed group of entries, e.g. "Experience".
type Section struct {
	Heading string  `json:"heading" validate:"required,max=100"`
	Entries []Entry `json:"entries,omitempty" validate:"max=50,dive"`
}

// Entry is a single item within a section.
type Entry struct {
	Title    string   `json:"title,omitempty"`
	Subtitle string   `json:"subtitle,omitempty"`
	Period   string   `json:"period,omitempty"`
	Lines    []string `json:"lines,omitempty"`
}

// =============================================================================
// Palettes
// =============================================================================

// palette is the color set a template draws with.
type palette struct {
	Accent    string
	TextDark  string
	TextMuted string
	Border    string
}

var palettes = map[Template]palette{
	TemplateClassic: {
		Accent:    "#1F2937",
		TextDark:  "#111827",
		TextMuted: "#4B5563",
		Border:    "#9CA3AF",
	},
	TemplateModern: {
		Accent:    "#1E3A5F",
		TextDark:  "#1F2937",
		TextMuted: "#6B7280",
		Border:    "#E5E7EB",
	},
}

// =============================================================================
// Color Conversion Helpers
// =============================================================================

// HexToRGB converts a hex color string to RGB values.
// Input format: "#RRGGBB" or "RRGGBB"
func HexToRGB(hex string) (r, g, b int) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}

	r = hexToDec(hex[0:2])
	g = hexToDec(hex[2:4])
	b = hexToDec(hex[4:6])
	return
}

// hexToDec converts a 2-character hex string to decimal.
func hexToDec(hex string) int {
	val := 0
	for _, c := range hex {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}
