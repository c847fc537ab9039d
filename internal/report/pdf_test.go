package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func sampleDocument() *Document {
	return &Document{
		Name:     "Zoë Martínez",
		Headline: "Backend Engineer",
		Contact:  []string{"zoe@example.com", "Portland, OR"},
		Summary:  "Builds reliable services.",
		Sections: []Section{
			{
				Heading: "Experience",
				Entries: []Entry{
					{Title: "Senior Engineer", Subtitle: "Acme", Period: "2021 - 2025", Lines: []string{"Cut p99 latency by 40%"}},
				},
			},
		},
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	g := NewPDFRenderer()

	for _, tmpl := range []Template{TemplateClassic, TemplateModern} {
		t.Run(string(tmpl), func(t *testing.T) {
			data, err := g.Render(context.Background(), sampleDocument(), tmpl)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if !bytes.HasPrefix(data, []byte("%PDF-")) {
				t.Errorf("output does not start with a PDF header")
			}
		})
	}
}

func TestPDFRenderer_RenderErrors(t *testing.T) {
	g := NewPDFRenderer()

	if _, err := g.Render(context.Background(), &Document{}, TemplateClassic); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("empty document error = %v, want ErrEmptyDocument", err)
	}
	if _, err := g.Render(context.Background(), sampleDocument(), Template("fancy")); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("unknown template error = %v, want ErrUnknownTemplate", err)
	}
}

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		in      string
		want    Template
		wantErr bool
	}{
		{"", TemplateClassic, false},
		{"classic", TemplateClassic, false},
		{"modern", TemplateModern, false},
		{"fancy", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTemplate(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTemplate(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestHexToRGB(t *testing.T) {
	r, g, b := HexToRGB("#1E3A5F")
	if r != 30 || g != 58 || b != 95 {
		t.Errorf("HexToRGB() = %d,%d,%d", r, g, b)
	}
	r, g, b = HexToRGB("bad")
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("HexToRGB(bad) = %d,%d,%d", r, g, b)
	}
}
