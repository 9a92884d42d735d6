package document

import (
	"context"
	"html"

	"github.com/microcosm-cc/bluemonday"

	"clarity-workers/internal/models"
)

type SectionStatus string

const (
	StatusComplete   SectionStatus = "complete"
	StatusIncomplete SectionStatus = "incomplete"
)

type PreviewSection struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	HTML       string        `json:"html"`
	Status     SectionStatus `json:"status"`
	Overridden bool          `json:"overridden"`
}

var previewPolicy = newPreviewPolicy()

func newPreviewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataAttributes()
	p.AllowAttrs("class").Globally()
	return p
}

// Sanitize strips scripts, event handlers and unsafe URLs from markup while
// keeping formatting, classes and data-* provenance attributes.
func Sanitize(markup string) string {
	return previewPolicy.Sanitize(markup)
}

// Preview renders the default output as a single full-document section with
// overrides applied. Generation failures become one error section.
func (g *Generator) Preview(ctx context.Context, s *models.Session, catalog Catalog) []PreviewSection {
	out, err := g.Generate(ctx, s, catalog, models.DefaultOutputID)
	if err != nil {
		g.log.Error("Preview generation failed", map[string]interface{}{
			"sessionId": s.SessionID,
			"error":     err.Error(),
		})
		return []PreviewSection{{
			ID:     "error",
			Title:  "Error",
			HTML:   `<div class="error">Failed to generate preview: ` + html.EscapeString(err.Error()) + `</div>`,
			Status: StatusIncomplete,
		}}
	}

	content, overridden := Reconcile(models.FullDocumentSection, out.HTML, s.UserOverrides)
	return []PreviewSection{{
		ID:         models.FullDocumentSection,
		Title:      "Full Product Brief",
		HTML:       Sanitize(content),
		Status:     StatusComplete,
		Overridden: overridden,
	}}
}
