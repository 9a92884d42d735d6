package document

import (
	"context"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/metrics"
	"clarity-workers/internal/models"
)

const (
	FormatMarkdown = "md"
	FormatDOCX     = "docx"
	FormatPDF      = "pdf"
)

// Export is a converted document. Text is set for textual formats. docx and
// pdf are not produced yet: their exports are placeholders with no payload,
// carrying only the content type, filename and metadata.
type Export struct {
	Format      string   `json:"format"`
	ContentType string   `json:"contentType"`
	Filename    string   `json:"filename"`
	Text        string   `json:"text,omitempty"`
	Placeholder bool     `json:"placeholder"`
	Overridden  bool     `json:"overridden"`
	Metadata    Metadata `json:"metadata"`
}

func IsSupportedFormat(format string) bool {
	switch format {
	case FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	}
	return false
}

// Export renders outputID, applies the full-document override and converts
// the result to format.
func (g *Generator) Export(ctx context.Context, s *models.Session, catalog Catalog, outputID, format string) (*Export, error) {
	if !IsSupportedFormat(format) {
		return nil, errors.NewUnsupportedFormatError(format)
	}

	out, err := g.Generate(ctx, s, catalog, outputID)
	if err != nil {
		return nil, err
	}
	content, overridden := Reconcile(models.FullDocumentSection, out.HTML, s.UserOverrides)

	exp := &Export{
		Format:     format,
		Filename:   fmt.Sprintf("%s-%s.%s", out.OutputID, s.SessionID, format),
		Overridden: overridden,
		Metadata:   out.Metadata,
	}

	switch format {
	case FormatMarkdown:
		text, err := ToMarkdown(content)
		if err != nil {
			return nil, errors.NewInternalError(fmt.Errorf("convert to markdown: %w", err))
		}
		exp.ContentType = "text/markdown; charset=utf-8"
		exp.Text = text
	case FormatDOCX:
		exp.ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		exp.Placeholder = true
	case FormatPDF:
		exp.ContentType = "application/pdf"
		exp.Placeholder = true
	}

	metrics.DocumentsExported.WithLabelValues(format).Inc()
	return exp, nil
}

// ToMarkdown converts rendered HTML to CommonMark.
func ToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	return converter.ConvertString(html)
}
