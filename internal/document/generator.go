package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/models"
)

// Catalog is the part of the catalog lookup document generation reads.
type Catalog interface {
	Templates() []models.TemplateConfig
	Output(id string) (models.OutputConfig, bool)
	Outputs() []models.OutputConfig
	TemplateBody(ctx context.Context, tpl models.TemplateConfig) (string, error)
}

type AnalysisCounts struct {
	PainPoints     int `json:"painPoints"`
	Personas       int `json:"personas"`
	MarketSegments int `json:"marketSegments"`
	Viability      int `json:"viability"`
}

type Metadata struct {
	SessionID        string         `json:"sessionId"`
	BlueprintVersion string         `json:"blueprintVersion"`
	ExportedAt       time.Time      `json:"exportedAt"`
	Sections         []string       `json:"sections"`
	AnalysisResults  AnalysisCounts `json:"analysisResults"`
	OutputLanguage   string         `json:"outputLanguage"`
	Translated       bool           `json:"translated"`
}

// Output is one rendered document, before overrides are applied.
type Output struct {
	HTML       string   `json:"html"`
	TemplateID string   `json:"templateId"`
	OutputID   string   `json:"outputId"`
	Locale     string   `json:"locale"`
	Metadata   Metadata `json:"metadata"`
}

type Generator struct {
	adapter *Adapter
	log     logger.Logger
	now     func() time.Time
}

func NewGenerator(adapter *Adapter, log logger.Logger) *Generator {
	return &Generator{
		adapter: adapter,
		log:     log.WithFields(map[string]interface{}{"component": "generator"}),
		now:     time.Now,
	}
}

// Generate renders outputID (the default output when empty) for s in the
// session's output language. It fails only when the output, its template
// or the template body cannot be found.
func (g *Generator) Generate(ctx context.Context, s *models.Session, catalog Catalog, outputID string) (*Output, error) {
	out, err := resolveOutput(catalog, outputID)
	if err != nil {
		return nil, err
	}

	res, err := ResolveTemplate(catalog.Templates(), out.TemplateID, s.OutputLanguage)
	if err != nil {
		return nil, err
	}

	body, err := catalog.TemplateBody(ctx, res.Template)
	if err != nil {
		return nil, errors.NewTemplateBodyMissingError(out.TemplateID, err)
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.NewTemplateBodyMissingError(out.TemplateID, fmt.Errorf("empty template body"))
	}

	now := g.now()
	html := Render(body, NewContext(s, now))

	if res.NeedsTranslation {
		g.log.Info("Template missing for locale, translating fallback", map[string]interface{}{
			"templateId":      out.TemplateID,
			"requestedLocale": res.RequestedLocale,
			"templateLocale":  res.Template.EffectiveLocale(),
		})
		html = g.adapter.TranslateMarkup(ctx, html, res.RequestedLocale)
	}

	sections := out.Sections
	if sections == nil {
		sections = []string{}
	}
	inf := s.DerivedInferences

	return &Output{
		HTML:       html,
		TemplateID: out.TemplateID,
		OutputID:   out.ID,
		Locale:     res.RequestedLocale,
		Metadata: Metadata{
			SessionID:        s.SessionID,
			BlueprintVersion: s.BlueprintVersion,
			ExportedAt:       now.UTC(),
			Sections:         sections,
			AnalysisResults: AnalysisCounts{
				PainPoints:     len(inf.PainPoints),
				Personas:       len(inf.Personas),
				MarketSegments: len(inf.MarketSizing),
				Viability:      len(inf.Viability),
			},
			OutputLanguage: res.RequestedLocale,
			Translated:     res.NeedsTranslation,
		},
	}, nil
}

// resolveOutput accepts an output id or the id of the template an output
// renders, so callers holding either can generate.
func resolveOutput(catalog Catalog, id string) (models.OutputConfig, error) {
	if id == "" {
		id = models.DefaultOutputID
	}
	if out, ok := catalog.Output(id); ok {
		return out, nil
	}
	for _, out := range catalog.Outputs() {
		if out.TemplateID == id {
			return out, nil
		}
	}
	return models.OutputConfig{}, errors.NewOutputNotFoundError(id)
}
