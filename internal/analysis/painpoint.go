package analysis

import (
	"context"
	"strings"

	"clarity-workers/internal/models"
)

const PainPointAnalyzerID = "painPointAnalyzer"

// PainPointAnalyzer turns every answer to a "Problem" question into one pain
// point carrying the answer text verbatim.
type PainPointAnalyzer struct{}

func (PainPointAnalyzer) ID() string { return PainPointAnalyzerID }

func (PainPointAnalyzer) Analyze(_ context.Context, s *models.Session, catalog Catalog) Result {
	res := Result{AnalyzerID: PainPointAnalyzerID, Confidence: models.LevelHigh, Outputs: []models.AnalyzerOutput{}}

	answered(s, catalog, func(q models.Question, a models.RawAnswer) {
		if strings.ToLower(q.Category) != "problem" {
			return
		}
		res.Outputs = append(res.Outputs, models.NewOutput(models.PainPoint{
			ID:          "pp_" + q.ID,
			Description: stringify(a.Value),
			Severity:    models.LevelMedium,
			Notes:       "Extracted from user answer",
		}, models.Provenance{
			Source:      models.SourceUserInput,
			References:  []string{q.ID},
			Assumptions: []string{},
		}))
	})
	return res
}
