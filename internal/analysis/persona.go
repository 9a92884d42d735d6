package analysis

import (
	"context"
	"strings"
	"unicode/utf8"

	"clarity-workers/internal/models"
)

const (
	PersonaAnalyzerID = "personaAnalyzer"
	personaLabelMax   = 30
)

// PersonaAnalyzer emits a persona for each answer to a persona or target
// audience question. The result confidence is the lowest per-answer
// confidence seen.
type PersonaAnalyzer struct{}

func (PersonaAnalyzer) ID() string { return PersonaAnalyzerID }

func (PersonaAnalyzer) Analyze(_ context.Context, s *models.Session, catalog Catalog) Result {
	res := Result{AnalyzerID: PersonaAnalyzerID, Confidence: models.LevelHigh, Outputs: []models.AnalyzerOutput{}}

	answered(s, catalog, func(q models.Question, a models.RawAnswer) {
		category := strings.ToLower(q.Category)
		if category != "persona" && category != "target audience" {
			return
		}
		text := stringify(a.Value)
		res.Outputs = append(res.Outputs, models.NewOutput(models.Persona{
			ID:          "p_" + q.ID,
			Label:       personaLabel(text),
			Description: text,
		}, models.Provenance{
			Source:      models.SourceUserInput,
			References:  []string{q.ID},
			Assumptions: []string{},
		}))
		res.Confidence = lowest(res.Confidence, answerConfidence(a, text))
	})
	return res
}

// personaLabel is the first clause of text, cut to 30 characters, with an
// ellipsis whenever the full text is longer than that.
func personaLabel(text string) string {
	clause := text
	if i := strings.IndexAny(text, ".,\n"); i >= 0 {
		clause = text[:i]
	}
	if utf8.RuneCountInString(clause) > personaLabelMax {
		clause = string([]rune(clause)[:personaLabelMax])
	}
	if utf8.RuneCountInString(text) > personaLabelMax {
		clause += "..."
	}
	return clause
}

func answerConfidence(a models.RawAnswer, text string) models.Level {
	if a.Confidence == models.LevelLow || utf8.RuneCountInString(text) < 5 {
		return models.LevelLow
	}
	if a.Confidence == "" {
		return models.LevelMedium
	}
	return a.Confidence
}

func rank(l models.Level) int {
	switch l {
	case models.LevelHigh:
		return 2
	case models.LevelMedium:
		return 1
	}
	return 0
}

func lowest(a, b models.Level) models.Level {
	if rank(b) < rank(a) {
		return b
	}
	return a
}
