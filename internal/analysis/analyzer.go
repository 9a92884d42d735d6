package analysis

import (
	"context"

	"clarity-workers/internal/models"
)

// Catalog is the request-scoped question catalog an analyzer scans.
type Catalog interface {
	Questions() []models.Question
}

// Result is what one analyzer produced for one session snapshot.
type Result struct {
	AnalyzerID string                    `json:"analyzerId"`
	Confidence models.Level              `json:"confidence"`
	Outputs    []models.AnalyzerOutput   `json:"outputs"`
	Warnings   []string                  `json:"warnings,omitempty"`
	FollowUps  []models.FollowUpQuestion `json:"followUps,omitempty"`
}

// Analyzer extracts typed inferences from a session. Implementations must
// not read other analyzers' output and must be safe for concurrent use.
// Failures are reported through Result.Warnings rather than an error.
type Analyzer interface {
	ID() string
	Analyze(ctx context.Context, s *models.Session, catalog Catalog) Result
}

// answered yields the catalog questions with a truthy answer, in catalog
// order, so analyzer output does not depend on map iteration.
func answered(s *models.Session, catalog Catalog, fn func(q models.Question, a models.RawAnswer)) {
	for _, q := range catalog.Questions() {
		a, ok := s.RawAnswers[q.ID]
		if !ok || !truthy(a.Value) {
			continue
		}
		fn(q, a)
	}
}
