package engine

import (
	"math"

	"clarity-workers/internal/models"
)

// Completion computes per-section completeness and clarity over the visible
// questions. Completeness is answered/visible; clarity is answered without
// validation errors over answered, and 100 while nothing is answered.
func Completion(bp models.Blueprint, questions QuestionLookup, answers map[string]interface{}, errs []ValidationError) map[string]models.SectionCompletion {
	failing := make(map[string]bool, len(errs))
	for _, e := range errs {
		failing[e.QuestionID] = true
	}

	out := make(map[string]models.SectionCompletion, len(bp.Sections))
	for _, section := range bp.Sections {
		visible := VisibleSectionQuestions(section, questions, answers)

		answered, clean := 0, 0
		for _, q := range visible {
			if IsEmpty(answers[q.ID]) {
				continue
			}
			answered++
			if !failing[q.ID] {
				clean++
			}
		}

		out[section.ID] = models.SectionCompletion{
			Completeness: percent(answered, len(visible)),
			Clarity:      percent(clean, answered),
		}
	}
	return out
}

// percent is 100 for an empty denominator: an empty section has nothing left.
func percent(n, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(n) * 100 / float64(total)))
}
