package engine

import "clarity-workers/internal/models"

// QuestionLookup resolves question IDs against the active catalog.
type QuestionLookup interface {
	Question(id string) (models.Question, bool)
}

// IsVisible evaluates conditional visibility against the current answers.
// hideIf wins over showIf; the legacy dependsOn/showIfValue pair is only
// consulted when neither is set.
func IsVisible(logic *models.ConditionalLogic, answers map[string]interface{}) bool {
	if logic == nil {
		return true
	}
	if logic.HideIf != nil && conditionMatches(*logic.HideIf, answers) {
		return false
	}
	if logic.ShowIf != nil {
		return conditionMatches(*logic.ShowIf, answers)
	}
	if logic.DependsOn != "" {
		return conditionMatches(models.Condition{QuestionID: logic.DependsOn, Value: logic.ShowIfValue}, answers)
	}
	return true
}

// conditionMatches is equality, or membership when the expected value is a
// list. A list answer (multiselect) matches when any selected element does.
func conditionMatches(cond models.Condition, answers map[string]interface{}) bool {
	actual := answers[cond.QuestionID]

	if selected, ok := toList(actual); ok {
		for _, item := range selected {
			if scalarMatches(item, cond.Value) {
				return true
			}
		}
		return false
	}
	return scalarMatches(actual, cond.Value)
}

func scalarMatches(actual, expected interface{}) bool {
	if list, ok := toList(expected); ok {
		return containsValue(list, actual)
	}
	return valuesEqual(actual, expected)
}

// VisibleSequence flattens the blueprint sections and keeps the questions
// visible under answers. IDs missing from the catalog are skipped.
func VisibleSequence(bp models.Blueprint, questions QuestionLookup, answers map[string]interface{}) []models.Question {
	var out []models.Question
	for _, id := range bp.QuestionIDs() {
		q, ok := questions.Question(id)
		if !ok {
			continue
		}
		if IsVisible(q.ConditionalLogic, answers) {
			out = append(out, q)
		}
	}
	return out
}

// VisibleSectionQuestions is VisibleSequence restricted to one section.
func VisibleSectionQuestions(section models.Section, questions QuestionLookup, answers map[string]interface{}) []models.Question {
	return VisibleSequence(models.Blueprint{Sections: []models.Section{section}}, questions, answers)
}

// NextQuestionID returns the visible question following currentID, or the
// first visible question when currentID is empty or no longer visible. It
// returns "" at the end of the sequence.
func NextQuestionID(bp models.Blueprint, questions QuestionLookup, answers map[string]interface{}, currentID string) string {
	seq := VisibleSequence(bp, questions, answers)
	if len(seq) == 0 {
		return ""
	}
	for i, q := range seq {
		if q.ID == currentID {
			if i+1 < len(seq) {
				return seq[i+1].ID
			}
			return ""
		}
	}
	return seq[0].ID
}
