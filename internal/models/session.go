// internal/models/session.go
package models

import "time"

// RawAnswer is the latest answer to one question. It is overwritten on every
// answer event for the same question.
type RawAnswer struct {
	Value      interface{} `json:"value"`
	Confidence Level       `json:"confidence"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Gap is a detected incompleteness or invalid state tied to a question.
type Gap struct {
	QuestionID string `json:"questionId"`
	Reason     string `json:"reason"`
	Severity   Level  `json:"severity"`
}

type Contradiction struct {
	Questions   []string `json:"questions"`
	Description string   `json:"description"`
}

// UserOverride is a hand edit of generated content, keyed by section ID.
type UserOverride struct {
	OriginalText string    `json:"originalText"`
	EditedText   string    `json:"editedText"`
	Timestamp    time.Time `json:"timestamp"`
}

type ResearchAnswer struct {
	QuestionID string      `json:"questionId"`
	OutputKey  string      `json:"outputKey,omitempty"`
	Data       interface{} `json:"data"`
	Timestamp  time.Time   `json:"timestamp"`
}

// SectionCompletion holds percentages in [0, 100].
type SectionCompletion struct {
	Completeness int `json:"completeness"`
	Clarity      int `json:"clarity"`
}

// Session is the aggregate root of one interview. Operations in the session
// package treat it as an immutable snapshot and return a modified copy.
type Session struct {
	SessionID         string    `json:"sessionId"`
	BlueprintID       string    `json:"blueprintId,omitempty"`
	BlueprintVersion  string    `json:"blueprintVersion"`
	Timestamp         time.Time `json:"timestamp"`
	OutputLanguage    string    `json:"outputLanguage,omitempty"`
	CurrentQuestionID string    `json:"currentQuestionId,omitempty"`

	CompletedQuestionIDs []string                     `json:"completedQuestionIds"`
	RawAnswers           map[string]RawAnswer         `json:"rawAnswers"`
	UserOverrides        map[string]UserOverride      `json:"userOverrides"`
	DerivedInferences    DerivedInferences            `json:"derivedInferences"`
	Gaps                 []Gap                        `json:"gaps"`
	Contradictions       []Contradiction              `json:"contradictions"`
	ResearchAnswers      map[string]ResearchAnswer    `json:"researchAnswers"`
	CompletionBySection  map[string]SectionCompletion `json:"completionBySection"`

	// AnalysisGeneration is the generation of the analysis run whose
	// inferences are applied. Older runs are discarded.
	AnalysisGeneration uint64 `json:"analysisGeneration,omitempty"`

	// Dirty tracking. Not persisted.
	LastModifiedAt time.Time  `json:"-"`
	LastSavedAt    *time.Time `json:"-"`
}

// Answer returns the bare value recorded for questionID, or nil.
func (s *Session) Answer(questionID string) interface{} {
	if s == nil {
		return nil
	}
	if a, ok := s.RawAnswers[questionID]; ok {
		return a.Value
	}
	return nil
}

// AnswerValues denormalizes RawAnswers to bare values.
func (s *Session) AnswerValues() map[string]interface{} {
	out := make(map[string]interface{}, len(s.RawAnswers))
	for id, a := range s.RawAnswers {
		out[id] = a.Value
	}
	return out
}

// IsDirty reports whether the session changed since the last successful save.
func (s *Session) IsDirty() bool {
	if s.LastSavedAt == nil {
		return true
	}
	return s.LastModifiedAt.After(*s.LastSavedAt)
}
