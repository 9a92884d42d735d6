// Package session holds the pure operations over a session snapshot and
// the persistence gate that writes snapshots to a blob store.
//
// Every operation returns a modified copy and leaves its input untouched.
// Each one bumps LastModifiedAt strictly, so two mutations within the same
// clock tick are still ordered.
package session

import (
	"time"

	"github.com/google/uuid"

	"clarity-workers/internal/engine"
	"clarity-workers/internal/models"
)

// StartNew returns an empty session for the given blueprint.
func StartNew(blueprintID, blueprintVersion string, now time.Time) *models.Session {
	s := &models.Session{
		SessionID:            uuid.New().String(),
		BlueprintID:          blueprintID,
		BlueprintVersion:     blueprintVersion,
		Timestamp:            now,
		OutputLanguage:       models.DefaultLocale,
		CompletedQuestionIDs: []string{},
		RawAnswers:           map[string]models.RawAnswer{},
		UserOverrides:        map[string]models.UserOverride{},
		DerivedInferences:    models.NewDerivedInferences(),
		Gaps:                 []models.Gap{},
		Contradictions:       []models.Contradiction{},
		ResearchAnswers:      map[string]models.ResearchAnswer{},
		CompletionBySection:  map[string]models.SectionCompletion{},
		LastModifiedAt:       now,
	}
	return s
}

// Clone deep-copies the containers of s. Records inside them are values and
// are shared.
func Clone(s *models.Session) *models.Session {
	cp := *s
	cp.CompletedQuestionIDs = append([]string{}, s.CompletedQuestionIDs...)
	cp.RawAnswers = copyMap(s.RawAnswers)
	cp.UserOverrides = copyMap(s.UserOverrides)
	cp.ResearchAnswers = copyMap(s.ResearchAnswers)
	cp.CompletionBySection = copyMap(s.CompletionBySection)
	cp.Gaps = append([]models.Gap{}, s.Gaps...)
	cp.Contradictions = append([]models.Contradiction{}, s.Contradictions...)
	cp.DerivedInferences = copyInferences(s.DerivedInferences)
	if s.LastSavedAt != nil {
		saved := *s.LastSavedAt
		cp.LastSavedAt = &saved
	}
	return &cp
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyInferences(d models.DerivedInferences) models.DerivedInferences {
	out := models.NewDerivedInferences()
	out.PainPoints = append(out.PainPoints, d.PainPoints...)
	out.Personas = append(out.Personas, d.Personas...)
	out.MarketSizing = append(out.MarketSizing, d.MarketSizing...)
	out.Viability = append(out.Viability, d.Viability...)
	out.FollowUpQuestions = append(out.FollowUpQuestions, d.FollowUpQuestions...)
	for k, v := range d.Provenance {
		out.Provenance[k] = v
	}
	return out
}

// modify clones s, applies fn and bumps the modification time.
func modify(s *models.Session, now time.Time, touchTimestamp bool, fn func(*models.Session)) *models.Session {
	cp := Clone(s)
	fn(cp)
	if touchTimestamp {
		cp.Timestamp = now
	}
	next := now
	if !next.After(s.LastModifiedAt) {
		next = s.LastModifiedAt.Add(time.Nanosecond)
	}
	cp.LastModifiedAt = next
	return cp
}

// RecordAnswer overwrites the answer to questionID. A truthy value marks the
// question completed. An empty confidence defaults to high.
func RecordAnswer(s *models.Session, questionID string, value interface{}, confidence models.Level, now time.Time) *models.Session {
	if confidence == "" {
		confidence = models.LevelHigh
	}
	return modify(s, now, true, func(cp *models.Session) {
		cp.RawAnswers[questionID] = models.RawAnswer{Value: value, Confidence: confidence, Timestamp: now}
		if engine.IsTruthy(value) && !contains(cp.CompletedQuestionIDs, questionID) {
			cp.CompletedQuestionIDs = append(cp.CompletedQuestionIDs, questionID)
		}
	})
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func SetCurrentQuestion(s *models.Session, questionID string, now time.Time) *models.Session {
	return modify(s, now, false, func(cp *models.Session) {
		cp.CurrentQuestionID = questionID
	})
}

func SetOutputLanguage(s *models.Session, locale string, now time.Time) *models.Session {
	return modify(s, now, true, func(cp *models.Session) {
		cp.OutputLanguage = locale
	})
}

// SetUserOverride records a hand edit for sectionID. It wins over generated
// content until ResetUserOverride removes it.
func SetUserOverride(s *models.Session, sectionID string, o models.UserOverride, now time.Time) *models.Session {
	if o.Timestamp.IsZero() {
		o.Timestamp = now
	}
	return modify(s, now, true, func(cp *models.Session) {
		cp.UserOverrides[sectionID] = o
	})
}

func ResetUserOverride(s *models.Session, sectionID string, now time.Time) *models.Session {
	return modify(s, now, true, func(cp *models.Session) {
		delete(cp.UserOverrides, sectionID)
	})
}

func SetResearchAnswer(s *models.Session, a models.ResearchAnswer, now time.Time) *models.Session {
	if a.Timestamp.IsZero() {
		a.Timestamp = now
	}
	return modify(s, now, true, func(cp *models.Session) {
		cp.ResearchAnswers[a.QuestionID] = a
	})
}

// ApplyValidation replaces gaps and completion stats wholesale.
func ApplyValidation(s *models.Session, gaps []models.Gap, completion map[string]models.SectionCompletion, now time.Time) *models.Session {
	return modify(s, now, false, func(cp *models.Session) {
		cp.Gaps = append([]models.Gap{}, gaps...)
		cp.CompletionBySection = copyMap(completion)
	})
}

// ApplyAnalysis replaces the derived inferences with the result of analysis
// run generation. A result from a run not newer than the one already applied
// is discarded and s is returned unchanged with false.
func ApplyAnalysis(s *models.Session, generation uint64, inferences models.DerivedInferences, now time.Time) (*models.Session, bool) {
	if generation <= s.AnalysisGeneration {
		return s, false
	}
	return modify(s, now, true, func(cp *models.Session) {
		cp.DerivedInferences = copyInferences(inferences)
		cp.AnalysisGeneration = generation
	}), true
}
