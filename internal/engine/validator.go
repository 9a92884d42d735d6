package engine

import (
	"fmt"
	"regexp"
	"sync"
	"unicode/utf8"

	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/models"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

const (
	CodeRequired        = "required"
	CodeMinLength       = "min_length"
	CodeMaxLength       = "max_length"
	CodePatternMismatch = "pattern_mismatch"
	CodeInvalidOption   = "invalid_option"
	CodeMinValue        = "min_value"
	CodeMaxValue        = "max_value"
)

type ValidationError struct {
	QuestionID string   `json:"questionId"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
}

// Summary is the result of validating every visible question of a session.
type Summary struct {
	IsValid bool              `json:"isValid"`
	Errors  []ValidationError `json:"errors"`
	Gaps    []models.Gap      `json:"gaps"`
}

// Validator applies question validation rules. Compiled patterns are kept
// for the lifetime of the validator; malformed ones are logged once and
// skipped.
type Validator struct {
	log logger.Logger

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

func NewValidator(log logger.Logger) *Validator {
	return &Validator{
		log:      log.WithFields(map[string]interface{}{"component": "validator"}),
		patterns: map[string]*regexp.Regexp{},
	}
}

// ValidateAnswer checks one answer value against q's rules. A required empty
// answer yields exactly one required error and nothing else.
func (v *Validator) ValidateAnswer(q models.Question, value interface{}) []ValidationError {
	var errs []ValidationError
	rules := q.ValidationRules
	if rules == nil {
		rules = &models.ValidationRules{}
	}

	add := func(code, msg string) {
		errs = append(errs, ValidationError{QuestionID: q.ID, Code: code, Message: msg, Severity: SeverityError})
	}

	if IsEmpty(value) {
		if rules.Required {
			add(CodeRequired, "This question is required")
		}
		return errs
	}

	if s, ok := value.(string); ok {
		length := utf8.RuneCountInString(s)
		if rules.MinLength != nil && length < *rules.MinLength {
			add(CodeMinLength, fmt.Sprintf("Must be at least %d characters", *rules.MinLength))
		}
		if rules.MaxLength != nil && length > *rules.MaxLength {
			add(CodeMaxLength, fmt.Sprintf("Must be no more than %d characters", *rules.MaxLength))
		}
		if rules.Pattern != "" {
			if re := v.compile(q.ID, rules.Pattern); re != nil && !re.MatchString(s) {
				add(CodePatternMismatch, "Invalid format")
			}
		}
	}

	if len(rules.AllowedValues) > 0 && !allowed(rules.AllowedValues, value) {
		add(CodeInvalidOption, "Selected option is not allowed")
	}

	if n, ok := toFloat(value); ok {
		if rules.Min != nil && n < *rules.Min {
			add(CodeMinValue, "Value must be at least "+formatNumber(*rules.Min))
		}
		if rules.Max != nil && n > *rules.Max {
			add(CodeMaxValue, "Value must be no more than "+formatNumber(*rules.Max))
		}
	}

	return errs
}

// allowed requires every selected element of a list answer to be allowed.
func allowed(allowedValues []interface{}, value interface{}) bool {
	if selected, ok := toList(value); ok {
		for _, item := range selected {
			if !containsValue(allowedValues, item) {
				return false
			}
		}
		return true
	}
	return containsValue(allowedValues, value)
}

func (v *Validator) compile(questionID, pattern string) *regexp.Regexp {
	v.mu.Lock()
	defer v.mu.Unlock()

	if re, ok := v.patterns[pattern]; ok {
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		v.log.Warn("Invalid regex pattern in question config", map[string]interface{}{
			"questionId": questionID,
			"pattern":    pattern,
			"error":      err.Error(),
		})
		re = nil
	}
	v.patterns[pattern] = re
	return re
}

// ValidateSession validates the visible question sequence of bp. Hidden
// questions never produce gaps.
func (v *Validator) ValidateSession(bp models.Blueprint, questions QuestionLookup, answers map[string]interface{}) Summary {
	summary := Summary{Errors: []ValidationError{}, Gaps: []models.Gap{}}

	for _, q := range VisibleSequence(bp, questions, answers) {
		for _, e := range v.ValidateAnswer(q, answers[q.ID]) {
			summary.Errors = append(summary.Errors, e)
			summary.Gaps = append(summary.Gaps, models.Gap{
				QuestionID: q.ID,
				Reason:     e.Message,
				Severity:   gapSeverity(e.Severity),
			})
		}
	}

	summary.IsValid = len(summary.Errors) == 0
	return summary
}

func gapSeverity(s Severity) models.Level {
	if s == SeverityError {
		return models.LevelHigh
	}
	return models.LevelMedium
}
