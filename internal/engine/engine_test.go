package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/models"
)

type questionMap map[string]models.Question

func (m questionMap) Question(id string) (models.Question, bool) {
	q, ok := m[id]
	return q, ok
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestIsVisible(t *testing.T) {
	tests := []struct {
		name    string
		logic   *models.ConditionalLogic
		answers map[string]interface{}
		want    bool
	}{
		{
			name: "no logic",
			want: true,
		},
		{
			name:    "showIf matches",
			logic:   &models.ConditionalLogic{ShowIf: &models.Condition{QuestionID: "q1", Value: "yes"}},
			answers: map[string]interface{}{"q1": "yes"},
			want:    true,
		},
		{
			name:    "showIf does not match",
			logic:   &models.ConditionalLogic{ShowIf: &models.Condition{QuestionID: "q1", Value: "yes"}},
			answers: map[string]interface{}{"q1": "no"},
			want:    false,
		},
		{
			name:  "showIf unanswered",
			logic: &models.ConditionalLogic{ShowIf: &models.Condition{QuestionID: "q1", Value: "yes"}},
			want:  false,
		},
		{
			name: "hide wins over show",
			logic: &models.ConditionalLogic{
				ShowIf: &models.Condition{QuestionID: "q1", Value: "yes"},
				HideIf: &models.Condition{QuestionID: "q2", Value: "b2b"},
			},
			answers: map[string]interface{}{"q1": "yes", "q2": "b2b"},
			want:    false,
		},
		{
			name:    "hideIf not matching leaves default visible",
			logic:   &models.ConditionalLogic{HideIf: &models.Condition{QuestionID: "q2", Value: "b2b"}},
			answers: map[string]interface{}{"q2": "b2c"},
			want:    true,
		},
		{
			name:    "list value means membership",
			logic:   &models.ConditionalLogic{ShowIf: &models.Condition{QuestionID: "q1", Value: []interface{}{"a", "b"}}},
			answers: map[string]interface{}{"q1": "b"},
			want:    true,
		},
		{
			name:    "numbers compare across types",
			logic:   &models.ConditionalLogic{ShowIf: &models.Condition{QuestionID: "q1", Value: 3}},
			answers: map[string]interface{}{"q1": float64(3)},
			want:    true,
		},
		{
			name:    "multiselect answer matches any element",
			logic:   &models.ConditionalLogic{ShowIf: &models.Condition{QuestionID: "q1", Value: "web"}},
			answers: map[string]interface{}{"q1": []interface{}{"mobile", "web"}},
			want:    true,
		},
		{
			name:    "legacy dependsOn",
			logic:   &models.ConditionalLogic{DependsOn: "q1", ShowIfValue: true},
			answers: map[string]interface{}{"q1": true},
			want:    true,
		},
		{
			name:    "legacy dependsOn mismatch",
			logic:   &models.ConditionalLogic{DependsOn: "q1", ShowIfValue: true},
			answers: map[string]interface{}{"q1": false},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVisible(tt.logic, tt.answers))
		})
	}
}

func interviewFixture() (models.Blueprint, questionMap) {
	questions := questionMap{
		"q1": {ID: "q1", Category: "Problem", InputType: models.InputTypeTextarea,
			ValidationRules: &models.ValidationRules{Required: true, MinLength: intPtr(10)}},
		"q2": {ID: "q2", Category: "Persona", InputType: models.InputTypeSelect,
			ValidationRules: &models.ValidationRules{Required: true, AllowedValues: []interface{}{"b2b", "b2c"}}},
		"q3": {ID: "q3", Category: "Market", InputType: models.InputTypeNumber,
			ValidationRules:  &models.ValidationRules{Required: true, Min: floatPtr(1)},
			ConditionalLogic: &models.ConditionalLogic{ShowIf: &models.Condition{QuestionID: "q2", Value: "b2b"}}},
	}
	bp := models.Blueprint{ID: "default", Version: "1", Sections: []models.Section{
		{ID: "problem", QuestionIDs: []string{"q1", "dangling"}},
		{ID: "audience", QuestionIDs: []string{"q2", "q3"}},
	}}
	return bp, questions
}

func TestVisibleSequence(t *testing.T) {
	bp, questions := interviewFixture()

	seq := VisibleSequence(bp, questions, map[string]interface{}{"q2": "b2c"})
	ids := make([]string, len(seq))
	for i, q := range seq {
		ids[i] = q.ID
	}
	assert.Equal(t, []string{"q1", "q2"}, ids)

	seq = VisibleSequence(bp, questions, map[string]interface{}{"q2": "b2b"})
	assert.Len(t, seq, 3)

	// Idempotent for the same snapshot.
	assert.Equal(t, seq, VisibleSequence(bp, questions, map[string]interface{}{"q2": "b2b"}))
}

func TestNextQuestionID(t *testing.T) {
	bp, questions := interviewFixture()
	answers := map[string]interface{}{"q2": "b2c"}

	assert.Equal(t, "q1", NextQuestionID(bp, questions, answers, ""))
	assert.Equal(t, "q2", NextQuestionID(bp, questions, answers, "q1"))
	assert.Equal(t, "", NextQuestionID(bp, questions, answers, "q2"))
	assert.Equal(t, "q1", NextQuestionID(bp, questions, answers, "q3"))
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateAnswer(t *testing.T) {
	v := NewValidator(logger.NewTestLogger(t))

	tests := []struct {
		name  string
		rules *models.ValidationRules
		value interface{}
		want  []string
	}{
		{"required nil", &models.ValidationRules{Required: true, MinLength: intPtr(5)}, nil, []string{CodeRequired}},
		{"required empty string", &models.ValidationRules{Required: true, Pattern: "^x$"}, "", []string{CodeRequired}},
		{"required empty list", &models.ValidationRules{Required: true, AllowedValues: []interface{}{"a"}}, []interface{}{}, []string{CodeRequired}},
		{"optional empty", &models.ValidationRules{MinLength: intPtr(5)}, "", []string{}},
		{"no rules", nil, "anything", []string{}},
		{"too short", &models.ValidationRules{MinLength: intPtr(5)}, "abc", []string{CodeMinLength}},
		{"unicode length", &models.ValidationRules{MaxLength: intPtr(3)}, "héé", []string{}},
		{"too long and bad pattern", &models.ValidationRules{MaxLength: intPtr(3), Pattern: "^[0-9]+$"}, "abcd", []string{CodeMaxLength, CodePatternMismatch}},
		{"pattern match", &models.ValidationRules{Pattern: "^[a-z]+$"}, "abc", []string{}},
		{"malformed pattern skipped", &models.ValidationRules{Pattern: "([a-z"}, "abc", []string{}},
		{"option allowed", &models.ValidationRules{AllowedValues: []interface{}{"a", "b"}}, "a", []string{}},
		{"option not allowed", &models.ValidationRules{AllowedValues: []interface{}{"a", "b"}}, "c", []string{CodeInvalidOption}},
		{"multiselect all allowed", &models.ValidationRules{AllowedValues: []interface{}{"a", "b"}}, []interface{}{"a", "b"}, []string{}},
		{"multiselect one disallowed", &models.ValidationRules{AllowedValues: []interface{}{"a", "b"}}, []interface{}{"a", "z"}, []string{CodeInvalidOption}},
		{"below min", &models.ValidationRules{Min: floatPtr(10)}, 3, []string{CodeMinValue}},
		{"above max", &models.ValidationRules{Max: floatPtr(10)}, 11.5, []string{CodeMaxValue}},
		{"within bounds", &models.ValidationRules{Min: floatPtr(0), Max: floatPtr(10)}, float64(0), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := models.Question{ID: "q", ValidationRules: tt.rules}
			assert.Equal(t, tt.want, codes(v.ValidateAnswer(q, tt.value)))
		})
	}
}

func TestValidateAnswer_Messages(t *testing.T) {
	v := NewValidator(logger.NewNoOpLogger())
	q := models.Question{ID: "q", ValidationRules: &models.ValidationRules{MinLength: intPtr(10), Min: floatPtr(2.5)}}

	errs := v.ValidateAnswer(q, "short")
	require.Len(t, errs, 1)
	assert.Equal(t, "Must be at least 10 characters", errs[0].Message)
	assert.Equal(t, SeverityError, errs[0].Severity)
	assert.Equal(t, "q", errs[0].QuestionID)

	errs = v.ValidateAnswer(q, 1)
	require.Len(t, errs, 1)
	assert.Equal(t, "Value must be at least 2.5", errs[0].Message)

	errs = v.ValidateAnswer(models.Question{ID: "r", ValidationRules: &models.ValidationRules{Required: true}}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, "This question is required", errs[0].Message)
}

func TestValidateAnswer_MalformedPatternLoggedOnce(t *testing.T) {
	log, logs := logger.NewObservedLogger(zapcore.WarnLevel)
	v := NewValidator(log)
	q := models.Question{ID: "q", ValidationRules: &models.ValidationRules{Pattern: "(?<=x)"}}

	assert.Empty(t, v.ValidateAnswer(q, "abc"))
	assert.Empty(t, v.ValidateAnswer(q, "def"))
	assert.Equal(t, 1, logs.FilterMessage("Invalid regex pattern in question config").Len())
}

func TestValidateSession(t *testing.T) {
	bp, questions := interviewFixture()
	v := NewValidator(logger.NewNoOpLogger())

	// q3 is hidden, so its missing answer produces no gap.
	summary := v.ValidateSession(bp, questions, map[string]interface{}{"q1": "short", "q2": "b2c"})
	assert.False(t, summary.IsValid)
	require.Len(t, summary.Gaps, 1)
	assert.Equal(t, models.Gap{QuestionID: "q1", Reason: "Must be at least 10 characters", Severity: models.LevelHigh}, summary.Gaps[0])

	summary = v.ValidateSession(bp, questions, map[string]interface{}{"q1": "a long enough answer", "q2": "b2b"})
	assert.False(t, summary.IsValid)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "q3", summary.Errors[0].QuestionID)
	assert.Equal(t, CodeRequired, summary.Errors[0].Code)

	summary = v.ValidateSession(bp, questions, map[string]interface{}{"q1": "a long enough answer", "q2": "b2b", "q3": 4})
	assert.True(t, summary.IsValid)
	assert.NotNil(t, summary.Gaps)
	assert.Empty(t, summary.Gaps)
}

func TestOrderResearch(t *testing.T) {
	rq := func(id string, deps ...string) models.ResearchQuestion {
		return models.ResearchQuestion{ID: id, Area: "market", DependsOn: deps}
	}
	ids := func(s Schedule) []string {
		out := []string{}
		for _, q := range s.Ordered {
			out = append(out, q.ID)
		}
		return out
	}

	tests := []struct {
		name        string
		in          []models.ResearchQuestion
		want        []string
		unscheduled []string
	}{
		{
			name: "independent keep declared order",
			in:   []models.ResearchQuestion{rq("c"), rq("a"), rq("b")},
			want: []string{"c", "a", "b"},
		},
		{
			name: "batched by depth",
			in:   []models.ResearchQuestion{rq("d", "b"), rq("b", "a"), rq("a"), rq("c", "a")},
			want: []string{"a", "b", "c", "d"},
		},
		{
			name:        "cycle returns prefix",
			in:          []models.ResearchQuestion{rq("a"), rq("b", "c"), rq("c", "b")},
			want:        []string{"a"},
			unscheduled: []string{"b", "c"},
		},
		{
			name:        "missing dependency",
			in:          []models.ResearchQuestion{rq("a", "ghost")},
			want:        []string{},
			unscheduled: []string{"a"},
		},
		{
			name: "empty",
			in:   nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := OrderResearch(tt.in, logger.NewNoOpLogger())
			assert.Equal(t, tt.want, ids(s))
			assert.Equal(t, tt.unscheduled, s.Unscheduled)
			assert.Equal(t, len(tt.unscheduled) == 0, s.Complete())
		})
	}
}

func TestOrderResearch_WarnsOnCycle(t *testing.T) {
	log, logs := logger.NewObservedLogger(zapcore.WarnLevel)
	OrderResearch([]models.ResearchQuestion{{ID: "a", DependsOn: []string{"a"}}}, log)
	assert.Equal(t, 1, logs.FilterMessage("Circular or missing research dependencies detected").Len())
}

func TestCompletion(t *testing.T) {
	bp, questions := interviewFixture()
	v := NewValidator(logger.NewNoOpLogger())

	answers := map[string]interface{}{"q1": "short", "q2": "b2b"}
	summary := v.ValidateSession(bp, questions, answers)
	got := Completion(bp, questions, answers, summary.Errors)

	assert.Equal(t, models.SectionCompletion{Completeness: 100, Clarity: 0}, got["problem"])
	assert.Equal(t, models.SectionCompletion{Completeness: 50, Clarity: 100}, got["audience"])

	got = Completion(bp, questions, map[string]interface{}{}, nil)
	assert.Equal(t, models.SectionCompletion{Completeness: 0, Clarity: 100}, got["problem"])
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, IsTruthy(nil))
	assert.False(t, IsTruthy(""))
	assert.False(t, IsTruthy(0))
	assert.False(t, IsTruthy(false))
	assert.False(t, IsTruthy([]interface{}{}))
	assert.True(t, IsTruthy("x"))
	assert.True(t, IsTruthy(2.5))
	assert.True(t, IsTruthy([]string{"a"}))
}
