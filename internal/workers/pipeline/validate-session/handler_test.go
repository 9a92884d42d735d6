package validatesession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarity-workers/internal/common/config"
	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/validation"
	"clarity-workers/internal/engine"
	"clarity-workers/internal/models"
	"clarity-workers/internal/session"
)

type fakePipeline struct {
	sessions map[string]*models.Session
	summary  engine.Summary
	saveRes  session.SaveResult
	saved    []*models.Session
}

func (f *fakePipeline) Load(_ context.Context, id string) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.NewSessionNotFoundError(id)
	}
	return s, nil
}

func (f *fakePipeline) Validate(_ context.Context, s *models.Session) (*models.Session, engine.Summary, error) {
	next := session.ApplyValidation(s, f.summary.Gaps,
		map[string]models.SectionCompletion{"problem": {Completeness: 0, Clarity: 100}}, time.Now())
	return next, f.summary, nil
}

func (f *fakePipeline) Save(_ context.Context, s *models.Session) (*models.Session, session.SaveResult) {
	f.saved = append(f.saved, s)
	return s, f.saveRes
}

func newFake() *fakePipeline {
	s := session.StartNew("default", "1.0", time.Now())
	s.SessionID = "s1"
	return &fakePipeline{
		sessions: map[string]*models.Session{"s1": s},
		summary: engine.Summary{
			IsValid: false,
			Gaps:    []models.Gap{{QuestionID: "q1", Reason: "This question is required", Severity: models.LevelHigh}},
		},
		saveRes: session.SaveWritten,
	}
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name      string
		input     *Input
		saveRes   session.SaveResult
		wantCode  errors.ErrorCode
		wantSaved string
	}{
		{name: "validates and saves", input: &Input{SessionID: "s1"}, saveRes: session.SaveWritten, wantSaved: "written"},
		{name: "save failure still reports", input: &Input{SessionID: "s1"}, saveRes: session.SaveFailed, wantSaved: "failed"},
		{name: "unknown session", input: &Input{SessionID: "nope"}, wantCode: errors.ErrCodeSessionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			fake.saveRes = tt.saveRes
			h := NewHandler(LoadConfig(nil), fake, logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), tt.input)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.wantCode))
				assert.Empty(t, fake.saved)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "s1", out.SessionID)
			assert.False(t, out.IsValid)
			assert.Equal(t, 1, out.GapCount)
			assert.Equal(t, "q1", out.Gaps[0].QuestionID)
			assert.Contains(t, out.CompletionBySection, "problem")
			assert.Equal(t, tt.wantSaved, out.Saved)
			require.Len(t, fake.saved, 1)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(nil)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Timeout)

	cfg = LoadConfig(&config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: false, MaxJobsActive: 3, Timeout: 2500},
	}})
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.MaxJobsActive)
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout)
}

func TestInputSchema(t *testing.T) {
	assert.True(t, validation.ValidateInput(map[string]interface{}{"sessionId": "s1"}, InputSchema()).Valid)
	assert.False(t, validation.ValidateInput(map[string]interface{}{}, InputSchema()).Valid)
	assert.False(t, validation.ValidateInput(map[string]interface{}{"sessionId": ""}, InputSchema()).Valid)
}
