package analyzesession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"clarity-workers/internal/analysis"
	"clarity-workers/internal/common/config"
	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/models"
	"clarity-workers/internal/session"
)

type fakePipeline struct {
	report  analysis.Report
	applied bool
	err     error
}

func (f *fakePipeline) AnalyzeSession(_ context.Context, id string) (*models.Session, analysis.Report, bool, error) {
	if f.err != nil {
		return nil, analysis.Report{}, false, f.err
	}
	s := session.StartNew("default", "1.0", time.Now())
	s.SessionID = id
	return s, f.report, f.applied, nil
}

func report(warnings ...string) analysis.Report {
	inf := models.NewDerivedInferences()
	inf.PainPoints = append(inf.PainPoints, models.PainPoint{ID: "pp_q1"}, models.PainPoint{ID: "pp_q4"})
	inf.Personas = append(inf.Personas, models.Persona{ID: "p_q2"})
	return analysis.Report{Generation: 7, Inferences: inf, Warnings: warnings}
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name     string
		fake     *fakePipeline
		wantErr  errors.ErrorCode
		validate func(t *testing.T, out *Output)
	}{
		{
			name: "applied report",
			fake: &fakePipeline{report: report(), applied: true},
			validate: func(t *testing.T, out *Output) {
				assert.True(t, out.Applied)
				assert.Equal(t, uint64(7), out.Generation)
				assert.Equal(t, 2, out.PainPoints)
				assert.Equal(t, 1, out.Personas)
				assert.Equal(t, 0, out.Viability)
				assert.NotNil(t, out.Warnings)
			},
		},
		{
			name: "superseded report completes without applying",
			fake: &fakePipeline{report: report(), applied: false},
			validate: func(t *testing.T, out *Output) {
				assert.False(t, out.Applied)
			},
		},
		{
			name: "viability failure degrades to a warning",
			fake: &fakePipeline{report: report("viability: Viability analysis unavailable: timeout"), applied: true},
			validate: func(t *testing.T, out *Output) {
				assert.Equal(t, []string{"viability: Viability analysis unavailable: timeout"}, out.Warnings)
			},
		},
		{
			name:    "missing session",
			fake:    &fakePipeline{err: errors.NewSessionNotFoundError("s1")},
			wantErr: errors.ErrCodeSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(LoadConfig(nil), tt.fake, logger.NewTestLogger(t))
			out, err := h.Execute(context.Background(), &Input{SessionID: "s1"})
			if tt.wantErr != "" {
				assert.True(t, errors.HasCode(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "s1", out.SessionID)
			tt.validate(t, out)
		})
	}
}

func TestHandler_Execute_LogsWarnings(t *testing.T) {
	log, logs := logger.NewObservedLogger(zapcore.WarnLevel)
	h := NewHandler(LoadConfig(nil), &fakePipeline{report: report("persona: low confidence"), applied: true}, log)

	_, err := h.Execute(context.Background(), &Input{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Analysis completed with warnings").Len())
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 45*time.Second, LoadConfig(nil).Timeout)

	cfg := LoadConfig(&config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: true, Timeout: 60000},
	}})
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, 5, cfg.MaxJobsActive)
}
