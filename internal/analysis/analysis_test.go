package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarity-workers/internal/common/config"
	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/models"
)

type staticCatalog []models.Question

func (c staticCatalog) Questions() []models.Question { return c }

func testCatalog() staticCatalog {
	return staticCatalog{
		{ID: "q1", Category: "Problem", InputType: models.InputTypeTextarea},
		{ID: "q2", Category: "Persona", InputType: models.InputTypeText},
		{ID: "q3", Category: "Target Market", InputType: models.InputTypeText},
		{ID: "q4", Category: "Market", InputType: models.InputTypeNumber},
		{ID: "q5", Category: "Customer", InputType: models.InputTypeNumber},
		{ID: "q6", Category: "problem", InputType: models.InputTypeText},
	}
}

func sessionWith(answers map[string]interface{}) *models.Session {
	s := &models.Session{SessionID: "s1", BlueprintVersion: "1", RawAnswers: map[string]models.RawAnswer{}}
	for id, v := range answers {
		s.RawAnswers[id] = models.RawAnswer{Value: v, Confidence: models.LevelHigh}
	}
	return s
}

func TestPainPointAnalyzer(t *testing.T) {
	s := sessionWith(map[string]interface{}{
		"q1": "Users lose 3 hours/week on manual scheduling",
		"q6": "",
		"q2": "Ops managers",
	})

	res := PainPointAnalyzer{}.Analyze(context.Background(), s, testCatalog())
	require.Len(t, res.Outputs, 1)

	out := res.Outputs[0]
	assert.Equal(t, models.KindPainPoint, out.Type)
	assert.Equal(t, models.PainPoint{
		ID:          "pp_q1",
		Description: "Users lose 3 hours/week on manual scheduling",
		Severity:    models.LevelMedium,
		Notes:       "Extracted from user answer",
	}, out.Data)
	assert.Equal(t, []string{"q1"}, out.Provenance.References)
	assert.Equal(t, models.SourceUserInput, out.Provenance.Source)
	assert.Equal(t, models.LevelHigh, res.Confidence)
}

func TestPersonaLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ops managers", "Ops managers"},
		{"Ops managers, mid-size logistics firms", "Ops managers..."},
		{"A very long single clause persona description here", "A very long single clause pers..."},
		{"Short. Then more", "Short"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, personaLabel(tt.in), tt.in)
	}
}

func TestPersonaAnalyzer(t *testing.T) {
	s := sessionWith(map[string]interface{}{"q2": "Ops managers, mid-size logistics firms"})
	res := PersonaAnalyzer{}.Analyze(context.Background(), s, staticCatalog{
		{ID: "q2", Category: "Persona"},
		{ID: "q7", Category: "target audience"},
	})
	require.Len(t, res.Outputs, 1)
	p := res.Outputs[0].Data.(models.Persona)
	assert.Equal(t, "p_q2", p.ID)
	assert.Equal(t, "Ops managers...", p.Label)
	assert.Equal(t, models.LevelHigh, res.Confidence)

	s.RawAnswers["q7"] = models.RawAnswer{Value: "Devs", Confidence: models.LevelHigh}
	res = PersonaAnalyzer{}.Analyze(context.Background(), s, staticCatalog{
		{ID: "q2", Category: "Persona"},
		{ID: "q7", Category: "target audience"},
	})
	require.Len(t, res.Outputs, 2)
	assert.Equal(t, "p_q7", res.Outputs[1].Data.RecordID())
	assert.Equal(t, models.LevelLow, res.Confidence)
}

func TestMarketSizingAnalyzer(t *testing.T) {
	s := sessionWith(map[string]interface{}{
		"q3": "SMB logistics",
		"q4": float64(50),
		"q5": float64(20000),
	})
	res := MarketSizingAnalyzer{}.Analyze(context.Background(), s, testCatalog())
	require.Len(t, res.Outputs, 1)

	ms := res.Outputs[0].Data.(models.MarketSizing)
	assert.Equal(t, "ms_q3", ms.ID)
	assert.Equal(t, "SMB logistics", ms.Segment)
	require.NotNil(t, ms.TAM)
	assert.Equal(t, float64(1000000), *ms.TAM)
	assert.Equal(t, "Estimated from market inputs (TAM calculated as 50 * 20000)", ms.Notes)
	assert.Equal(t, []string{"q3", "q4", "q5"}, res.Outputs[0].Provenance.References)
	assert.Equal(t, models.LevelMedium, res.Confidence)
	assert.Empty(t, res.Warnings)
}

func TestMarketSizingAnalyzer_NoSegment(t *testing.T) {
	s := sessionWith(map[string]interface{}{"q4": float64(50)})
	res := MarketSizingAnalyzer{}.Analyze(context.Background(), s, testCatalog())
	assert.Empty(t, res.Outputs)
	assert.Equal(t, models.LevelLow, res.Confidence)
	assert.Equal(t, []string{"No market segment identified"}, res.Warnings)
}

func TestMarketSizingAnalyzer_SegmentWithoutNumbers(t *testing.T) {
	s := sessionWith(map[string]interface{}{"q3": "SMB logistics"})
	res := MarketSizingAnalyzer{}.Analyze(context.Background(), s, testCatalog())
	require.Len(t, res.Outputs, 1)
	ms := res.Outputs[0].Data.(models.MarketSizing)
	assert.Nil(t, ms.TAM)
	assert.Equal(t, "Estimated from market inputs", ms.Notes)
}

func viabilityServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.AnalysisConfig{BaseURL: srv.URL, Timeout: 2000}, logger.NewTestLogger(t))
}

func TestViabilityAnalyzer_Success(t *testing.T) {
	var got ViabilityRequest
	client := viabilityServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/analyze/viability", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"feasibility":"high","overallRisk":"medium",
			"keyConstraints":["budget"],
			"assumptions":["team of 3","12 month runway"],
			"suggestedFollowUpQuestions":[{"questionId":"f1","text":"Who pays?","section":"business","priority":"high"}]
		}`))
	})

	s := sessionWith(map[string]interface{}{"q2": "x", "q1": "y"})
	res := NewViabilityAnalyzer(client, logger.NewTestLogger(t)).Analyze(context.Background(), s, nil)

	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "default", got.BlueprintID)
	assert.Equal(t, "y", got.Answers["q1"].Value)

	require.Len(t, res.Outputs, 1)
	va := res.Outputs[0].Data.(models.ViabilityAssessment)
	assert.Equal(t, "va_s1", va.ID)
	assert.Equal(t, models.LevelHigh, va.Feasibility)
	assert.Equal(t, models.LevelMedium, va.OverallRisk)
	assert.Equal(t, []string{"budget"}, va.KeyConstraints)
	assert.Equal(t, "team of 3; 12 month runway", va.Notes)
	assert.Equal(t, models.SourceInference, res.Outputs[0].Provenance.Source)
	assert.Equal(t, []string{"q1", "q2"}, res.Outputs[0].Provenance.References)
	require.Len(t, res.FollowUps, 1)
	assert.Equal(t, "Who pays?", res.FollowUps[0].Text)
}

func TestViabilityAnalyzer_Degrades(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"bad request", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"feasibility":`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := viabilityServer(t, tt.handler)
			s := sessionWith(map[string]interface{}{"q1": "y"})
			res := NewViabilityAnalyzer(client, logger.NewNoOpLogger()).Analyze(context.Background(), s, nil)
			assert.Empty(t, res.Outputs)
			require.Len(t, res.Warnings, 1)
		})
	}
}

func TestViabilityClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := NewClient(config.AnalysisConfig{BaseURL: srv.URL, Timeout: 50}, logger.NewNoOpLogger())
	_, err := client.AnalyzeViability(context.Background(), ViabilityRequest{SessionID: "s1"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAnalysisServiceTimeout))
}

func TestViabilityAnalyzer_NoAnswersSkipsCall(t *testing.T) {
	called := false
	client := viabilityServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	res := NewViabilityAnalyzer(client, logger.NewNoOpLogger()).Analyze(context.Background(), sessionWith(nil), nil)
	assert.False(t, called)
	assert.Empty(t, res.Outputs)
	assert.Empty(t, res.Warnings)
}

type delayedAnalyzer struct {
	id    string
	delay time.Duration
	rec   models.Record
}

func (d delayedAnalyzer) ID() string { return d.id }

func (d delayedAnalyzer) Analyze(ctx context.Context, _ *models.Session, _ Catalog) Result {
	time.Sleep(d.delay)
	return Result{AnalyzerID: d.id, Outputs: []models.AnalyzerOutput{
		models.NewOutput(d.rec, models.Provenance{Source: models.SourceUserInput, References: []string{d.id}}),
	}}
}

type panickingAnalyzer struct{}

func (panickingAnalyzer) ID() string { return "boom" }

func (panickingAnalyzer) Analyze(context.Context, *models.Session, Catalog) Result {
	panic("analyzer exploded")
}

func TestAggregator_MergeOrderIndependentOfLatency(t *testing.T) {
	build := func(d1, d2 time.Duration) *Aggregator {
		return NewAggregator(logger.NewNoOpLogger(),
			delayedAnalyzer{id: "a", delay: d1, rec: models.PainPoint{ID: "first"}},
			delayedAnalyzer{id: "b", delay: d2, rec: models.PainPoint{ID: "second"}},
		)
	}

	fast := build(30*time.Millisecond, 0).Run(context.Background(), sessionWith(nil), staticCatalog{})
	slow := build(0, 30*time.Millisecond).Run(context.Background(), sessionWith(nil), staticCatalog{})

	assert.Equal(t, fast.Inferences, slow.Inferences)
	require.Len(t, fast.Inferences.PainPoints, 2)
	assert.Equal(t, "first", fast.Inferences.PainPoints[0].ID)
	assert.Equal(t, "second", fast.Inferences.PainPoints[1].ID)
	assert.Equal(t, []string{"a"}, fast.Inferences.Provenance["first"].References)
}

func TestAggregator_PanicIsolated(t *testing.T) {
	agg := NewAggregator(logger.NewNoOpLogger(), panickingAnalyzer{}, PainPointAnalyzer{})
	s := sessionWith(map[string]interface{}{"q1": "Users lose 3 hours/week on manual scheduling"})

	report := agg.Run(context.Background(), s, testCatalog())
	require.Len(t, report.Inferences.PainPoints, 1)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "boom: analyzer panicked")
}

func TestAggregator_GenerationsIncrease(t *testing.T) {
	agg := NewAggregator(logger.NewNoOpLogger())
	first := agg.Run(context.Background(), sessionWith(nil), staticCatalog{})
	second := agg.Run(context.Background(), sessionWith(nil), staticCatalog{})
	assert.Greater(t, second.Generation, first.Generation)
	assert.NotNil(t, first.Inferences.PainPoints)
	assert.NotNil(t, first.Warnings)
}

func TestAggregator_DefaultAnalyzersWithFailingService(t *testing.T) {
	client := viabilityServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	agg := NewAggregator(logger.NewNoOpLogger(), DefaultAnalyzers(client, logger.NewNoOpLogger())...)
	s := sessionWith(map[string]interface{}{
		"q1": "Users lose 3 hours/week on manual scheduling",
		"q2": "Ops managers",
		"q3": "SMB logistics",
	})

	report := agg.Run(context.Background(), s, testCatalog())
	assert.Len(t, report.Inferences.PainPoints, 1)
	assert.Len(t, report.Inferences.Personas, 1)
	assert.Len(t, report.Inferences.MarketSizing, 1)
	assert.Empty(t, report.Inferences.Viability)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], ViabilityAnalyzerID)
}
