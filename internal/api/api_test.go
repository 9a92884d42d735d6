package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarity-workers/internal/analysis"
	"clarity-workers/internal/catalog"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/document"
	"clarity-workers/internal/engine"
	"clarity-workers/internal/models"
	"clarity-workers/internal/service"
	"clarity-workers/internal/session"
)

func testCatalog() *catalog.StaticSource {
	minLen := 10
	return &catalog.StaticSource{
		QuestionList: []models.Question{
			{ID: "q1", Text: "What problem?", Category: "Problem", InputType: models.InputTypeTextarea,
				ValidationRules: &models.ValidationRules{Required: true, MinLength: &minLen}},
			{ID: "q2", Text: "Who has it?", Category: "Persona", InputType: models.InputTypeText},
		},
		BlueprintList: []models.Blueprint{{
			ID:      "default",
			Version: "1.0",
			Sections: []models.Section{
				{ID: "problem", Title: "Problem", QuestionIDs: []string{"q1"}},
				{ID: "persona", Title: "Persona", QuestionIDs: []string{"q2"}},
			},
		}},
		TemplateList: []models.TemplateConfig{{ID: "brief", Locale: "en",
			Body: `<h1>{{documentTitle}}</h1><h2>Problem</h2><p>{{rawAnswers.q1}}</p>`}},
		OutputList: []models.OutputConfig{{ID: "product-brief", Name: "Product Brief", TemplateID: "brief"}},
		ResearchList: []models.ResearchQuestion{
			{ID: "r2", Area: "market", Label: "Competitors", DependsOn: []string{"r1"}},
			{ID: "r1", Area: "market", Label: "Segments"},
		},
	}
}

func newTestServer(t *testing.T, opts RouterOptions) *httptest.Server {
	return newTestServerWith(t, testCatalog(), opts)
}

func newTestServerWith(t *testing.T, src catalog.Source, opts RouterOptions) *httptest.Server {
	log := logger.NewTestLogger(t)
	p := service.New(service.Deps{
		Catalog:    src,
		Validator:  engine.NewValidator(log),
		Aggregator: analysis.NewAggregator(log, analysis.DefaultAnalyzers(nil, log)...),
		Generator:  document.NewGenerator(document.NewAdapter(document.StubTranslator{}, document.NewMemoryCache(), log), log),
		Gate:       session.NewGate(session.NewMemoryStore(), "", log, session.WithPerSessionKeys()),
	}, log)

	srv := httptest.NewServer(NewRouter(p, opts, log))
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorBody      `json:"error"`
}

func call(t *testing.T, method, url string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func TestAPI_InterviewFlow(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	base := srv.URL + "/api/v1"

	resp, env := call(t, http.MethodPost, base+"/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var s models.Session
	decodeData(t, env, &s)
	require.NotEmpty(t, s.SessionID)
	assert.Equal(t, "q1", s.CurrentQuestionID)
	sessionURL := base + "/sessions/" + s.SessionID

	resp, env = call(t, http.MethodPost, sessionURL+"/answers", AnswerRequest{QuestionID: "q1", Value: "too short"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var answer AnswerResponse
	decodeData(t, env, &answer)
	require.Len(t, answer.Errors, 1)
	assert.Equal(t, "q1", answer.Errors[0].QuestionID)
	assert.False(t, answer.Summary.IsValid)

	resp, env = call(t, http.MethodPost, sessionURL+"/answers", AnswerRequest{
		QuestionID: "q1", Value: "Teams lose hours on manual scheduling", Confidence: models.LevelHigh,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, env, &answer)
	assert.Empty(t, answer.Errors)
	assert.Equal(t, "q2", answer.Session.CurrentQuestionID)

	resp, env = call(t, http.MethodGet, sessionURL+"/questions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var questions struct {
		CurrentQuestionID string            `json:"currentQuestionId"`
		Questions         []models.Question `json:"questions"`
	}
	decodeData(t, env, &questions)
	assert.Equal(t, "q2", questions.CurrentQuestionID)
	assert.Len(t, questions.Questions, 2)

	resp, env = call(t, http.MethodPost, sessionURL+"/validate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var validated ValidateResponse
	decodeData(t, env, &validated)
	assert.True(t, validated.Summary.IsValid)
	assert.True(t, validated.Saved)
	assert.Equal(t, 100, validated.Session.CompletionBySection["problem"].Completeness)

	resp, env = call(t, http.MethodPost, sessionURL+"/analyze", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var analyzed AnalyzeResponse
	decodeData(t, env, &analyzed)
	assert.True(t, analyzed.Applied)
	assert.NotNil(t, analyzed.Warnings)

	resp, env = call(t, http.MethodGet, sessionURL+"/document", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		OutputID      string `json:"outputId"`
		EffectiveHTML string `json:"effectiveHtml"`
	}
	decodeData(t, env, &doc)
	assert.Equal(t, "product-brief", doc.OutputID)
	assert.Contains(t, doc.EffectiveHTML, "Teams lose hours on manual scheduling")

	resp, _ = call(t, http.MethodGet, sessionURL+"/preview", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = call(t, http.MethodPut, sessionURL+"/language", LanguageRequest{Locale: "de"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, env, &s)
	assert.Equal(t, "de", s.OutputLanguage)
}

func TestAPI_OverridesAndExport(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	base := srv.URL + "/api/v1"

	_, env := call(t, http.MethodPost, base+"/sessions", StartSessionRequest{BlueprintID: "default"})
	var s models.Session
	decodeData(t, env, &s)
	sessionURL := base + "/sessions/" + s.SessionID

	call(t, http.MethodPost, sessionURL+"/answers", AnswerRequest{QuestionID: "q1", Value: "Teams lose hours on manual scheduling"})

	overrideURL := fmt.Sprintf("%s/overrides/%s", sessionURL, models.FullDocumentSection)
	resp, env := call(t, http.MethodPut, overrideURL, OverrideRequest{OriginalText: "x", EditedText: "<p>Edited brief</p>"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, env, &s)
	assert.Contains(t, s.UserOverrides, models.FullDocumentSection)

	resp, err := http.Get(sessionURL + "/export?format=md")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/markdown; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "product-brief-"+s.SessionID+".md")
	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	assert.Equal(t, "Edited brief", strings.TrimSpace(buf.String()))

	resp, env = call(t, http.MethodDelete, overrideURL, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reverted models.Session
	decodeData(t, env, &reverted)
	assert.NotContains(t, reverted.UserOverrides, models.FullDocumentSection)

	md, err := http.Get(sessionURL + "/export?format=md")
	require.NoError(t, err)
	buf.Reset()
	buf.ReadFrom(md.Body)
	md.Body.Close()
	assert.NotContains(t, buf.String(), "Edited brief")
	assert.Contains(t, buf.String(), "manual scheduling")

	pdf, err := http.Get(sessionURL + "/export?format=pdf")
	require.NoError(t, err)
	buf.Reset()
	buf.ReadFrom(pdf.Body)
	pdf.Body.Close()
	assert.Equal(t, "application/pdf", pdf.Header.Get("Content-Type"))
	assert.Equal(t, "true", pdf.Header.Get("X-Export-Placeholder"))
	assert.Zero(t, buf.Len())
}

func TestAPI_Errors(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	base := srv.URL + "/api/v1"

	_, env := call(t, http.MethodPost, base+"/sessions", nil)
	var s models.Session
	decodeData(t, env, &s)
	sessionURL := base + "/sessions/" + s.SessionID

	tests := []struct {
		name       string
		method     string
		url        string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"unknown session", http.MethodGet, base + "/sessions/missing", nil, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"missing question id", http.MethodPost, sessionURL + "/answers", map[string]interface{}{"value": "x"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad confidence", http.MethodPost, sessionURL + "/answers", map[string]interface{}{"questionId": "q1", "confidence": "certain"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown question", http.MethodPost, sessionURL + "/answers", map[string]interface{}{"questionId": "q9"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"unsupported format", http.MethodGet, sessionURL + "/export?format=odt", nil, http.StatusBadRequest, "UNSUPPORTED_FORMAT"},
		{"unknown output", http.MethodGet, sessionURL + "/document?outputId=pitch-deck", nil, http.StatusNotFound, "OUTPUT_NOT_FOUND"},
		{"bad recipient", http.MethodGet, sessionURL + "/export?recipient=nope", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad locale", http.MethodPut, sessionURL + "/language", map[string]interface{}{"locale": "German"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"override without text", http.MethodPut, sessionURL + "/overrides/problem", map[string]interface{}{}, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := call(t, tt.method, tt.url, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestAPI_ResearchPlan(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})

	resp, env := call(t, http.MethodGet, srv.URL+"/api/v1/research/market/plan", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var plan struct {
		Ordered  []models.ResearchQuestion `json:"ordered"`
		Complete bool                      `json:"complete"`
	}
	decodeData(t, env, &plan)
	require.Len(t, plan.Ordered, 2)
	assert.Equal(t, "r1", plan.Ordered[0].ID)
	assert.Equal(t, "r2", plan.Ordered[1].ID)
	assert.True(t, plan.Complete)

	_, env = call(t, http.MethodGet, srv.URL+"/api/v1/research/legal/plan", nil)
	decodeData(t, env, &plan)
	assert.Empty(t, plan.Ordered)
}

func TestAPI_HealthAndReadiness(t *testing.T) {
	srv := newTestServer(t, RouterOptions{Checks: map[string]ReadinessCheck{
		"store": func(context.Context) error { return nil },
	}})

	resp, _ := call(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = call(t, http.MethodGet, srv.URL+"/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)

	failing := newTestServer(t, RouterOptions{Checks: map[string]ReadinessCheck{
		"redis": func(context.Context) error { return fmt.Errorf("connection refused") },
	}})
	resp, env := call(t, http.MethodGet, failing.URL+"/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(env.Data), "connection refused")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor("SOMETHING_ELSE"))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor("ANALYSIS_SERVICE_TIMEOUT"))
	assert.Equal(t, http.StatusBadGateway, statusFor("EXTERNAL_SERVICE_ERROR"))
}

func TestAPI_CatalogEdits(t *testing.T) {
	overlay := catalog.NewOverlay(testCatalog())
	srv := newTestServerWith(t, overlay, RouterOptions{Catalog: overlay})
	base := srv.URL + "/api/v1"

	_, env := call(t, http.MethodPost, base+"/sessions", nil)
	var s models.Session
	decodeData(t, env, &s)
	sessionURL := base + "/sessions/" + s.SessionID
	call(t, http.MethodPost, sessionURL+"/answers", AnswerRequest{QuestionID: "q1", Value: "Teams lose hours on manual scheduling"})

	questionTexts := func(t *testing.T) []string {
		_, env := call(t, http.MethodGet, sessionURL+"/questions", nil)
		var body struct {
			Questions []models.Question `json:"questions"`
		}
		decodeData(t, env, &body)
		var texts []string
		for _, q := range body.Questions {
			texts = append(texts, q.Text)
		}
		return texts
	}
	documentHTML := func(t *testing.T) string {
		resp, env := call(t, http.MethodGet, sessionURL+"/document", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var doc DocumentResponse
		decodeData(t, env, &doc)
		return doc.HTML
	}

	t.Run("questions", func(t *testing.T) {
		custom := QuestionsRequest{Questions: []models.Question{
			{ID: "q1", Text: "Which pain do you remove?", Category: "Problem", InputType: models.InputTypeTextarea},
			{ID: "q2", Text: "Who feels it most?", Category: "Persona", InputType: models.InputTypeText},
		}}
		resp, _ := call(t, http.MethodPut, base+"/catalog/questions", custom)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{"Which pain do you remove?", "Who feels it most?"}, questionTexts(t))

		resp, _ = call(t, http.MethodDelete, base+"/catalog/questions", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{"What problem?", "Who has it?"}, questionTexts(t))
	})

	t.Run("template body", func(t *testing.T) {
		bodyURL := base + "/catalog/templates/brief/body"
		resp, _ := call(t, http.MethodPut, bodyURL, TemplateBodyRequest{Body: "<p>Any: {{rawAnswers.q1}}</p>"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp, _ = call(t, http.MethodPut, bodyURL+"?locale=en", TemplateBodyRequest{Body: "<p>English: {{rawAnswers.q1}}</p>"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, documentHTML(t), "English: Teams lose hours")

		call(t, http.MethodDelete, bodyURL+"?locale=en", nil)
		assert.Contains(t, documentHTML(t), "Any: Teams lose hours")

		call(t, http.MethodDelete, bodyURL, nil)
		assert.Contains(t, documentHTML(t), "<h2>Problem</h2>")
	})

	t.Run("invalid requests", func(t *testing.T) {
		tests := []struct {
			name string
			url  string
			body interface{}
		}{
			{"empty question list", base + "/catalog/questions", map[string]interface{}{"questions": []interface{}{}}},
			{"question without text", base + "/catalog/questions", QuestionsRequest{Questions: []models.Question{{ID: "q1"}}}},
			{"duplicate question", base + "/catalog/questions", QuestionsRequest{Questions: []models.Question{
				{ID: "q1", Text: "a"}, {ID: "q1", Text: "b"}}}},
			{"empty body", base + "/catalog/templates/brief/body", map[string]interface{}{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				resp, env := call(t, http.MethodPut, tt.url, tt.body)
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
				require.NotNil(t, env.Error)
				assert.Equal(t, "INVALID_INPUT", env.Error.Code)
			})
		}
		assert.Equal(t, []string{"What problem?", "Who has it?"}, questionTexts(t))
	})
}

func TestAPI_CatalogEditsDisabled(t *testing.T) {
	srv := newTestServer(t, RouterOptions{})
	resp, _ := call(t, http.MethodPut, srv.URL+"/api/v1/catalog/questions", QuestionsRequest{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
