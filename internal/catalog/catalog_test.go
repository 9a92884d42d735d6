package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/models"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func fixtureDir(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, dir, "questions.json", `[
  {"id":"q1","text":"What problem?","category":"Problem","inputType":"textarea","validationRules":{"required":true,"minLength":10}},
  {"id":"q2","text":"Who?","category":"Persona","inputType":"text","conditionalLogic":{"showIf":{"questionId":"q1","value":["a","b"]}}}
]`)
	writeFile(t, dir, "blueprints.yaml", `
- id: default
  version: "1.0"
  sections:
    - id: problem
      title: Problem
      questionIds: [q1, q2, missing]
`)
	writeFile(t, dir, "outputs.json", `[{"id":"product-brief","name":"Brief","templateId":"product-brief-v1","formats":["md"]}]`)
	writeFile(t, dir, "research-questions.json", `[
  {"id":"r2","area":"market","label":"Competitors","dependsOn":["r1"]},
  {"id":"r1","area":"market","label":"Segments"},
  {"id":"t1","area":"tech","label":"Stack"}
]`)
	writeFile(t, dir, "templates/index.json", `[
  {"id":"product-brief-v1","locale":"en","path":"product-brief-v1.en.hbs"},
  {"id":"inline","body":"<p>{{documentTitle}}</p>"}
]`)
	writeFile(t, dir, "templates/product-brief-v1.en.hbs", `<h1>{{documentTitle}}</h1>`)
	return dir
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()
	src := NewFileSource(fixtureDir(t))

	questions, err := src.Questions(ctx)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.True(t, questions[0].ValidationRules.Required)
	assert.Equal(t, 10, *questions[0].ValidationRules.MinLength)
	assert.Equal(t, []interface{}{"a", "b"}, questions[1].ConditionalLogic.ShowIf.Value)

	blueprints, err := src.Blueprints(ctx)
	require.NoError(t, err)
	require.Len(t, blueprints, 1)
	assert.Equal(t, []string{"q1", "q2", "missing"}, blueprints[0].QuestionIDs())

	templates, err := src.Templates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 2)

	body, err := src.TemplateBody(ctx, templates[0])
	require.NoError(t, err)
	assert.Equal(t, "<h1>{{documentTitle}}</h1>", body)

	body, err = src.TemplateBody(ctx, templates[1])
	require.NoError(t, err)
	assert.Equal(t, "<p>{{documentTitle}}</p>", body)

	_, err = src.TemplateBody(ctx, models.TemplateConfig{ID: "x", Path: "../../etc/passwd"})
	assert.Error(t, err)
}

func TestFileSource_SchemaViolation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "questions.json", `[{"id":"q1","text":"x","category":"c","inputType":"slider"}]`)

	_, err := NewFileSource(dir).Questions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}

func TestLoad_DegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "questions.json", `[{"id":"q1","text":"x","category":"Problem","inputType":"text"}]`)
	writeFile(t, dir, "outputs.json", `{not json`)

	log, logs := logger.NewObservedLogger(zapcore.WarnLevel)
	lookup, err := Load(context.Background(), NewFileSource(dir), log)
	require.NoError(t, err)

	assert.Len(t, lookup.Questions(), 1)
	assert.NotNil(t, lookup.Outputs())
	assert.Empty(t, lookup.Outputs())
	assert.Empty(t, lookup.Blueprints())
	assert.Empty(t, lookup.Templates())

	// blueprints, templates, outputs, research
	assert.Equal(t, 4, logs.FilterMessage("Catalog fetch failed, using empty list").Len())
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, NewFileSource(fixtureDir(t)), logger.NewNoOpLogger())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookup(t *testing.T) {
	lookup, err := Load(context.Background(), NewFileSource(fixtureDir(t)), logger.NewTestLogger(t))
	require.NoError(t, err)

	q, ok := lookup.Question("q2")
	require.True(t, ok)
	assert.Equal(t, "Persona", q.Category)
	_, ok = lookup.Question("missing")
	assert.False(t, ok)

	bp, ok := lookup.Blueprint("")
	require.True(t, ok)
	assert.Equal(t, "default", bp.ID)
	_, ok = lookup.Blueprint("other")
	assert.False(t, ok)

	out, ok := lookup.Output("product-brief")
	require.True(t, ok)
	assert.Equal(t, "product-brief-v1", out.TemplateID)

	assert.Len(t, lookup.ResearchQuestions("market"), 2)
	assert.Len(t, lookup.ResearchQuestions(""), 3)
	assert.Equal(t, []string{"market", "tech"}, lookup.ResearchAreas())

	body, err := lookup.TemplateBody(context.Background(), lookup.Templates()[0])
	require.NoError(t, err)
	assert.Contains(t, body, "documentTitle")
}

func TestOverlay(t *testing.T) {
	ctx := context.Background()
	overlay := NewOverlay(NewFileSource(fixtureDir(t)))

	overlay.SetQuestions([]models.Question{{ID: "custom", Text: "Custom", Category: "Problem", InputType: models.InputTypeText}})
	questions, err := overlay.Questions(ctx)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "custom", questions[0].ID)

	overlay.SetQuestions(nil)
	questions, err = overlay.Questions(ctx)
	require.NoError(t, err)
	assert.Len(t, questions, 2)

	tpl := models.TemplateConfig{ID: "product-brief-v1", Locale: "en", Path: "product-brief-v1.en.hbs"}
	overlay.SetTemplateBody("product-brief-v1", "", "<p>any locale</p>")
	body, err := overlay.TemplateBody(ctx, tpl)
	require.NoError(t, err)
	assert.Equal(t, "<p>any locale</p>", body)

	overlay.SetTemplateBody("product-brief-v1", "en", "<p>english</p>")
	body, err = overlay.TemplateBody(ctx, tpl)
	require.NoError(t, err)
	assert.Equal(t, "<p>english</p>", body)

	overlay.ClearTemplateBody("product-brief-v1", "en")
	overlay.ClearTemplateBody("product-brief-v1", "")
	body, err = overlay.TemplateBody(ctx, tpl)
	require.NoError(t, err)
	assert.Equal(t, "<h1>{{documentTitle}}</h1>", body)
}

type countingSource struct {
	Source
	calls int32
	fail  bool
}

func (c *countingSource) Questions(ctx context.Context) ([]models.Question, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.fail {
		return nil, errors.New("boom")
	}
	return c.Source.Questions(ctx)
}

func TestCachedSource(t *testing.T) {
	ctx := context.Background()
	base := &countingSource{Source: NewFileSource(fixtureDir(t))}
	cache := NewCachedSource(base, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := cache.Questions(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&base.calls))

	cache.Invalidate()
	_, err := cache.Questions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&base.calls))

	now := time.Now()
	cache.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = cache.Questions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&base.calls))
}

func TestCachedSource_ErrorsNotCached(t *testing.T) {
	base := &countingSource{Source: NewFileSource(fixtureDir(t)), fail: true}
	cache := NewCachedSource(base, 0)

	_, err := cache.Questions(context.Background())
	require.Error(t, err)
	_, err = cache.Questions(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&base.calls))
}

func TestWatcher_InvalidatesOnChange(t *testing.T) {
	dir := fixtureDir(t)
	var invalidations int32

	w, err := newWatcher(dir, func() { atomic.AddInt32(&invalidations, 1) }, logger.NewNoOpLogger(), 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, dir, "questions.json", `[]`)
	writeFile(t, dir, "templates/product-brief-v1.en.hbs", `<h1>changed</h1>`)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&invalidations) >= 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestLint(t *testing.T) {
	ctx := context.Background()

	problems := Lint(ctx, NewFileSource(fixtureDir(t)))
	require.Len(t, problems, 1)
	assert.Equal(t, "blueprint", problems[0].Kind)
	assert.Contains(t, problems[0].String(), `unknown question "missing"`)

	src := &StaticSource{
		QuestionList: []models.Question{
			{ID: "q1", ConditionalLogic: &models.ConditionalLogic{HideIf: &models.Condition{QuestionID: "q9"}}},
			{ID: "q1"},
		},
		TemplateList: []models.TemplateConfig{{ID: "t1", Body: "<p></p>"}},
		OutputList:   []models.OutputConfig{{ID: "brief", TemplateID: "t2"}},
		ResearchList: []models.ResearchQuestion{
			{ID: "a", Area: "market", DependsOn: []string{"b"}},
			{ID: "b", Area: "market", DependsOn: []string{"a"}},
		},
	}
	var kinds []string
	for _, p := range Lint(ctx, src) {
		kinds = append(kinds, p.Kind)
	}
	assert.ElementsMatch(t, []string{"question", "question", "output", "research"}, kinds)
}

func TestShippedCatalog(t *testing.T) {
	dir := filepath.Join("..", "..", "configs", "catalog")
	if _, err := os.Stat(dir); err != nil {
		t.Skip("shipped catalog not present")
	}
	ctx := context.Background()
	src := NewFileSource(dir)

	assert.Empty(t, Lint(ctx, src))

	lookup, err := Load(ctx, src, logger.NewTestLogger(t))
	require.NoError(t, err)
	bp, ok := lookup.Blueprint("")
	require.True(t, ok)
	assert.Equal(t, "default", bp.ID)
	_, ok = lookup.Output(models.DefaultOutputID)
	assert.True(t, ok)
	assert.Equal(t, []string{"market", "technical", "users"}, lookup.ResearchAreas())
}
