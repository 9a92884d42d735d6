package document

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/aymerick/raymond"

	"clarity-workers/internal/models"
)

const DocumentTitle = "Product Clarity Brief"

// Context is the data a document template is rendered against.
type Context struct {
	Session             SessionInfo                         `json:"session"`
	RawAnswers          map[string]interface{}              `json:"rawAnswers"`
	DerivedInferences   models.DerivedInferences            `json:"derivedInferences"`
	Gaps                []models.Gap                        `json:"gaps"`
	CompletionBySection map[string]models.SectionCompletion `json:"completionBySection"`
	DocumentTitle       string                              `json:"documentTitle"`
	GeneratedAt         time.Time                           `json:"generatedAt"`
	OutputLanguage      string                              `json:"outputLanguage"`
}

type SessionInfo struct {
	SessionID        string    `json:"sessionId"`
	BlueprintVersion string    `json:"blueprintVersion"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewContext binds a session snapshot. Answers are denormalized to bare
// values.
func NewContext(s *models.Session, now time.Time) Context {
	gaps := s.Gaps
	if gaps == nil {
		gaps = []models.Gap{}
	}
	completion := s.CompletionBySection
	if completion == nil {
		completion = map[string]models.SectionCompletion{}
	}
	inferences := s.DerivedInferences
	if inferences.Provenance == nil {
		inferences = models.NewDerivedInferences()
	}
	return Context{
		Session: SessionInfo{
			SessionID:        s.SessionID,
			BlueprintVersion: s.BlueprintVersion,
			Timestamp:        s.Timestamp,
		},
		RawAnswers:          s.AnswerValues(),
		DerivedInferences:   inferences,
		Gaps:                gaps,
		CompletionBySection: completion,
		DocumentTitle:       DocumentTitle,
		GeneratedAt:         now.UTC(),
		OutputLanguage:      s.OutputLanguage,
	}
}

// toTemplateData converts ctx through its JSON form so templates address
// fields by their camelCase names.
func toTemplateData(ctx interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(ctx)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func templateHelpers() map[string]interface{} {
	return map[string]interface{}{
		"join":       joinHelper,
		"formatDate": formatDateHelper,
		"get":        getHelper,
	}
}

func joinHelper(items interface{}, separator interface{}) string {
	sep, ok := separator.(string)
	if !ok {
		sep = ", "
	}
	rv := reflect.ValueOf(items)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return ""
	}
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = raymond.Str(rv.Index(i).Interface())
	}
	return strings.Join(parts, sep)
}

func formatDateHelper(value interface{}) string {
	s, ok := value.(string)
	if !ok || s == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.Format("1/2/2006")
}

func getHelper(obj interface{}, prop string) string {
	m, ok := obj.(map[string]interface{})
	if !ok {
		return ""
	}
	v, ok := m[prop]
	if !ok || v == nil {
		return ""
	}
	return raymond.Str(v)
}

// Render binds ctx into a Handlebars template. Missing fields render empty.
// A template that fails to parse or execute renders as a visible error
// message instead of returning an error.
func Render(body string, ctx interface{}) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = renderError(fmt.Errorf("%v", r))
		}
	}()

	data, err := toTemplateData(ctx)
	if err != nil {
		return renderError(err)
	}

	tpl, err := raymond.Parse(body)
	if err != nil {
		return renderError(err)
	}
	tpl.RegisterHelpers(templateHelpers())

	result, err := tpl.Exec(data)
	if err != nil {
		return renderError(err)
	}
	return result
}

func renderError(err error) string {
	return "Error generating content: " + err.Error()
}
