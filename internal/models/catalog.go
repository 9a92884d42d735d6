// internal/models/catalog.go
package models

// Blueprint is an ordered set of question sections defining one interview flow.
type Blueprint struct {
	ID          string    `json:"id" yaml:"id"`
	Version     string    `json:"version" yaml:"version"`
	Name        string    `json:"name,omitempty" yaml:"name,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Sections    []Section `json:"sections" yaml:"sections"`
}

type Section struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	QuestionIDs []string `json:"questionIds" yaml:"questionIds"`
}

// QuestionIDs returns the canonical question sequence before visibility filtering.
func (b Blueprint) QuestionIDs() []string {
	var ids []string
	for _, s := range b.Sections {
		ids = append(ids, s.QuestionIDs...)
	}
	return ids
}

// TemplateConfig is one entry of the template index. Several entries may share
// an ID and differ by Locale. Body, when set, takes precedence over Path.
type TemplateConfig struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Locale string `json:"locale,omitempty" yaml:"locale,omitempty"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Body   string `json:"body,omitempty" yaml:"body,omitempty"`
}

// EffectiveLocale treats entries without a locale as English.
func (t TemplateConfig) EffectiveLocale() string {
	if t.Locale == "" {
		return DefaultLocale
	}
	return t.Locale
}

// OutputConfig describes one producible document.
type OutputConfig struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	TemplateID string   `json:"templateId" yaml:"templateId"`
	Formats    []string `json:"formats,omitempty" yaml:"formats,omitempty"`
	Sections   []string `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// ResearchQuestion is a declared research step. DependsOn forms a DAG per area.
type ResearchQuestion struct {
	ID        string   `json:"id" yaml:"id"`
	Area      string   `json:"area" yaml:"area"`
	Label     string   `json:"label" yaml:"label"`
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	OutputKey string   `json:"outputKey,omitempty" yaml:"outputKey,omitempty"`
}

const (
	DefaultLocale       = "en"
	DefaultOutputID     = "product-brief"
	FullDocumentSection = "full-doc"
)
