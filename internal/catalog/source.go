// Package catalog loads the question, blueprint, template, output and research
// catalogs and exposes them to one pipeline run through a Lookup.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"clarity-workers/internal/common/validation"
	"clarity-workers/internal/models"
)

// Source is the configuration source. Each method fetches one catalog array.
type Source interface {
	Questions(ctx context.Context) ([]models.Question, error)
	Blueprints(ctx context.Context) ([]models.Blueprint, error)
	Templates(ctx context.Context) ([]models.TemplateConfig, error)
	Outputs(ctx context.Context) ([]models.OutputConfig, error)
	ResearchQuestions(ctx context.Context) ([]models.ResearchQuestion, error)
	TemplateBody(ctx context.Context, tpl models.TemplateConfig) (string, error)
}

// FileSource reads catalogs from a directory:
//
//	questions.{json,yaml,yml}
//	blueprints.{json,yaml,yml}
//	outputs.{json,yaml,yml}
//	research-questions.{json,yaml,yml}
//	templates/index.{json,yaml,yml}   (template paths are relative to templates/)
//
// Every document is checked against its JSON schema before decoding.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

var fileBases = map[string]string{
	validation.KindQuestions:  "questions",
	validation.KindBlueprints: "blueprints",
	validation.KindTemplates:  filepath.Join("templates", "index"),
	validation.KindOutputs:    "outputs",
	validation.KindResearch:   "research-questions",
}

func (s *FileSource) Questions(ctx context.Context) ([]models.Question, error) {
	var out []models.Question
	return out, s.load(ctx, validation.KindQuestions, &out)
}

func (s *FileSource) Blueprints(ctx context.Context) ([]models.Blueprint, error) {
	var out []models.Blueprint
	return out, s.load(ctx, validation.KindBlueprints, &out)
}

func (s *FileSource) Templates(ctx context.Context) ([]models.TemplateConfig, error) {
	var out []models.TemplateConfig
	return out, s.load(ctx, validation.KindTemplates, &out)
}

func (s *FileSource) Outputs(ctx context.Context) ([]models.OutputConfig, error) {
	var out []models.OutputConfig
	return out, s.load(ctx, validation.KindOutputs, &out)
}

func (s *FileSource) ResearchQuestions(ctx context.Context) ([]models.ResearchQuestion, error) {
	var out []models.ResearchQuestion
	return out, s.load(ctx, validation.KindResearch, &out)
}

// TemplateBody returns the inline body, or reads Path under templates/.
func (s *FileSource) TemplateBody(ctx context.Context, tpl models.TemplateConfig) (string, error) {
	if tpl.Body != "" {
		return tpl.Body, nil
	}
	if tpl.Path == "" {
		return "", fmt.Errorf("template %s has neither body nor path", tpl.ID)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.Dir, "templates", filepath.Clean("/"+tpl.Path))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", tpl.ID, err)
	}
	return string(data), nil
}

// Paths lists the catalog files currently present, for the watcher.
func (s *FileSource) Paths() []string {
	var paths []string
	for _, base := range fileBases {
		if p, err := s.find(base); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

func (s *FileSource) find(base string) (string, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		p := filepath.Join(s.Dir, base+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no catalog file %s.{json,yaml,yml} in %s", base, s.Dir)
}

func (s *FileSource) load(ctx context.Context, kind string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.find(fileBases[kind])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(kind, path, data, out)
}

// Decode validates data against the schema for kind and decodes it into out.
// YAML is selected by a .yaml or .yml name suffix, JSON otherwise.
func Decode(kind, name string, data []byte, out interface{}) error {
	isYAML := strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")

	var generic interface{}
	if isYAML {
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	} else if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	result, err := validation.ValidateCatalog(kind, generic)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("%s failed schema validation: %s", name, strings.Join(result.GetErrorMessages(), "; "))
	}

	if isYAML {
		return yaml.Unmarshal(data, out)
	}
	return json.Unmarshal(data, out)
}
