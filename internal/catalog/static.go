package catalog

import (
	"context"

	"clarity-workers/internal/models"
)

// StaticSource serves catalogs held in memory. Template bodies must be
// inline.
type StaticSource struct {
	QuestionList  []models.Question
	BlueprintList []models.Blueprint
	TemplateList  []models.TemplateConfig
	OutputList    []models.OutputConfig
	ResearchList  []models.ResearchQuestion
}

func (s *StaticSource) Questions(context.Context) ([]models.Question, error) {
	return s.QuestionList, nil
}

func (s *StaticSource) Blueprints(context.Context) ([]models.Blueprint, error) {
	return s.BlueprintList, nil
}

func (s *StaticSource) Templates(context.Context) ([]models.TemplateConfig, error) {
	return s.TemplateList, nil
}

func (s *StaticSource) Outputs(context.Context) ([]models.OutputConfig, error) {
	return s.OutputList, nil
}

func (s *StaticSource) ResearchQuestions(context.Context) ([]models.ResearchQuestion, error) {
	return s.ResearchList, nil
}

func (s *StaticSource) TemplateBody(_ context.Context, tpl models.TemplateConfig) (string, error) {
	return tpl.Body, nil
}
