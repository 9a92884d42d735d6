package catalog

import (
	"context"
	"sync"

	"clarity-workers/internal/models"
)

// Overlay layers operator customisations over a base Source: a replacement
// question list and per-template body overrides, optionally locale-scoped.
type Overlay struct {
	base Source

	mu        sync.RWMutex
	questions []models.Question
	bodies    map[overlayKey]string
}

type overlayKey struct {
	templateID string
	locale     string
}

func NewOverlay(base Source) *Overlay {
	return &Overlay{base: base, bodies: map[overlayKey]string{}}
}

// SetQuestions replaces the question catalog. A nil slice restores the base.
func (o *Overlay) SetQuestions(questions []models.Question) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if questions == nil {
		o.questions = nil
		return
	}
	o.questions = append([]models.Question(nil), questions...)
}

// SetTemplateBody overrides the body of templateID. An empty locale applies
// to every locale without a more specific override.
func (o *Overlay) SetTemplateBody(templateID, locale, body string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bodies[overlayKey{templateID, locale}] = body
}

func (o *Overlay) ClearTemplateBody(templateID, locale string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.bodies, overlayKey{templateID, locale})
}

func (o *Overlay) Questions(ctx context.Context) ([]models.Question, error) {
	o.mu.RLock()
	custom := o.questions
	o.mu.RUnlock()
	if custom != nil {
		return append([]models.Question(nil), custom...), nil
	}
	return o.base.Questions(ctx)
}

func (o *Overlay) Blueprints(ctx context.Context) ([]models.Blueprint, error) {
	return o.base.Blueprints(ctx)
}

func (o *Overlay) Templates(ctx context.Context) ([]models.TemplateConfig, error) {
	return o.base.Templates(ctx)
}

func (o *Overlay) Outputs(ctx context.Context) ([]models.OutputConfig, error) {
	return o.base.Outputs(ctx)
}

func (o *Overlay) ResearchQuestions(ctx context.Context) ([]models.ResearchQuestion, error) {
	return o.base.ResearchQuestions(ctx)
}

func (o *Overlay) TemplateBody(ctx context.Context, tpl models.TemplateConfig) (string, error) {
	o.mu.RLock()
	body, ok := o.bodies[overlayKey{tpl.ID, tpl.EffectiveLocale()}]
	if !ok {
		body, ok = o.bodies[overlayKey{tpl.ID, ""}]
	}
	o.mu.RUnlock()
	if ok {
		return body, nil
	}
	return o.base.TemplateBody(ctx, tpl)
}
