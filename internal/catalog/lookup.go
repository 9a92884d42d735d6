package catalog

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/metrics"
	"clarity-workers/internal/common/validation"
	"clarity-workers/internal/models"
)

// DefaultBlueprintID is used when a session does not name its blueprint.
const DefaultBlueprintID = "default"

// Lookup is an immutable, indexed view of the catalogs built once per
// pipeline invocation. It is never shared across configuration swaps.
type Lookup struct {
	questions     []models.Question
	questionIndex map[string]int
	blueprints    []models.Blueprint
	templates     []models.TemplateConfig
	outputs       []models.OutputConfig
	research      []models.ResearchQuestion
	bodies        func(ctx context.Context, tpl models.TemplateConfig) (string, error)
}

// Load fetches every catalog concurrently. A failed fetch degrades to an
// empty list with a logged diagnostic; only context cancellation is returned.
func Load(ctx context.Context, src Source, log logger.Logger) (*Lookup, error) {
	log = log.WithFields(map[string]interface{}{"component": "catalog"})

	var (
		questions  []models.Question
		blueprints []models.Blueprint
		templates  []models.TemplateConfig
		outputs    []models.OutputConfig
		research   []models.ResearchQuestion
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return fetch(gctx, log, validation.KindQuestions, &questions, src.Questions)
	})
	g.Go(func() error {
		return fetch(gctx, log, validation.KindBlueprints, &blueprints, src.Blueprints)
	})
	g.Go(func() error {
		return fetch(gctx, log, validation.KindTemplates, &templates, src.Templates)
	})
	g.Go(func() error {
		return fetch(gctx, log, validation.KindOutputs, &outputs, src.Outputs)
	})
	g.Go(func() error {
		return fetch(gctx, log, validation.KindResearch, &research, src.ResearchQuestions)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l := NewLookup(questions, blueprints, templates, outputs, research)
	l.bodies = src.TemplateBody
	return l, nil
}

func fetch[T any](ctx context.Context, log logger.Logger, kind string, dst *[]T, get func(context.Context) ([]T, error)) error {
	items, err := get(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.CatalogFetchFailures.WithLabelValues(kind).Inc()
		stdErr := errors.NewCatalogFetchFailedError(kind, err)
		log.Warn("Catalog fetch failed, using empty list", map[string]interface{}{
			"kind":      kind,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		*dst = []T{}
		return nil
	}
	if items == nil {
		items = []T{}
	}
	*dst = items
	return nil
}

// NewLookup indexes already-fetched catalogs. Template bodies must then be
// inline.
func NewLookup(
	questions []models.Question,
	blueprints []models.Blueprint,
	templates []models.TemplateConfig,
	outputs []models.OutputConfig,
	research []models.ResearchQuestion,
) *Lookup {
	l := &Lookup{
		questions:     questions,
		questionIndex: make(map[string]int, len(questions)),
		blueprints:    blueprints,
		templates:     templates,
		outputs:       outputs,
		research:      research,
	}
	for i, q := range questions {
		if _, dup := l.questionIndex[q.ID]; !dup {
			l.questionIndex[q.ID] = i
		}
	}
	l.bodies = func(_ context.Context, tpl models.TemplateConfig) (string, error) {
		return tpl.Body, nil
	}
	return l
}

func (l *Lookup) Question(id string) (models.Question, bool) {
	i, ok := l.questionIndex[id]
	if !ok {
		return models.Question{}, false
	}
	return l.questions[i], true
}

// Questions returns the catalog in declaration order.
func (l *Lookup) Questions() []models.Question {
	return l.questions
}

// Blueprint returns the blueprint with id, falling back to DefaultBlueprintID
// and then the first declared blueprint when id is empty.
func (l *Lookup) Blueprint(id string) (models.Blueprint, bool) {
	if id == "" {
		id = DefaultBlueprintID
		for _, b := range l.blueprints {
			if b.ID == id {
				return b, true
			}
		}
		if len(l.blueprints) > 0 {
			return l.blueprints[0], true
		}
		return models.Blueprint{}, false
	}
	for _, b := range l.blueprints {
		if b.ID == id {
			return b, true
		}
	}
	return models.Blueprint{}, false
}

func (l *Lookup) Blueprints() []models.Blueprint {
	return l.blueprints
}

func (l *Lookup) Templates() []models.TemplateConfig {
	return l.templates
}

func (l *Lookup) Output(id string) (models.OutputConfig, bool) {
	for _, o := range l.outputs {
		if o.ID == id {
			return o, true
		}
	}
	return models.OutputConfig{}, false
}

func (l *Lookup) Outputs() []models.OutputConfig {
	return l.outputs
}

// ResearchQuestions returns the research questions of area in declaration
// order, or all of them when area is empty.
func (l *Lookup) ResearchQuestions(area string) []models.ResearchQuestion {
	if area == "" {
		return l.research
	}
	var out []models.ResearchQuestion
	for _, rq := range l.research {
		if rq.Area == area {
			out = append(out, rq)
		}
	}
	return out
}

// ResearchAreas lists the distinct areas, sorted.
func (l *Lookup) ResearchAreas() []string {
	seen := map[string]bool{}
	var areas []string
	for _, rq := range l.research {
		if !seen[rq.Area] {
			seen[rq.Area] = true
			areas = append(areas, rq.Area)
		}
	}
	sort.Strings(areas)
	return areas
}

func (l *Lookup) TemplateBody(ctx context.Context, tpl models.TemplateConfig) (string, error) {
	return l.bodies(ctx, tpl)
}
