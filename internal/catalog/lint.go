package catalog

import (
	"context"
	"fmt"
	"sort"

	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/engine"
	"clarity-workers/internal/models"
)

// Problem is one inconsistency found by Lint.
type Problem struct {
	Kind    string `json:"kind"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.ID == "" {
		return fmt.Sprintf("%s: %s", p.Kind, p.Message)
	}
	return fmt.Sprintf("%s %s: %s", p.Kind, p.ID, p.Message)
}

// Lint fetches every catalog without degrading and reports dangling
// references, duplicates, unreadable templates and research cycles. The
// pipeline tolerates all of these at runtime; Lint is for authors.
func Lint(ctx context.Context, src Source) []Problem {
	var problems []Problem
	add := func(kind, id, format string, args ...interface{}) {
		problems = append(problems, Problem{Kind: kind, ID: id, Message: fmt.Sprintf(format, args...)})
	}

	questions, err := src.Questions(ctx)
	if err != nil {
		add("questions", "", "%v", err)
	}
	blueprints, err := src.Blueprints(ctx)
	if err != nil {
		add("blueprints", "", "%v", err)
	}
	templates, err := src.Templates(ctx)
	if err != nil {
		add("templates", "", "%v", err)
	}
	outputs, err := src.Outputs(ctx)
	if err != nil {
		add("outputs", "", "%v", err)
	}
	research, err := src.ResearchQuestions(ctx)
	if err != nil {
		add("research", "", "%v", err)
	}

	known := map[string]bool{}
	for _, q := range questions {
		if known[q.ID] {
			add("question", q.ID, "duplicate id")
		}
		known[q.ID] = true
	}
	for _, q := range questions {
		for _, ref := range conditionRefs(q.ConditionalLogic) {
			if !known[ref] {
				add("question", q.ID, "condition references unknown question %q", ref)
			}
		}
	}

	for _, bp := range blueprints {
		for _, s := range bp.Sections {
			for _, id := range s.QuestionIDs {
				if !known[id] {
					add("blueprint", bp.ID, "section %q references unknown question %q", s.ID, id)
				}
			}
		}
	}

	templateIDs := map[string]bool{}
	for _, tpl := range templates {
		templateIDs[tpl.ID] = true
		if _, err := src.TemplateBody(ctx, tpl); err != nil {
			add("template", tpl.ID, "body for locale %s unreadable: %v", tpl.EffectiveLocale(), err)
		}
	}
	for _, out := range outputs {
		if !templateIDs[out.TemplateID] {
			add("output", out.ID, "references unknown template %q", out.TemplateID)
		}
	}

	byArea := map[string][]models.ResearchQuestion{}
	for _, rq := range research {
		byArea[rq.Area] = append(byArea[rq.Area], rq)
	}
	areas := make([]string, 0, len(byArea))
	for area := range byArea {
		areas = append(areas, area)
	}
	sort.Strings(areas)
	for _, area := range areas {
		schedule := engine.OrderResearch(byArea[area], logger.NewNoOpLogger())
		if !schedule.Complete() {
			add("research", area, "unresolvable dependencies for %v", schedule.Unscheduled)
		}
	}

	return problems
}

func conditionRefs(logic *models.ConditionalLogic) []string {
	if logic == nil {
		return nil
	}
	var refs []string
	if logic.ShowIf != nil {
		refs = append(refs, logic.ShowIf.QuestionID)
	}
	if logic.HideIf != nil {
		refs = append(refs, logic.HideIf.QuestionID)
	}
	if logic.DependsOn != "" {
		refs = append(refs, logic.DependsOn)
	}
	return refs
}
