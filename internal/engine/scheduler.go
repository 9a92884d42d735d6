package engine

import (
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/models"
)

// Schedule is a dependency order over research questions. Unscheduled lists
// the questions left out because of a cycle or a missing dependency.
type Schedule struct {
	Ordered     []models.ResearchQuestion `json:"ordered"`
	Unscheduled []string                  `json:"unscheduled,omitempty"`
}

// Complete reports whether every input question was ordered.
func (s Schedule) Complete() bool {
	return len(s.Unscheduled) == 0
}

// OrderResearch sorts questions topologically by DependsOn. Each round takes
// every remaining question whose dependencies were ordered in earlier rounds,
// keeping declaration order within the round. A round that makes no progress
// ends the sort with a warning and the prefix ordered so far.
func OrderResearch(questions []models.ResearchQuestion, log logger.Logger) Schedule {
	ordered := make([]models.ResearchQuestion, 0, len(questions))
	done := make(map[string]bool, len(questions))
	remaining := append([]models.ResearchQuestion(nil), questions...)

	for len(remaining) > 0 {
		var ready, blocked []models.ResearchQuestion
		for _, q := range remaining {
			if dependenciesMet(q, done) {
				ready = append(ready, q)
			} else {
				blocked = append(blocked, q)
			}
		}

		if len(ready) == 0 {
			ids := make([]string, len(blocked))
			for i, q := range blocked {
				ids[i] = q.ID
			}
			log.Warn("Circular or missing research dependencies detected", map[string]interface{}{
				"ordered":     len(ordered),
				"unscheduled": ids,
			})
			return Schedule{Ordered: ordered, Unscheduled: ids}
		}

		for _, q := range ready {
			done[q.ID] = true
		}
		ordered = append(ordered, ready...)
		remaining = blocked
	}

	return Schedule{Ordered: ordered}
}

func dependenciesMet(q models.ResearchQuestion, done map[string]bool) bool {
	for _, dep := range q.DependsOn {
		if !done[dep] {
			return false
		}
	}
	return true
}
