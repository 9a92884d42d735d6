package analysis

import (
	"context"
	"sort"
	"strings"

	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/models"
)

const (
	ViabilityAnalyzerID = "viabilityAnalyzer"
	defaultBlueprintID  = "default"
)

// ViabilityAnalyzer delegates to the external analysis service. Any failure
// degrades to an empty result with a warning.
type ViabilityAnalyzer struct {
	service ViabilityService
	log     logger.Logger
}

func NewViabilityAnalyzer(service ViabilityService, log logger.Logger) *ViabilityAnalyzer {
	return &ViabilityAnalyzer{
		service: service,
		log:     log.WithFields(map[string]interface{}{"analyzer": ViabilityAnalyzerID}),
	}
}

func (v *ViabilityAnalyzer) ID() string { return ViabilityAnalyzerID }

func (v *ViabilityAnalyzer) Analyze(ctx context.Context, s *models.Session, _ Catalog) Result {
	res := Result{AnalyzerID: ViabilityAnalyzerID, Confidence: models.LevelLow, Outputs: []models.AnalyzerOutput{}}
	if len(s.RawAnswers) == 0 || v.service == nil {
		return res
	}

	blueprintID := s.BlueprintID
	if blueprintID == "" {
		blueprintID = defaultBlueprintID
	}

	resp, err := v.service.AnalyzeViability(ctx, ViabilityRequest{
		SessionID:   s.SessionID,
		BlueprintID: blueprintID,
		Answers:     s.RawAnswers,
	})
	if err != nil {
		v.log.Warn("Viability analysis failed", map[string]interface{}{
			"sessionId": s.SessionID,
			"error":     err.Error(),
		})
		res.Warnings = []string{"Viability analysis unavailable: " + err.Error()}
		return res
	}

	refs := make([]string, 0, len(s.RawAnswers))
	for id := range s.RawAnswers {
		refs = append(refs, id)
	}
	sort.Strings(refs)

	assumptions := resp.Assumptions
	if assumptions == nil {
		assumptions = []string{}
	}
	constraints := resp.KeyConstraints
	if constraints == nil {
		constraints = []string{}
	}

	res.Confidence = models.LevelHigh
	res.Outputs = append(res.Outputs, models.NewOutput(models.ViabilityAssessment{
		ID:             "va_" + s.SessionID,
		Feasibility:    resp.Feasibility,
		OverallRisk:    resp.OverallRisk,
		KeyConstraints: constraints,
		Notes:          strings.Join(assumptions, "; "),
	}, models.Provenance{
		Source:      models.SourceInference,
		References:  refs,
		Assumptions: assumptions,
	}))
	res.FollowUps = resp.SuggestedFollowUpQuestions
	return res
}
