package analysis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/metrics"
	"clarity-workers/internal/models"
)

// generation numbers analysis runs process-wide. It is seeded from the wall
// clock so numbers keep increasing across restarts.
var generation atomic.Uint64

func init() {
	generation.Store(uint64(time.Now().UnixNano()))
}

// NextGeneration returns a number strictly greater than every earlier one.
func NextGeneration() uint64 {
	return generation.Add(1)
}

// Report is the merged output of one fan-out run. Callers apply it only when
// Generation is newer than the generation already applied to the session.
type Report struct {
	Generation uint64                   `json:"generation"`
	Inferences models.DerivedInferences `json:"derivedInferences"`
	Results    []Result                 `json:"results"`
	Warnings   []string                 `json:"warnings"`
}

// Aggregator runs analyzers concurrently and merges their outputs in
// declaration order.
type Aggregator struct {
	analyzers []Analyzer
	log       logger.Logger
}

func NewAggregator(log logger.Logger, analyzers ...Analyzer) *Aggregator {
	return &Aggregator{
		analyzers: analyzers,
		log:       log.WithFields(map[string]interface{}{"component": "analysis-aggregator"}),
	}
}

// DefaultAnalyzers returns the built-in analyzers in merge order.
func DefaultAnalyzers(viability ViabilityService, log logger.Logger) []Analyzer {
	return []Analyzer{
		PainPointAnalyzer{},
		PersonaAnalyzer{},
		MarketSizingAnalyzer{},
		NewViabilityAnalyzer(viability, log),
	}
}

// Run starts every analyzer, waits for all of them to settle and merges the
// results. A panicking analyzer contributes a warning and nothing else.
func (a *Aggregator) Run(ctx context.Context, s *models.Session, catalog Catalog) Report {
	gen := NextGeneration()
	results := make([]Result, len(a.analyzers))

	var g errgroup.Group
	for i, an := range a.analyzers {
		g.Go(func() error {
			results[i] = a.runOne(ctx, an, s, catalog)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Generation: gen,
		Inferences: models.NewDerivedInferences(),
		Results:    results,
		Warnings:   []string{},
	}
	for _, res := range results {
		merge(&report.Inferences, res)
		for _, w := range res.Warnings {
			report.Warnings = append(report.Warnings, res.AnalyzerID+": "+w)
		}
	}

	a.log.Debug("Analysis merged", map[string]interface{}{
		"sessionId":  s.SessionID,
		"generation": gen,
		"painPoints": len(report.Inferences.PainPoints),
		"personas":   len(report.Inferences.Personas),
		"market":     len(report.Inferences.MarketSizing),
		"viability":  len(report.Inferences.Viability),
		"warnings":   len(report.Warnings),
	})
	return report
}

func (a *Aggregator) runOne(ctx context.Context, an Analyzer, s *models.Session, catalog Catalog) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("Analyzer panicked", map[string]interface{}{
				"analyzer": an.ID(),
				"panic":    fmt.Sprint(r),
			})
			metrics.AnalyzerRuns.WithLabelValues(an.ID(), "panic").Inc()
			res = Result{
				AnalyzerID: an.ID(),
				Confidence: models.LevelLow,
				Outputs:    []models.AnalyzerOutput{},
				Warnings:   []string{fmt.Sprintf("analyzer panicked: %v", r)},
			}
		}
	}()

	res = an.Analyze(ctx, s, catalog)
	if res.AnalyzerID == "" {
		res.AnalyzerID = an.ID()
	}
	status := "ok"
	if len(res.Warnings) > 0 {
		status = "degraded"
	}
	metrics.AnalyzerRuns.WithLabelValues(an.ID(), status).Inc()
	return res
}

func merge(dst *models.DerivedInferences, res Result) {
	for _, out := range res.Outputs {
		switch rec := out.Data.(type) {
		case models.PainPoint:
			dst.PainPoints = append(dst.PainPoints, rec)
		case models.Persona:
			dst.Personas = append(dst.Personas, rec)
		case models.MarketSizing:
			dst.MarketSizing = append(dst.MarketSizing, rec)
		case models.ViabilityAssessment:
			dst.Viability = append(dst.Viability, rec)
		default:
			continue
		}
		dst.Provenance[out.Data.RecordID()] = out.Provenance
	}
	dst.FollowUpQuestions = append(dst.FollowUpQuestions, res.FollowUps...)
}
