// Package service composes catalogs, the rule engine, analysis, document
// generation, persistence and delivery into the operations exposed by the
// workers and the HTTP API.
package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clarity-workers/internal/analysis"
	"clarity-workers/internal/catalog"
	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/metrics"
	"clarity-workers/internal/common/observability"
	"clarity-workers/internal/delivery"
	"clarity-workers/internal/document"
	"clarity-workers/internal/engine"
	"clarity-workers/internal/models"
	"clarity-workers/internal/session"
)

// Deliverer is satisfied by delivery.Service.
type Deliverer interface {
	Deliver(ctx context.Context, req delivery.Request) delivery.Result
}

// Deps are the collaborators of a Pipeline. Delivery, Tracer and Metrics
// are optional.
type Deps struct {
	Catalog    catalog.Source
	Validator  *engine.Validator
	Aggregator *analysis.Aggregator
	Generator  *document.Generator
	Gate       *session.Gate
	Delivery   Deliverer
	Tracer     *observability.TracerProvider
	Metrics    *observability.Observability
}

type Pipeline struct {
	deps Deps
	log  logger.Logger
	now  func() time.Time
}

func New(deps Deps, log logger.Logger) *Pipeline {
	if deps.Tracer == nil {
		deps.Tracer = observability.NewNoopTracer()
	}
	return &Pipeline{
		deps: deps,
		log:  log.WithFields(map[string]interface{}{"component": "pipeline"}),
		now:  time.Now,
	}
}

// stage runs fn inside a span and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := p.deps.Tracer.StartSpan(ctx, "pipeline."+name, trace.WithAttributes(attrs...))
	err := fn(ctx)
	observability.EndSpan(span, err)
	metrics.PipelineStageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

func sessionAttrs(s *models.Session) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("session.id", s.SessionID),
		attribute.String("session.blueprint", s.BlueprintID),
	}
}

// Lookup loads a fresh catalog view for one operation.
func (p *Pipeline) Lookup(ctx context.Context) (*catalog.Lookup, error) {
	return catalog.Load(ctx, p.deps.Catalog, p.log)
}

func (p *Pipeline) blueprint(lookup *catalog.Lookup, s *models.Session) (models.Blueprint, error) {
	bp, ok := lookup.Blueprint(s.BlueprintID)
	if !ok {
		return models.Blueprint{}, errors.NewInvalidInputError(fmt.Sprintf("blueprint %q not found", s.BlueprintID))
	}
	return bp, nil
}

// Start creates a session for blueprintID (the default blueprint when empty),
// positions it on the first visible question and persists it.
func (p *Pipeline) Start(ctx context.Context, blueprintID string) (*models.Session, error) {
	lookup, err := p.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	bp, ok := lookup.Blueprint(blueprintID)
	if !ok {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("blueprint %q not found", blueprintID))
	}

	now := p.now()
	s := session.StartNew(bp.ID, bp.Version, now)
	if first := engine.NextQuestionID(bp, lookup, s.AnswerValues(), ""); first != "" {
		s = session.SetCurrentQuestion(s, first, now)
	}
	s, _ = p.deps.Gate.Save(ctx, s)
	return s, nil
}

func (p *Pipeline) Load(ctx context.Context, sessionID string) (*models.Session, error) {
	return p.deps.Gate.Load(ctx, sessionID)
}

func (p *Pipeline) Save(ctx context.Context, s *models.Session) (*models.Session, session.SaveResult) {
	return p.deps.Gate.Save(ctx, s)
}

// AnswerResult is the session after an answer plus the problems found with
// that answer.
type AnswerResult struct {
	Session *models.Session
	Errors  []engine.ValidationError
	Summary engine.Summary
}

// RecordAnswer stores value for questionID, revalidates the session and
// advances the current question.
func (p *Pipeline) RecordAnswer(ctx context.Context, s *models.Session, questionID string, value interface{}, confidence models.Level) (*AnswerResult, error) {
	var res *AnswerResult
	err := p.stage(ctx, "answer", sessionAttrs(s), func(ctx context.Context) error {
		lookup, err := p.Lookup(ctx)
		if err != nil {
			return err
		}
		q, ok := lookup.Question(questionID)
		if !ok {
			return errors.NewInvalidInputError(fmt.Sprintf("question %q not found", questionID))
		}
		bp, err := p.blueprint(lookup, s)
		if err != nil {
			return err
		}

		now := p.now()
		errs := p.deps.Validator.ValidateAnswer(q, value)
		next := session.RecordAnswer(s, questionID, value, confidence, now)

		summary := p.deps.Validator.ValidateSession(bp, lookup, next.AnswerValues())
		completion := engine.Completion(bp, lookup, next.AnswerValues(), summary.Errors)
		next = session.ApplyValidation(next, summary.Gaps, completion, now)
		next = session.SetCurrentQuestion(next, engine.NextQuestionID(bp, lookup, next.AnswerValues(), questionID), now)

		next, _ = p.deps.Gate.Save(ctx, next)
		res = &AnswerResult{Session: next, Errors: errs, Summary: summary}
		return nil
	})
	return res, err
}

// Questions returns the currently visible question sequence.
func (p *Pipeline) Questions(ctx context.Context, s *models.Session) ([]models.Question, error) {
	lookup, err := p.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	bp, err := p.blueprint(lookup, s)
	if err != nil {
		return nil, err
	}
	return engine.VisibleSequence(bp, lookup, s.AnswerValues()), nil
}

// Validate recomputes gaps and completion stats.
func (p *Pipeline) Validate(ctx context.Context, s *models.Session) (*models.Session, engine.Summary, error) {
	var (
		next    *models.Session
		summary engine.Summary
	)
	err := p.stage(ctx, "validate", sessionAttrs(s), func(ctx context.Context) error {
		lookup, err := p.Lookup(ctx)
		if err != nil {
			return err
		}
		bp, err := p.blueprint(lookup, s)
		if err != nil {
			return err
		}
		answers := s.AnswerValues()
		summary = p.deps.Validator.ValidateSession(bp, lookup, answers)
		completion := engine.Completion(bp, lookup, answers, summary.Errors)
		next = session.ApplyValidation(s, summary.Gaps, completion, p.now())
		return nil
	})
	return next, summary, err
}

// Analyze runs the analyzer fan-out over a snapshot of s. The report is not
// applied; see ApplyReport.
func (p *Pipeline) Analyze(ctx context.Context, s *models.Session) (analysis.Report, error) {
	var report analysis.Report
	err := p.stage(ctx, "analyze", sessionAttrs(s), func(ctx context.Context) error {
		lookup, err := p.Lookup(ctx)
		if err != nil {
			return err
		}
		report = p.deps.Aggregator.Run(ctx, s, lookup)
		return nil
	})
	return report, err
}

// ApplyReport installs report on s unless a newer analysis is already
// applied.
func (p *Pipeline) ApplyReport(s *models.Session, report analysis.Report) (*models.Session, bool) {
	next, applied := session.ApplyAnalysis(s, report.Generation, report.Inferences, p.now())
	if !applied {
		p.log.Info("Discarding stale analysis report", map[string]interface{}{
			"sessionId":         s.SessionID,
			"reportGeneration":  report.Generation,
			"appliedGeneration": s.AnalysisGeneration,
		})
	}
	return next, applied
}

// AnalyzeSession analyzes the stored session, then applies the report to
// the session as stored when the run finished, so answers recorded during
// the run survive. Snapshot saves that start from an older state keep the
// applied inferences; see session.Gate.
func (p *Pipeline) AnalyzeSession(ctx context.Context, sessionID string) (*models.Session, analysis.Report, bool, error) {
	s, err := p.Load(ctx, sessionID)
	if err != nil {
		return nil, analysis.Report{}, false, err
	}
	report, err := p.Analyze(ctx, s)
	if err != nil {
		return nil, report, false, err
	}

	applied := false
	next, _, err := p.deps.Gate.Update(ctx, sessionID, func(latest *models.Session) (*models.Session, bool) {
		var out *models.Session
		out, applied = p.ApplyReport(latest, report)
		return out, applied
	})
	if err != nil {
		return nil, report, false, err
	}
	return next, report, applied, nil
}

// Generate renders outputID and reconciles the full-document override.
func (p *Pipeline) Generate(ctx context.Context, s *models.Session, outputID string) (*document.Output, string, error) {
	var (
		out       *document.Output
		effective string
	)
	attrs := append(sessionAttrs(s), attribute.String("output.id", outputID))
	err := p.stage(ctx, "generate", attrs, func(ctx context.Context) error {
		lookup, err := p.Lookup(ctx)
		if err != nil {
			return err
		}
		out, err = p.deps.Generator.Generate(ctx, s, lookup, outputID)
		if err != nil {
			return err
		}
		effective, _ = document.Reconcile(models.FullDocumentSection, out.HTML, s.UserOverrides)
		p.deps.Metrics.RecordDocumentGenerated(ctx, out.OutputID, out.Locale, out.Metadata.Translated)
		return nil
	})
	return out, effective, err
}

func (p *Pipeline) Preview(ctx context.Context, s *models.Session) ([]document.PreviewSection, error) {
	var sections []document.PreviewSection
	err := p.stage(ctx, "preview", sessionAttrs(s), func(ctx context.Context) error {
		lookup, err := p.Lookup(ctx)
		if err != nil {
			return err
		}
		sections = p.deps.Generator.Preview(ctx, s, lookup)
		return nil
	})
	return sections, err
}

// ExportResult is an export and where it was delivered.
type ExportResult struct {
	Export   *document.Export `json:"export"`
	Delivery delivery.Result  `json:"delivery"`
}

// Export converts outputID to format and hands it to the delivery channels.
// recipient may be empty.
func (p *Pipeline) Export(ctx context.Context, s *models.Session, outputID, format, recipient string) (*ExportResult, error) {
	var res *ExportResult
	attrs := append(sessionAttrs(s), attribute.String("export.format", format))
	err := p.stage(ctx, "export", attrs, func(ctx context.Context) error {
		lookup, err := p.Lookup(ctx)
		if err != nil {
			return err
		}
		exp, err := p.deps.Generator.Export(ctx, s, lookup, outputID, format)
		if err != nil {
			return err
		}
		res = &ExportResult{Export: exp}
		if p.deps.Delivery != nil {
			res.Delivery = p.deps.Delivery.Deliver(ctx, delivery.Request{
				SessionID: s.SessionID,
				OutputID:  outputID,
				Recipient: recipient,
				Export:    exp,
			})
		}
		return nil
	})
	return res, err
}

// SetOverride records a hand edit of sectionID and persists the session.
func (p *Pipeline) SetOverride(ctx context.Context, s *models.Session, sectionID, originalText, editedText string) *models.Session {
	next := session.SetUserOverride(s, sectionID, models.UserOverride{
		OriginalText: originalText,
		EditedText:   editedText,
	}, p.now())
	next, _ = p.deps.Gate.Save(ctx, next)
	return next
}

func (p *Pipeline) ResetOverride(ctx context.Context, s *models.Session, sectionID string) *models.Session {
	next := session.ResetUserOverride(s, sectionID, p.now())
	next, _ = p.deps.Gate.Save(ctx, next)
	return next
}

// ResearchPlan orders the research questions of area (every area when
// empty) by dependency.
func (p *Pipeline) ResearchPlan(ctx context.Context, area string) (engine.Schedule, error) {
	var schedule engine.Schedule
	err := p.stage(ctx, "research_plan", []attribute.KeyValue{attribute.String("research.area", area)}, func(ctx context.Context) error {
		lookup, err := p.Lookup(ctx)
		if err != nil {
			return err
		}
		schedule = engine.OrderResearch(lookup.ResearchQuestions(area), p.log)
		return nil
	})
	return schedule, err
}

// RecordResearch stores the answer to a research question and persists the
// session.
func (p *Pipeline) RecordResearch(ctx context.Context, s *models.Session, questionID string, data interface{}) *models.Session {
	next := session.SetResearchAnswer(s, models.ResearchAnswer{QuestionID: questionID, Data: data}, p.now())
	next, _ = p.deps.Gate.Save(ctx, next)
	return next
}

// SetLanguage changes the output language and persists the session.
func (p *Pipeline) SetLanguage(ctx context.Context, s *models.Session, locale string) *models.Session {
	next := session.SetOutputLanguage(s, locale, p.now())
	next, _ = p.deps.Gate.Save(ctx, next)
	return next
}
