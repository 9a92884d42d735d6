package analyzesession

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"clarity-workers/internal/analysis"
	"clarity-workers/internal/common/camunda"
	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/metrics"
	"clarity-workers/internal/models"
)

const TaskType = "analyze-session"

type Pipeline interface {
	AnalyzeSession(ctx context.Context, sessionID string) (*models.Session, analysis.Report, bool, error)
}

type Handler struct {
	config   *Config
	pipeline Pipeline
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(cfg *Config, pipeline Pipeline, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   cfg,
		pipeline: pipeline,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("Processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.ParseVariables(job, h.config.InputSchema, &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.ErrCodeInvalidInput)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		code := string(errors.ErrCodeInternal)
		if stdErr, ok := errors.AsStandardError(err); ok {
			code = string(stdErr.Code)
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output, h.logger); err == nil {
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}
}

// Execute runs the analyzers. A report superseded by a newer run completes
// the job with analysisApplied=false; it is not an error. Analyzer failures
// only show up as warnings.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	s, report, applied, err := h.pipeline.AnalyzeSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	inf := report.Inferences
	out := &Output{
		SessionID:  s.SessionID,
		Generation: report.Generation,
		Applied:    applied,
		PainPoints: len(inf.PainPoints),
		Personas:   len(inf.Personas),
		Markets:    len(inf.MarketSizing),
		Viability:  len(inf.Viability),
		FollowUps:  len(inf.FollowUpQuestions),
		Warnings:   report.Warnings,
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}

	if len(report.Warnings) > 0 {
		h.logger.Warn("Analysis completed with warnings", map[string]interface{}{
			"sessionId": s.SessionID,
			"warnings":  report.Warnings,
		})
	}
	return out, nil
}
