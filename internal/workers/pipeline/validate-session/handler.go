package validatesession

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"clarity-workers/internal/common/camunda"
	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/metrics"
	"clarity-workers/internal/engine"
	"clarity-workers/internal/models"
	"clarity-workers/internal/session"
)

const TaskType = "validate-session"

// Pipeline is the part of service.Pipeline this worker uses.
type Pipeline interface {
	Load(ctx context.Context, sessionID string) (*models.Session, error)
	Validate(ctx context.Context, s *models.Session) (*models.Session, engine.Summary, error)
	Save(ctx context.Context, s *models.Session) (*models.Session, session.SaveResult)
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
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output, h.logger); err != nil {
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := string(errors.ErrCodeInternal)
	if stdErr, ok := errors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

// Execute recomputes gaps and completion for the stored session and saves
// the result.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	s, err := h.pipeline.Load(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	validated, summary, err := h.pipeline.Validate(ctx, s)
	if err != nil {
		return nil, err
	}
	saved, result := h.pipeline.Save(ctx, validated)
	if result == session.SaveFailed {
		h.logger.Warn("Validated session was not saved", map[string]interface{}{"sessionId": s.SessionID})
	}

	return &Output{
		SessionID:           saved.SessionID,
		IsValid:             summary.IsValid,
		GapCount:            len(saved.Gaps),
		Gaps:                saved.Gaps,
		CompletionBySection: saved.CompletionBySection,
		Saved:               string(result),
	}, nil
}
