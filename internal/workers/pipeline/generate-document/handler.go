package generatedocument

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"clarity-workers/internal/common/camunda"
	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/metrics"
	"clarity-workers/internal/document"
	"clarity-workers/internal/models"
	"clarity-workers/internal/session"
)

const TaskType = "generate-document"

type Pipeline interface {
	Load(ctx context.Context, sessionID string) (*models.Session, error)
	Generate(ctx context.Context, s *models.Session, outputID string) (*document.Output, string, error)
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
	err := camunda.ParseVariables(job, h.config.InputSchema, &input)
	var output *Output
	if err == nil {
		output, err = h.Execute(ctx, &input)
	}
	if err != nil {
		code := string(errors.ErrCodeInternal)
		if stdErr, ok := errors.AsStandardError(err); ok {
			code = string(stdErr.Code)
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	if camunda.CompleteJob(ctx, client, job, output, h.logger) == nil {
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}
}

// Execute renders the document. Template resolution failures are returned
// and end up as BPMN errors; everything else degrades inside the pipeline.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	s, err := h.pipeline.Load(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if input.Locale != "" && input.Locale != s.OutputLanguage {
		// Not saved: the locale applies to this job only.
		s = session.SetOutputLanguage(s, input.Locale, time.Now())
	}

	out, effective, err := h.pipeline.Generate(ctx, s, input.OutputID)
	if err != nil {
		return nil, err
	}

	_, overridden := s.UserOverrides[models.FullDocumentSection]
	res := &Output{
		SessionID:  s.SessionID,
		OutputID:   out.OutputID,
		TemplateID: out.TemplateID,
		Locale:     out.Locale,
		Translated: out.Metadata.Translated,
		Overridden: overridden,
		Sections:   out.Metadata.Sections,
	}
	if h.config.IncludeHTML {
		res.HTML = effective
	}
	return res, nil
}
