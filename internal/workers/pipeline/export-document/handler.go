package exportdocument

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"clarity-workers/internal/common/camunda"
	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/metrics"
	"clarity-workers/internal/models"
	"clarity-workers/internal/service"
)

const TaskType = "export-document"

type Pipeline interface {
	Load(ctx context.Context, sessionID string) (*models.Session, error)
	Export(ctx context.Context, s *models.Session, outputID, format, recipient string) (*service.ExportResult, error)
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	format := input.Format
	if format == "" {
		format = h.config.DefaultFormat
	}

	s, err := h.pipeline.Load(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	res, err := h.pipeline.Export(ctx, s, input.OutputID, format, input.Recipient)
	if err != nil {
		return nil, err
	}

	exp := res.Export
	h.logger.Info("Document exported", map[string]interface{}{
		"sessionId":  s.SessionID,
		"format":     exp.Format,
		"documentId": res.Delivery.DocumentID,
		"indexed":    res.Delivery.Indexed,
		"notified":   res.Delivery.Notified,
		"emailed":    res.Delivery.Emailed,
	})

	return &Output{
		SessionID:   s.SessionID,
		Format:      exp.Format,
		Filename:    exp.Filename,
		ContentType: exp.ContentType,
		Text:        exp.Text,
		Placeholder: exp.Placeholder,
		Overridden:  exp.Overridden,
		DocumentID:  res.Delivery.DocumentID,
		Indexed:     res.Delivery.Indexed,
		Notified:    res.Delivery.Notified,
		Emailed:     res.Delivery.Emailed,
	}, nil
}
