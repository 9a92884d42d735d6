package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"clarity-workers/internal/analysis"
	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/document"
	"clarity-workers/internal/engine"
	"clarity-workers/internal/models"
	"clarity-workers/internal/service"
	"clarity-workers/internal/session"
)

// Pipeline is the subset of service.Pipeline served over HTTP.
type Pipeline interface {
	Start(ctx context.Context, blueprintID string) (*models.Session, error)
	Load(ctx context.Context, sessionID string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) (*models.Session, session.SaveResult)
	RecordAnswer(ctx context.Context, s *models.Session, questionID string, value interface{}, confidence models.Level) (*service.AnswerResult, error)
	Questions(ctx context.Context, s *models.Session) ([]models.Question, error)
	Validate(ctx context.Context, s *models.Session) (*models.Session, engine.Summary, error)
	AnalyzeSession(ctx context.Context, sessionID string) (*models.Session, analysis.Report, bool, error)
	Generate(ctx context.Context, s *models.Session, outputID string) (*document.Output, string, error)
	Preview(ctx context.Context, s *models.Session) ([]document.PreviewSection, error)
	Export(ctx context.Context, s *models.Session, outputID, format, recipient string) (*service.ExportResult, error)
	SetOverride(ctx context.Context, s *models.Session, sectionID, originalText, editedText string) *models.Session
	ResetOverride(ctx context.Context, s *models.Session, sectionID string) *models.Session
	ResearchPlan(ctx context.Context, area string) (engine.Schedule, error)
	RecordResearch(ctx context.Context, s *models.Session, questionID string, data interface{}) *models.Session
	SetLanguage(ctx context.Context, s *models.Session, locale string) *models.Session
}

type Handler struct {
	pipeline Pipeline
	catalog  CatalogEditor
	validate *validator.Validate
	logger   logger.Logger
}

func NewHandler(pipeline Pipeline, log logger.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		validate: validator.New(),
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

type StartSessionRequest struct {
	BlueprintID string `json:"blueprintId"`
}

type AnswerRequest struct {
	QuestionID string       `json:"questionId" validate:"required"`
	Value      interface{}  `json:"value"`
	Confidence models.Level `json:"confidence,omitempty" validate:"omitempty,oneof=high medium low"`
}

type AnswerResponse struct {
	Session *models.Session          `json:"session"`
	Errors  []engine.ValidationError `json:"errors"`
	Summary engine.Summary           `json:"summary"`
}

type ValidateResponse struct {
	Session *models.Session `json:"session"`
	Summary engine.Summary  `json:"summary"`
	Saved   bool            `json:"saved"`
}

type AnalyzeResponse struct {
	Session  *models.Session `json:"session"`
	Applied  bool            `json:"applied"`
	Warnings []string        `json:"warnings"`
}

type LanguageRequest struct {
	Locale string `json:"locale" validate:"required,len=2,lowercase"`
}

type ResearchAnswerRequest struct {
	QuestionID string      `json:"questionId" validate:"required"`
	Data       interface{} `json:"data" validate:"required"`
}

type OverrideRequest struct {
	OriginalText string `json:"originalText"`
	EditedText   string `json:"editedText" validate:"required"`
}

type DocumentResponse struct {
	*document.Output
	EffectiveHTML string `json:"effectiveHtml"`
}

// StartSession handles POST /sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if r.ContentLength != 0 {
		if err := h.decode(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	s, err := h.pipeline.Start(r.Context(), req.BlueprintID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, s)
}

// GetSession handles GET /sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// RecordAnswer handles POST /sessions/{sessionID}/answers
func (h *Handler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	res, err := h.pipeline.RecordAnswer(r.Context(), s, req.QuestionID, req.Value, req.Confidence)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errs := res.Errors
	if errs == nil {
		errs = []engine.ValidationError{}
	}
	respondJSON(w, http.StatusOK, AnswerResponse{Session: res.Session, Errors: errs, Summary: res.Summary})
}

// Questions handles GET /sessions/{sessionID}/questions
func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	questions, err := h.pipeline.Questions(r.Context(), s)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"currentQuestionId": s.CurrentQuestionID,
		"questions":         questions,
	})
}

// Validate handles POST /sessions/{sessionID}/validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	next, summary, err := h.pipeline.Validate(r.Context(), s)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	next, result := h.pipeline.Save(r.Context(), next)
	respondJSON(w, http.StatusOK, ValidateResponse{Session: next, Summary: summary, Saved: result != session.SaveFailed})
}

// Analyze handles POST /sessions/{sessionID}/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	s, report, applied, err := h.pipeline.AnalyzeSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	warnings := report.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	respondJSON(w, http.StatusOK, AnalyzeResponse{Session: s, Applied: applied, Warnings: warnings})
}

// SetLanguage handles PUT /sessions/{sessionID}/language
func (h *Handler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req LanguageRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.pipeline.SetLanguage(r.Context(), s, req.Locale))
}

// RecordResearch handles POST /sessions/{sessionID}/research
func (h *Handler) RecordResearch(w http.ResponseWriter, r *http.Request) {
	var req ResearchAnswerRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.pipeline.RecordResearch(r.Context(), s, req.QuestionID, req.Data))
}

// Preview handles GET /sessions/{sessionID}/preview
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	sections, err := h.pipeline.Preview(r.Context(), s)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"sections": sections})
}

// Document handles GET /sessions/{sessionID}/document?outputId=
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	out, effective, err := h.pipeline.Generate(r.Context(), s, r.URL.Query().Get("outputId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, DocumentResponse{Output: out, EffectiveHTML: effective})
}

// SetOverride handles PUT /sessions/{sessionID}/overrides/{sectionID}
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	sectionID := chi.URLParam(r, "sectionID")
	respondJSON(w, http.StatusOK, h.pipeline.SetOverride(r.Context(), s, sectionID, req.OriginalText, req.EditedText))
}

// ResetOverride handles DELETE /sessions/{sessionID}/overrides/{sectionID}
func (h *Handler) ResetOverride(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.pipeline.ResetOverride(r.Context(), s, chi.URLParam(r, "sectionID")))
}

// Export handles GET /sessions/{sessionID}/export?format=&outputId=&recipient=
// and streams the converted document.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = document.FormatMarkdown
	}
	if recipient := q.Get("recipient"); recipient != "" {
		if err := h.validate.Var(recipient, "email"); err != nil {
			h.fail(w, r, errors.NewInvalidInputError("recipient must be a valid email"))
			return
		}
	}
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	res, err := h.pipeline.Export(r.Context(), s, q.Get("outputId"), format, q.Get("recipient"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	exp := res.Export
	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exp.Filename+`"`)
	if res.Delivery.DocumentID != "" {
		w.Header().Set("X-Document-ID", res.Delivery.DocumentID)
	}
	if exp.Placeholder {
		w.Header().Set("X-Export-Placeholder", "true")
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(exp.Text))
}

// ResearchPlan handles GET /research/{area}/plan
func (h *Handler) ResearchPlan(w http.ResponseWriter, r *http.Request) {
	area := chi.URLParam(r, "area")
	if area == "all" {
		area = ""
	}
	schedule, err := h.pipeline.ResearchPlan(r.Context(), area)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if schedule.Ordered == nil {
		schedule.Ordered = []models.ResearchQuestion{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ordered":     schedule.Ordered,
		"unscheduled": schedule.Unscheduled,
		"complete":    schedule.Complete(),
	})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	s, err := h.pipeline.Load(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return s, true
}
