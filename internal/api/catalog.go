package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/models"
)

// CatalogEditor is satisfied by catalog.Overlay. Edits are held in memory
// and apply to every operation that loads the catalog afterwards.
type CatalogEditor interface {
	SetQuestions(questions []models.Question)
	SetTemplateBody(templateID, locale, body string)
	ClearTemplateBody(templateID, locale string)
}

type QuestionsRequest struct {
	Questions []models.Question `json:"questions" validate:"required,min=1"`
}

type TemplateBodyRequest struct {
	Body string `json:"body" validate:"required"`
}

func catalogRoutes(h *Handler) func(r chi.Router) {
	return func(r chi.Router) {
		r.Put("/questions", h.SetQuestions)
		r.Delete("/questions", h.ResetQuestions)
		r.Put("/templates/{templateID}/body", h.SetTemplateBody)
		r.Delete("/templates/{templateID}/body", h.ClearTemplateBody)
	}
}

// SetQuestions handles PUT /catalog/questions
func (h *Handler) SetQuestions(w http.ResponseWriter, r *http.Request) {
	var req QuestionsRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	seen := make(map[string]bool, len(req.Questions))
	for i, q := range req.Questions {
		if q.ID == "" || q.Text == "" {
			h.fail(w, r, errors.NewInvalidInputError(fmt.Sprintf("questions[%d]: id and text are required", i)))
			return
		}
		if seen[q.ID] {
			h.fail(w, r, errors.NewInvalidInputError(fmt.Sprintf("questions[%d]: duplicate id %s", i, q.ID)))
			return
		}
		seen[q.ID] = true
	}

	h.catalog.SetQuestions(req.Questions)
	h.logger.Info("Question catalog replaced", map[string]interface{}{"count": len(req.Questions)})
	respondJSON(w, http.StatusOK, map[string]interface{}{"questions": len(req.Questions)})
}

// ResetQuestions handles DELETE /catalog/questions and restores the shipped
// catalog.
func (h *Handler) ResetQuestions(w http.ResponseWriter, r *http.Request) {
	h.catalog.SetQuestions(nil)
	respondJSON(w, http.StatusOK, map[string]interface{}{"restored": true})
}

// SetTemplateBody handles PUT /catalog/templates/{templateID}/body?locale=
// An empty locale overrides every locale without its own override.
func (h *Handler) SetTemplateBody(w http.ResponseWriter, r *http.Request) {
	var req TemplateBodyRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	templateID := chi.URLParam(r, "templateID")
	locale := r.URL.Query().Get("locale")
	h.catalog.SetTemplateBody(templateID, locale, req.Body)
	h.logger.Info("Template body overridden", map[string]interface{}{
		"templateId": templateID,
		"locale":     locale,
	})
	respondJSON(w, http.StatusOK, map[string]string{"templateId": templateID, "locale": locale})
}

// ClearTemplateBody handles DELETE /catalog/templates/{templateID}/body?locale=
func (h *Handler) ClearTemplateBody(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")
	locale := r.URL.Query().Get("locale")
	h.catalog.ClearTemplateBody(templateID, locale)
	respondJSON(w, http.StatusOK, map[string]string{"templateId": templateID, "locale": locale})
}
