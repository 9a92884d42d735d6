package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"clarity-workers/internal/common/errors"
)

// Envelope wraps every JSON response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: status < 300, Data: data})
}

func respondError(w http.ResponseWriter, status int, code errors.ErrorCode, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Error: &ErrorBody{Code: string(code), Message: message, Details: details}})
}

// statusFor maps an error code to the HTTP status it is served with.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeUnsupportedFormat:
		return http.StatusBadRequest
	case errors.ErrCodeSessionNotFound, errors.ErrCodeOutputNotFound, errors.ErrCodeTemplateNotFound:
		return http.StatusNotFound
	case errors.ErrCodeTimeout, errors.ErrCodeAnalysisServiceTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeExternalService, errors.ErrCodeAnalysisServiceFailed, errors.ErrCodeTranslationFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	stdErr, ok := errors.AsStandardError(err)
	if !ok {
		stdErr = errors.NewInternalError(err)
	}
	status := statusFor(stdErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", map[string]interface{}{
			"method":    r.Method,
			"path":      r.URL.Path,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
	}
	respondError(w, status, stdErr.Code, stdErr.Message, stdErr.Details)
}

// decode reads a JSON body into dst and runs its validate tags.
func (h *Handler) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.NewInvalidInputError("invalid request body: " + err.Error())
	}
	if err := h.validate.Struct(dst); err != nil {
		return errors.NewInvalidInputError(formatValidationError(err))
	}
	return nil
}

func formatValidationError(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field()[:1]) + e.Field()[1:]
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
