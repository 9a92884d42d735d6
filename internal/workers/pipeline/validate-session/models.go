package validatesession

import "clarity-workers/internal/models"

type Input struct {
	SessionID string `json:"sessionId"`
}

type Output struct {
	SessionID           string                              `json:"sessionId"`
	IsValid             bool                                `json:"isValid"`
	GapCount            int                                 `json:"gapCount"`
	Gaps                []models.Gap                        `json:"gaps"`
	CompletionBySection map[string]models.SectionCompletion `json:"completionBySection"`
	Saved               string                              `json:"saved"`
}

func InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"sessionId"},
		"properties": map[string]interface{}{
			"sessionId": map[string]interface{}{"type": "string", "minLength": 1},
		},
	}
}
