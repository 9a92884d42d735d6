package generatedocument

type Input struct {
	SessionID string `json:"sessionId"`
	OutputID  string `json:"outputId,omitempty"`
	// Locale overrides the session output language for this document only.
	Locale string `json:"locale,omitempty"`
}

type Output struct {
	SessionID  string   `json:"sessionId"`
	OutputID   string   `json:"outputId"`
	TemplateID string   `json:"templateId"`
	Locale     string   `json:"locale"`
	Translated bool     `json:"translated"`
	Overridden bool     `json:"overridden"`
	Sections   []string `json:"sections"`
	HTML       string   `json:"html,omitempty"`
}

func InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"sessionId"},
		"properties": map[string]interface{}{
			"sessionId": map[string]interface{}{"type": "string", "minLength": 1},
			"outputId":  map[string]interface{}{"type": "string"},
			"locale":    map[string]interface{}{"type": "string", "pattern": "^([a-z]{2})?$"},
		},
	}
}
