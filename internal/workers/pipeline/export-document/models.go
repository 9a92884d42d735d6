package exportdocument

type Input struct {
	SessionID string `json:"sessionId"`
	OutputID  string `json:"outputId,omitempty"`
	Format    string `json:"format,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

// Output carries the markdown text inline. docx and pdf are placeholders
// and carry no text.
type Output struct {
	SessionID   string `json:"sessionId"`
	Format      string `json:"format"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Text        string `json:"text,omitempty"`
	Placeholder bool   `json:"placeholder"`
	Overridden  bool   `json:"overridden"`
	DocumentID  string `json:"documentId"`
	Indexed     bool   `json:"indexed"`
	Notified    bool   `json:"notified"`
	Emailed     bool   `json:"emailed"`
}

func InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"sessionId"},
		"properties": map[string]interface{}{
			"sessionId": map[string]interface{}{"type": "string", "minLength": 1},
			"outputId":  map[string]interface{}{"type": "string"},
			"format":    map[string]interface{}{"type": "string"},
			"recipient": map[string]interface{}{"type": "string", "format": "email"},
		},
	}
}
