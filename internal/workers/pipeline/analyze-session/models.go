package analyzesession

type Input struct {
	SessionID string `json:"sessionId"`
}

type Output struct {
	SessionID  string   `json:"sessionId"`
	Generation uint64   `json:"analysisGeneration"`
	Applied    bool     `json:"analysisApplied"`
	PainPoints int      `json:"painPointCount"`
	Personas   int      `json:"personaCount"`
	Markets    int      `json:"marketSegmentCount"`
	Viability  int      `json:"viabilityCount"`
	FollowUps  int      `json:"followUpCount"`
	Warnings   []string `json:"analysisWarnings"`
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
