package exportdocument

import (
	"time"

	"clarity-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	DefaultFormat string
	InputSchema   map[string]interface{}
}

func LoadConfig(app *config.Config) *Config {
	cfg := &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       60 * time.Second,
		DefaultFormat: "md",
		InputSchema:   InputSchema(),
	}
	if app == nil {
		return cfg
	}
	if w, ok := app.Workers[TaskType]; ok {
		cfg.Enabled = w.Enabled
		if w.MaxJobsActive > 0 {
			cfg.MaxJobsActive = w.MaxJobsActive
		}
		if w.Timeout > 0 {
			cfg.Timeout = config.GetDuration(w.Timeout)
		}
	}
	return cfg
}
