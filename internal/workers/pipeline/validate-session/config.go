package validatesession

import (
	"time"

	"clarity-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	InputSchema   map[string]interface{}
}

// LoadConfig reads the worker section of app, falling back to defaults for
// unset values.
func LoadConfig(app *config.Config) *Config {
	cfg := &Config{
		Enabled:       true,
		MaxJobsActive: 10,
		Timeout:       10 * time.Second,
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
