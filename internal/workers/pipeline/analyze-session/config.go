package analyzesession

import (
	"time"

	"clarity-workers/internal/common/config"
)

// Config of the analyze-session worker. The timeout covers the remote
// viability call, so it defaults higher than the other pipeline workers.
type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	InputSchema   map[string]interface{}
}

func LoadConfig(app *config.Config) *Config {
	cfg := &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       45 * time.Second,
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
