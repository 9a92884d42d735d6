package generatedocument

import (
	"time"

	"clarity-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	// IncludeHTML returns the rendered markup in the job variables. Large
	// documents are better fetched from the API.
	IncludeHTML bool
	InputSchema map[string]interface{}
}

func LoadConfig(app *config.Config) *Config {
	cfg := &Config{
		Enabled:       true,
		MaxJobsActive: 10,
		Timeout:       30 * time.Second,
		IncludeHTML:   true,
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
