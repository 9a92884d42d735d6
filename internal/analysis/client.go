package analysis

import (
	"context"
	"strings"
	"time"

	"clarity-workers/internal/common/config"
	"clarity-workers/internal/common/errors"
	commonhttp "clarity-workers/internal/common/http"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/models"
)

const viabilityPath = "/api/analyze/viability"

type ViabilityRequest struct {
	SessionID   string                      `json:"sessionId"`
	BlueprintID string                      `json:"blueprintId"`
	Answers     map[string]models.RawAnswer `json:"answers"`
}

type ViabilityResponse struct {
	Feasibility                models.Level              `json:"feasibility"`
	OverallRisk                models.Level              `json:"overallRisk"`
	KeyConstraints             []string                  `json:"keyConstraints"`
	Assumptions                []string                  `json:"assumptions"`
	SuggestedFollowUpQuestions []models.FollowUpQuestion `json:"suggestedFollowUpQuestions"`
}

// ViabilityService is the external analysis endpoint.
type ViabilityService interface {
	AnalyzeViability(ctx context.Context, req ViabilityRequest) (*ViabilityResponse, error)
}

// Client calls the analysis service through the shared breaker-guarded
// HTTP client.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *commonhttp.Client
}

func NewClient(cfg config.AnalysisConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
		http: commonhttp.NewClient(timeout, commonhttp.BreakerSettingsFromConfig("analysis-service", cfg.Breaker), log,
			commonhttp.WithRetries(cfg.MaxRetries)),
	}
}

func (c *Client) AnalyzeViability(ctx context.Context, req ViabilityRequest) (*ViabilityResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var resp ViabilityResponse
	if err := c.http.PostJSON(ctx, c.baseURL+viabilityPath, req, &resp); err != nil {
		if commonhttp.IsTimeout(err) {
			return nil, errors.NewAnalysisServiceTimeoutError()
		}
		return nil, errors.NewAnalysisServiceFailedError(err)
	}
	return &resp, nil
}
