package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"clarity-workers/internal/common/errors"
)

// Client owns the gateway connection shared by all pipeline job workers.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
}

// NewClientWithConfig dials the gateway and fails unless the broker answers
// a topology request within ConnectionTimeout.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}
	if err := c.HealthCheck(context.Background()); err != nil {
		zeebeClient.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck sends a topology request. It doubles as the readiness probe
// of the worker manager.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return mapZeebeError(err, fmt.Sprintf("topology at %s", c.config.GatewayAddress))
	}
	return nil
}

// mapZeebeError converts gateway errors into standard errors so the
// readiness endpoint and the startup retry log report a stable code.
func mapZeebeError(err error, operation string) error {
	msg := fmt.Sprintf("Zeebe operation '%s' failed: %s", operation, err.Error())
	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "deadline exceeded"):
		return errors.NewTimeoutError("zeebe", fmt.Errorf("%s", msg))
	case strings.Contains(lower, "not found"):
		return errors.NewInvalidInputError(msg)
	default:
		return errors.NewExternalServiceError("zeebe", fmt.Errorf("%s", msg))
	}
}
