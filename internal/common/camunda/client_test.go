package camunda

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarity-workers/internal/common/errors"
)

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      errors.ErrorCode
		retryable bool
	}{
		{"deadline", fmt.Errorf("rpc error: code = DeadlineExceeded desc = context deadline exceeded"), errors.ErrCodeTimeout, true},
		{"unavailable", fmt.Errorf("rpc error: code = Unavailable desc = connection refused"), errors.ErrCodeExternalService, true},
		{"not found", fmt.Errorf("process not found"), errors.ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapZeebeError(tt.err, "topology at localhost:26500")
			se, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, tt.retryable, se.Retryable)
			assert.Contains(t, se.Details, "topology at localhost:26500")
		})
	}
}
