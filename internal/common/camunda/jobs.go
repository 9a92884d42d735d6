package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"clarity-workers/internal/common/errors"
	"clarity-workers/internal/common/logger"
	"clarity-workers/internal/common/validation"
)

// ParseVariables checks the job variables against schema, when one is given,
// and decodes them into dst.
func ParseVariables(job entities.Job, schema map[string]interface{}, dst interface{}) error {
	vars, err := job.GetVariablesAsMap()
	if err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("parse job variables: %v", err))
	}

	if res := validation.ValidateInput(vars, schema); !res.Valid {
		return errors.NewInvalidInputError(strings.Join(res.GetErrorMessages(), "; "))
	}

	if err := json.Unmarshal([]byte(job.GetVariables()), dst); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("decode job variables: %v", err))
	}
	return nil
}

// CompleteJob completes job with output as its variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		log.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}

	if _, err := cmd.Send(ctx); err != nil {
		log.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}
	return nil
}
