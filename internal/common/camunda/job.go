// internal/common/camunda/job.go
package camunda

import (
	"context"
	"time"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/metrics"
	"event-matchmaker/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// JobRunner carries what every worker does around its own logic: decode and validate
// variables, bound the call with a timeout, then complete the job or hand the error
// to the ErrorHandler.
type JobRunner struct {
	taskType  string
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	timeout   time.Duration
	logger    logger.Logger
}

func NewJobRunner(taskType string, validator *validation.Validator, timeout time.Duration, log logger.Logger) *JobRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &JobRunner{
		taskType:  taskType,
		validator: validator,
		errors:    apperrors.NewErrorHandler(log),
		timeout:   timeout,
		logger:    log,
	}
}

// Decode validates the job variables against the task's input schema and unmarshals them into input.
func (r *JobRunner) Decode(job entities.Job, input interface{}) error {
	vars, err := job.GetVariablesAsMap()
	if err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	if r.validator != nil {
		result, err := r.validator.ValidateInput(r.taskType, vars)
		if err != nil {
			return err
		}
		if err := result.Err(); err != nil {
			return err
		}
	}
	if err := job.GetVariablesAs(input); err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	return nil
}

// Run processes one job with fn.
func Run[I any, O any](r *JobRunner, client worker.JobClient, job entities.Job, fn func(context.Context, *I) (*O, error)) {
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(time.Since(start).Seconds())
	}()

	r.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	var input I
	if err := r.Decode(job, &input); err != nil {
		r.fail(context.Background(), client, job, err)
		return
	}

	output, err := fn(ctx, &input)
	if err != nil {
		r.fail(context.Background(), client, job, err)
		return
	}
	r.complete(context.Background(), client, job, output)
}

func (r *JobRunner) complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		r.fail(ctx, client, job, apperrors.NewInternalError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	r.logger.Info("job completed", map[string]interface{}{"jobKey": job.Key})
}

func (r *JobRunner) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(stdErr.Code)).Inc()
	r.errors.HandleJobError(ctx, client, job, stdErr)
}
