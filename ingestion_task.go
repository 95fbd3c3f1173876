package skuflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/acmeproducts/skuflow/internal/hooks"
	"github.com/acmeproducts/skuflow/internal/notification"
)

// HandleImportTask is the asynq handler for TaskTypeImport. A returned error
// makes the queue retry the job; EmptyInput is wrapped in asynq.SkipRetry.
// When the last attempt fails the operator is notified and the queue archives
// the task. Each job id is a single asynq task, so a job is only handed to one
// worker at a time; a worker that dies mid-import loses its lease and the job
// is redelivered and imported again from the start.
func (s *Skuflow) HandleImportTask(ctx context.Context, task *asynq.Task) error {
	var payload ImportTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.Error(err)
		return fmt.Errorf("invalid import task payload: %v: %w", err, asynq.SkipRetry)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	logger := logrus.WithFields(logrus.Fields{
		"job_id":  payload.JobID,
		"attempt": retried + 1,
	})

	result := s.ImportCSV(ctx, payload.JobID, payload.SourcePath)
	if result.Err == nil {
		return nil
	}

	var ingestionErr *IngestionError
	if errors.As(result.Err, &ingestionErr) && !ingestionErr.Retryable() {
		logger.WithError(result.Err).Warn("import rejected")
		return fmt.Errorf("%v: %w", result.Err, asynq.SkipRetry)
	}

	if retried >= maxRetry {
		logger.WithError(result.Err).Error("import abandoned after final attempt")
		notification.NotifyError(fmt.Errorf("import %s abandoned after %d attempts: %w", payload.JobID, retried+1, result.Err))
		return result.Err
	}

	logger.WithError(result.Err).Warn("import failed, will retry")
	return result.Err
}

// RetryDelay is the asynq RetryDelayFunc of the worker server. Import jobs
// wait a fixed delay between attempts; other task types keep asynq's default.
func (s *Skuflow) RetryDelay(n int, err error, task *asynq.Task) time.Duration {
	if task.Type() == TaskTypeImport {
		return s.config.Queue.ImportRetryDelay()
	}
	return asynq.DefaultRetryDelayFunc(n, err, task)
}

// RegisterHandlers wires every task type this service processes into mux.
func (s *Skuflow) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeImport, s.HandleImportTask)
	mux.HandleFunc(hooks.TaskTypeDelivery, s.webhooks.ProcessDeliveryTask)
}
