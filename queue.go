/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package skuflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/acmeproducts/skuflow/config"
	"github.com/acmeproducts/skuflow/internal/apierror"
	"github.com/acmeproducts/skuflow/internal/hooks"
	redis_db "github.com/acmeproducts/skuflow/internal/redis-db"
)

// TaskTypeImport is the asynq task type of a CSV ingestion job.
const TaskTypeImport = "import:csv"

// importRetention keeps finished import tasks around so their state can be queried.
const importRetention = 24 * time.Hour

// ImportTaskPayload is what the upload endpoint hands to the worker.
type ImportTaskPayload struct {
	JobID      string `json:"job_id"`
	SourcePath string `json:"source_path"`
}

// Queue represents a queue for handling import and webhook delivery tasks.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector

	importQueue     string
	importMaxRetry  int
	webhookQueue    string
	deliveryTimeout time.Duration
}

// NewQueue initializes a new Queue instance with the provided configuration.
//
// Parameters:
// - conf *config.Configuration: The configuration for the queue.
//
// Returns:
// - *Queue: A pointer to the newly created Queue instance.
// - error: An error if the Redis address cannot be parsed.
func NewQueue(conf *config.Configuration) (*Queue, error) {
	queueOptions, err := redis_db.AsynqClientOpt(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %w", err)
	}

	return &Queue{
		Client:          asynq.NewClient(queueOptions),
		Inspector:       asynq.NewInspector(queueOptions),
		importQueue:     conf.Queue.ImportQueue,
		importMaxRetry:  conf.Queue.ImportMaxRetry,
		webhookQueue:    conf.Queue.WebhookQueue,
		deliveryTimeout: deliveryTaskTimeout(conf.Webhook),
	}, nil
}

// deliveryTaskTimeout bounds one delivery task: every attempt may run to the
// HTTP timeout and every gap between attempts is a full retry delay.
func deliveryTaskTimeout(cfg config.WebhookConfig) time.Duration {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(attempts)*cfg.Timeout() + time.Duration(attempts-1)*cfg.RetryDelay() + 30*time.Second
}

// EnqueueImport schedules a CSV ingestion job. The job id doubles as the asynq
// task id, so a job can never be queued twice.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - jobID string: The id of the import job.
// - sourcePath string: Where the uploaded file was written.
//
// Returns:
// - error: An error if the task could not be enqueued.
func (q *Queue) EnqueueImport(ctx context.Context, jobID, sourcePath string) error {
	ctx, span := otel.Tracer("skuflow.queue").Start(ctx, "Adding Import Job To Redis Queue")
	defer span.End()

	payload, err := json.Marshal(ImportTaskPayload{JobID: jobID, SourcePath: sourcePath})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeImport, payload,
		asynq.TaskID(jobID),
		asynq.Queue(q.importQueue),
		asynq.MaxRetry(q.importMaxRetry),
		asynq.Retention(importRetention),
	)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("import job %s is already queued", jobID), err)
		}
		return err
	}

	logrus.WithFields(logrus.Fields{"job_id": jobID, "queue": info.Queue}).Info(" [*] Successfully enqueued import job")
	return nil
}

// SubmitDelivery queues one webhook delivery. The engine owns the retry loop,
// so the queue is told never to retry the task itself.
func (q *Queue) SubmitDelivery(ctx context.Context, task hooks.DeliveryTask) (string, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return "", err
	}

	info, err := q.Client.EnqueueContext(ctx, asynq.NewTask(hooks.TaskTypeDelivery, payload),
		asynq.Queue(q.webhookQueue),
		asynq.MaxRetry(0),
		asynq.Timeout(q.deliveryTimeout),
	)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// GetImportTask looks up the queue's view of an import job: pending, active,
// retry, archived or completed.
func (q *Queue) GetImportTask(jobID string) (*asynq.TaskInfo, error) {
	info, err := q.Inspector.GetTaskInfo(q.importQueue, jobID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("import job %s not found", jobID), err)
		}
		return nil, err
	}
	return info, nil
}

// Close releases the queue's Redis connections.
func (q *Queue) Close() error {
	return errors.Join(q.Client.Close(), q.Inspector.Close())
}
