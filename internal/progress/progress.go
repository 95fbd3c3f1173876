// Package progress publishes import job progress on Redis pub/sub.
// Delivery is fire-and-forget: nothing is buffered or replayed, and a job
// nobody is watching costs one PUBLISH per event.
package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/acmeproducts/skuflow/model"
)

const channelPrefix = "progress:"

// Channel returns the topic name for a job.
func Channel(jobID string) string {
	return channelPrefix + jobID
}

// IsTerminal reports whether no further events follow one with this status.
func IsTerminal(status string) bool {
	return status == model.ImportStatusComplete || status == model.ImportStatusError
}

// Publisher sends progress events for a job.
type Publisher interface {
	Publish(ctx context.Context, jobID string, event model.ProgressEvent) error
}

// Broker is a Publisher that observers can also subscribe to.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, jobID string) (<-chan model.ProgressEvent, func() error, error)
}

// RedisPublisher implements Broker over Redis pub/sub.
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, jobID string, event model.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(jobID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish progress for job %s: %w", jobID, err)
	}
	return nil
}

// Subscribe starts listening on a job's topic. Only events published after it
// returns are seen. The returned channel is closed when ctx is done or the
// close func is called.
func (p *RedisPublisher) Subscribe(ctx context.Context, jobID string) (<-chan model.ProgressEvent, func() error, error) {
	pubsub := p.client.Subscribe(ctx, Channel(jobID))

	// Wait for the subscription to be confirmed before handing the channel out.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to job %s: %w", jobID, err)
	}

	out := make(chan model.ProgressEvent)
	messages := pubsub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event model.ProgressEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logrus.WithFields(logrus.Fields{"job_id": jobID, "error": err}).Warn("dropping malformed progress event")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, pubsub.Close, nil
}
