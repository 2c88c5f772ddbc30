package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueSync is the Redis list key for sync jobs.
	QueueSync = "worker:sync"
	// QueueDLQ holds jobs that could not be decoded or dispatched.
	QueueDLQ = "worker:dlq"
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeFullSync  JobType = "full_sync"
	JobTypeDeltaSync JobType = "delta_sync"
)

// Job is the sync job envelope.
type Job struct {
	ID        string    `json:"id"`
	Type      JobType   `json:"type"`
	Requested string    `json:"requested_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Queue enqueues and dequeues sync jobs via a Redis list.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a Redis-backed sync job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// Enqueue pushes one sync job.
func (q *Queue) Enqueue(ctx context.Context, jobType JobType, requestedBy string) error {
	job := Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Requested: requestedBy,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueSync, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued sync job",
		zap.String("job_id", job.ID), zap.String("type", string(jobType)))
	return nil
}

// Dequeue blocks until a job is available or ctx is done. An undecodable
// payload goes to the DLQ and Dequeue returns (nil, nil).
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, 0, QueueSync).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload, moving to DLQ",
			zap.String("raw", result[1]), zap.Error(err))
		_ = q.client.RPush(ctx, QueueDLQ, result[1]).Err()
		return nil, nil
	}
	return &job, nil
}
