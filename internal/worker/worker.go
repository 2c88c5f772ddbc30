// Package worker executes queued sync jobs and schedules recurring ones.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	syncer "github.com/atlas-support/backend/internal/sync"
	"github.com/atlas-support/backend/pkg/queue"
)

// SyncProcessor drains the sync job queue and runs each job through the
// orchestrator. A job that arrives while a run is in progress is dropped,
// not queued behind it; the next scheduled job will catch up.
type SyncProcessor struct {
	orch   *syncer.Orchestrator
	queue  *queue.Queue
	logger *zap.Logger
}

// NewSyncProcessor creates a sync job processor.
func NewSyncProcessor(orch *syncer.Orchestrator, q *queue.Queue, logger *zap.Logger) *SyncProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncProcessor{orch: orch, queue: q, logger: logger}
}

// Run consumes jobs until ctx is done.
func (p *SyncProcessor) Run(ctx context.Context) {
	for {
		job, err := p.queue.Dequeue(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.Error("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("sync job failed",
				zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Error(err))
		}
	}
}

// Process executes one sync job.
func (p *SyncProcessor) Process(ctx context.Context, job *queue.Job) error {
	if !p.orch.TryBegin() {
		p.logger.Info("sync in progress, dropping job",
			zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		return nil
	}
	defer p.orch.End()

	start := time.Now()
	var err error
	switch job.Type {
	case queue.JobTypeFullSync:
		err = p.orch.SyncAll(ctx)
	case queue.JobTypeDeltaSync:
		err = p.orch.SyncDelta(ctx)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	if err != nil {
		return err
	}
	p.logger.Info("sync job done",
		zap.String("job_id", job.ID), zap.String("type", string(job.Type)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Scheduler enqueues recurring sync jobs: deltas on a short cadence, a
// full refresh on a long one.
type Scheduler struct {
	queue      *queue.Queue
	deltaEvery time.Duration
	fullEvery  time.Duration
	logger     *zap.Logger
}

// NewScheduler creates a sync scheduler.
func NewScheduler(q *queue.Queue, deltaEvery, fullEvery time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{queue: q, deltaEvery: deltaEvery, fullEvery: fullEvery, logger: logger}
}

// Run enqueues jobs on their cadences until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	delta := time.NewTicker(s.deltaEvery)
	full := time.NewTicker(s.fullEvery)
	defer delta.Stop()
	defer full.Stop()

	s.logger.Info("scheduler started",
		zap.Duration("delta_every", s.deltaEvery), zap.Duration("full_every", s.fullEvery))
	for {
		select {
		case <-ctx.Done():
			return
		case <-full.C:
			if err := s.queue.Enqueue(ctx, queue.JobTypeFullSync, "scheduler"); err != nil {
				s.logger.Error("enqueue full sync", zap.Error(err))
			}
		case <-delta.C:
			if err := s.queue.Enqueue(ctx, queue.JobTypeDeltaSync, "scheduler"); err != nil {
				s.logger.Error("enqueue delta sync", zap.Error(err))
			}
		}
	}
}
