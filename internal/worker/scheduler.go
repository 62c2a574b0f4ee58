package worker

import (
	"context"
	"time"

	"github.com/dvloznov/headlines-etl/internal/jobs"
	"github.com/dvloznov/headlines-etl/internal/logger"
)

// Scheduler publishes one transform job per pipeline on a fixed interval.
type Scheduler struct {
	publisher jobs.Publisher
	pipelines []string
	interval  time.Duration
}

// NewScheduler creates a scheduler for the given pipelines.
func NewScheduler(publisher jobs.Publisher, interval time.Duration, pipelines ...string) *Scheduler {
	return &Scheduler{
		publisher: publisher,
		pipelines: pipelines,
		interval:  interval,
	}
}

// Tick publishes a job for every pipeline and returns the published jobs.
// A failed publish is logged and does not stop the others.
func (s *Scheduler) Tick(ctx context.Context) []*jobs.TransformJob {
	log := logger.FromContext(ctx)

	published := make([]*jobs.TransformJob, 0, len(s.pipelines))
	for _, p := range s.pipelines {
		job := &jobs.TransformJob{Pipeline: p}
		if err := s.publisher.PublishTransform(ctx, job); err != nil {
			log.Error().Err(err).Str("pipeline", p).Msg("Failed to schedule transform job")
			continue
		}
		log.Info().Str("job_id", job.JobID).Str("pipeline", p).Msg("Scheduled transform job")
		published = append(published, job)
	}
	return published
}

// Run ticks immediately and then every interval until ctx is done.
// A non-positive interval ticks once.
func (s *Scheduler) Run(ctx context.Context) {
	s.Tick(ctx)
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
