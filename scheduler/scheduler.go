// Package scheduler triggers daily digest jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"digestbot/digest"
	"digestbot/types"
)

// Dispatcher hands one digest job to whatever executes it.
type Dispatcher interface {
	Dispatch(ctx context.Context, job types.DigestJob) error
}

// Publisher is the queue side of a Kafka producer.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// QueueDispatcher enqueues jobs keyed by user id.
type QueueDispatcher struct {
	Publisher Publisher
}

// Dispatch implements Dispatcher.
func (d QueueDispatcher) Dispatch(ctx context.Context, job types.DigestJob) error {
	return d.Publisher.PublishJSON(ctx, job.UserID, job)
}

// Runner executes a digest job in-process.
type Runner interface {
	Run(ctx context.Context, job types.DigestJob) digest.Outcome
}

// RunDispatcher runs jobs synchronously and reports failed outcomes as errors.
type RunDispatcher struct {
	Runner Runner
}

// Dispatch implements Dispatcher.
func (d RunDispatcher) Dispatch(ctx context.Context, job types.DigestJob) error {
	out := d.Runner.Run(ctx, job)
	if out.Failed() {
		return fmt.Errorf("digest %s failed at %s: %w", job.UserID, out.Stage, out.Err)
	}
	return nil
}

// Scheduler dispatches one job per configured user on every cron tick.
type Scheduler struct {
	cron       *cron.Cron
	users      []string
	dispatcher Dispatcher
	logger     *zap.Logger

	mu      sync.Mutex
	started bool
	// cancel ends the context of cron-triggered dispatches.
	cancel context.CancelFunc
}

// New returns a Scheduler whose schedule is evaluated in loc.
func New(users []string, dispatcher Dispatcher, loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		users:      users,
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("component", "scheduler")),
	}
}

// Start registers schedule and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	_, err := s.cron.AddFunc(schedule, func() {
		s.logger.Info("Cron triggered: dispatching daily digests", zap.Int("users", len(s.users)))
		s.Trigger(ctx)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.cancel = cancel

	s.cron.Start()
	s.started = true
	s.logger.Info("Cron job started", zap.String("schedule", schedule))
	return nil
}

// Trigger dispatches a job for every user now and returns how many failed.
// Users left when ctx is done are not dispatched and count as failures.
func (s *Scheduler) Trigger(ctx context.Context) int {
	failures := 0
	for i, user := range s.users {
		if err := ctx.Err(); err != nil {
			failures += len(s.users) - i
			s.logger.Warn("Digest dispatch cancelled", zap.Int("remaining", len(s.users)-i), zap.Error(err))
			break
		}
		if err := s.dispatcher.Dispatch(ctx, types.DigestJob{UserID: user}); err != nil {
			failures++
			s.logger.Error("Failed to dispatch digest", zap.String("user_id", user), zap.Error(err))
		}
	}
	return failures
}

// Stop stops the cron loop, cancels dispatches it started and waits for a
// running trigger to return.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.started = false
}
