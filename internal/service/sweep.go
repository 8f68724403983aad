package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"todo-planner/internal/model"
)

// DueScheduleStore is the schedule storage the sweep reads and advances.
type DueScheduleStore interface {
	ListDue(ctx context.Context, now time.Time) ([]model.ScheduledTask, error)
	UpdateRunTimes(ctx context.Context, id uint, lastRun, nextRun time.Time) error
}

// TemplateTaskCreator materializes a task from a template. It reports
// created=false when a task with the same key already exists.
type TemplateTaskCreator interface {
	CreateFromTemplate(ctx context.Context, userID uint, tmpl model.TaskTemplate, key string) (bool, error)
}

// NextRunFunc computes the next occurrence of expr strictly after from.
type NextRunFunc func(expr string, from time.Time) (time.Time, error)

// SweepResult summarizes one pass over the due schedules.
type SweepResult struct {
	Examined   int
	Created    int
	Duplicates int
	Failed     int
	Aborted    bool
}

// SweepService turns due schedules into tasks and advances their run times.
type SweepService struct {
	schedules DueScheduleStore
	tasks     TemplateTaskCreator
	next      NextRunFunc
	log       zerolog.Logger
	timeout   time.Duration
	loc       *time.Location
	now       func() time.Time
	running   atomic.Bool
}

type SweepOption func(*SweepService)

// WithSweepTimeout bounds a single run. Zero disables the bound.
func WithSweepTimeout(d time.Duration) SweepOption {
	return func(s *SweepService) { s.timeout = d }
}

// WithSweepLocation sets the time zone daily schedules are evaluated in.
func WithSweepLocation(loc *time.Location) SweepOption {
	return func(s *SweepService) { s.loc = loc }
}

func WithSweepClock(now func() time.Time) SweepOption {
	return func(s *SweepService) { s.now = now }
}

func NewSweepService(schedules DueScheduleStore, tasks TemplateTaskCreator, next NextRunFunc, log zerolog.Logger, opts ...SweepOption) *SweepService {
	s := &SweepService{
		schedules: schedules,
		tasks:     tasks,
		next:      next,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SlotKey identifies the task a schedule produces for one run slot.
func SlotKey(sched model.ScheduledTask) string {
	return fmt.Sprintf("schedule:%d:%d", sched.ID, sched.NextRun.Unix())
}

// Run processes every enabled schedule whose next run has passed. Items are
// handled one at a time and a failing item never stops the loop. The only
// errors returned are ErrSweepInProgress and a failure to list due schedules.
func (s *SweepService) Run(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	if !s.running.CompareAndSwap(false, true) {
		return res, ErrSweepInProgress
	}
	defer s.running.Store(false)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	now := s.now()
	if s.loc != nil {
		now = now.In(s.loc)
	}
	due, err := s.schedules.ListDue(ctx, now)
	if err != nil {
		return res, fmt.Errorf("list due schedules: %w", err)
	}

	for _, sched := range due {
		if ctx.Err() != nil {
			res.Aborted = true
			s.log.Warn().
				Int("remaining", len(due)-res.Examined).
				Msg("sweep deadline reached, remaining schedules deferred")
			break
		}
		res.Examined++

		created, err := s.process(ctx, sched, now)
		switch {
		case err == nil && created:
			res.Created++
		case err == nil:
			res.Duplicates++
		case errors.Is(err, ErrScheduleUpdate):
			// The task exists, only the advance failed.
			if created {
				res.Created++
			} else {
				res.Duplicates++
			}
			res.Failed++
			s.log.Error().Err(err).Uint("schedule", sched.ID).Msg("schedule not advanced")
		default:
			res.Failed++
			s.log.Error().Err(err).Uint("schedule", sched.ID).Msg("scheduled task skipped")
		}
	}

	s.log.Info().
		Int("examined", res.Examined).
		Int("created", res.Created).
		Int("duplicates", res.Duplicates).
		Int("failed", res.Failed).
		Bool("aborted", res.Aborted).
		Msg("sweep finished")
	return res, nil
}

func (s *SweepService) process(ctx context.Context, sched model.ScheduledTask, now time.Time) (bool, error) {
	next, err := s.next(sched.CronExpression, now)
	if err != nil {
		return false, fmt.Errorf("%w: next run for %q: %v", ErrTaskCreation, sched.CronExpression, err)
	}

	created, err := s.tasks.CreateFromTemplate(ctx, sched.UserID, sched.Template, SlotKey(sched))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTaskCreation, err)
	}

	if err := s.schedules.UpdateRunTimes(ctx, sched.ID, now, next); err != nil {
		return created, fmt.Errorf("%w: %v", ErrScheduleUpdate, err)
	}
	return created, nil
}
