package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"todo-planner/internal/cronexpr"
	"todo-planner/internal/model"
	"todo-planner/internal/ratelimit"
	"todo-planner/internal/repository"
)

// NextRunCalculator computes the next occurrence of a cron expression.
// cronexpr.Calculator implements it.
type NextRunCalculator interface {
	Next(expr string, from time.Time) (time.Time, error)
	Validate(expr string) error
}

// ScheduleInput represents data required to create a recurring task.
type ScheduleInput struct {
	CronExpression string
	Template       model.TaskTemplate
}

// ScheduleUpdate carries a partial update. Nil fields are left untouched.
type ScheduleUpdate struct {
	CronExpression *string
	Title          *string
	Description    *string
	Priority       *model.Priority
	Tags           *[]string
}

// ScheduledTaskService manages recurring task templates.
type ScheduledTaskService struct {
	repo    *repository.ScheduledTaskRepository
	calc    NextRunCalculator
	limiter RateLimiter
	loc     *time.Location
	now     func() time.Time
}

// NewScheduledTaskService builds the service. Run times are computed in loc.
func NewScheduledTaskService(repo *repository.ScheduledTaskRepository, calc NextRunCalculator, limiter RateLimiter, loc *time.Location) *ScheduledTaskService {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduledTaskService{repo: repo, calc: calc, limiter: limiter, loc: loc, now: time.Now}
}

func (s *ScheduledTaskService) Create(ctx context.Context, user *model.User, input ScheduleInput) (*model.ScheduledTask, error) {
	if err := allow(s.limiter, ratelimit.CreateScheduledTask, user); err != nil {
		return nil, err
	}

	expr := strings.TrimSpace(input.CronExpression)
	tmpl := cleanTemplate(input.Template)
	if err := validateTemplate(tmpl); err != nil {
		return nil, err
	}
	next, err := s.firstRun(expr)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if count >= MaxSchedulesPerUser {
		return nil, fmt.Errorf("%w: at most %d scheduled tasks per user", ErrLimitReached, MaxSchedulesPerUser)
	}

	sched := model.ScheduledTask{
		UserID:         user.ID,
		Template:       tmpl,
		CronExpression: expr,
		Enabled:        true,
		NextRun:        next,
	}
	if err := s.repo.Create(ctx, &sched); err != nil {
		return nil, err
	}
	return &sched, nil
}

func (s *ScheduledTaskService) List(ctx context.Context, user *model.User) ([]model.ScheduledTask, error) {
	return s.repo.ListByUser(ctx, user.ID)
}

// ListEnabled returns the user's enabled schedules, soonest first.
func (s *ScheduledTaskService) ListEnabled(ctx context.Context, user *model.User) ([]model.ScheduledTask, error) {
	return s.repo.ListEnabledByUser(ctx, user.ID)
}

func (s *ScheduledTaskService) Get(ctx context.Context, user *model.User, id uint) (*model.ScheduledTask, error) {
	return s.owned(ctx, user, id)
}

func (s *ScheduledTaskService) Update(ctx context.Context, user *model.User, id uint, upd ScheduleUpdate) (*model.ScheduledTask, error) {
	if err := allow(s.limiter, ratelimit.UpdateScheduledTask, user); err != nil {
		return nil, err
	}
	sched, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		sched.Template.Title = *upd.Title
	}
	if upd.Description != nil {
		sched.Template.Description = *upd.Description
	}
	if upd.Priority != nil {
		sched.Template.Priority = *upd.Priority
	}
	if upd.Tags != nil {
		sched.Template.Tags = *upd.Tags
	}
	sched.Template = cleanTemplate(sched.Template)
	if err := validateTemplate(sched.Template); err != nil {
		return nil, err
	}

	if upd.CronExpression != nil {
		expr := strings.TrimSpace(*upd.CronExpression)
		if expr != sched.CronExpression {
			next, err := s.firstRun(expr)
			if err != nil {
				return nil, err
			}
			sched.CronExpression = expr
			sched.NextRun = next
		}
	}

	if err := s.repo.Save(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

// ToggleEnabled flips the enabled flag. A schedule re-enabled after its next
// run already passed is moved to the next occurrence from now instead of
// firing immediately for the missed slot.
func (s *ScheduledTaskService) ToggleEnabled(ctx context.Context, user *model.User, id uint) (*model.ScheduledTask, error) {
	if err := allow(s.limiter, ratelimit.UpdateScheduledTask, user); err != nil {
		return nil, err
	}
	sched, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}

	enabled := !sched.Enabled
	var nextRun *time.Time
	if enabled && !sched.NextRun.After(s.now()) {
		next, err := s.firstRun(sched.CronExpression)
		if err != nil {
			return nil, err
		}
		nextRun = &next
	}
	if err := s.repo.SetEnabled(ctx, sched.ID, enabled, nextRun); err != nil {
		return nil, err
	}

	sched.Enabled = enabled
	if nextRun != nil {
		sched.NextRun = *nextRun
	}
	return sched, nil
}

func (s *ScheduledTaskService) Delete(ctx context.Context, user *model.User, id uint) (*model.ScheduledTask, error) {
	if err := allow(s.limiter, ratelimit.UpdateScheduledTask, user); err != nil {
		return nil, err
	}
	sched, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, sched.ID); err != nil {
		return nil, err
	}
	return sched, nil
}

// Describe renders a schedule's cron expression for display.
func (s *ScheduledTaskService) Describe(sched model.ScheduledTask) string {
	return cronexpr.Describe(sched.CronExpression)
}

func (s *ScheduledTaskService) firstRun(expr string) (time.Time, error) {
	if err := s.calc.Validate(expr); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	next, err := s.calc.Next(expr, s.now().In(s.loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return next, nil
}

func (s *ScheduledTaskService) owned(ctx context.Context, user *model.User, id uint) (*model.ScheduledTask, error) {
	sched, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("scheduled task", err)
	}
	if sched.UserID != user.ID {
		return nil, ErrForbidden
	}
	return sched, nil
}

func cleanTemplate(tmpl model.TaskTemplate) model.TaskTemplate {
	tmpl.Title = strings.TrimSpace(tmpl.Title)
	tmpl.Description = strings.TrimSpace(tmpl.Description)
	tmpl.Priority = defaultPriority(tmpl.Priority)
	tmpl.Tags = normalizeTags(tmpl.Tags)
	return tmpl
}
