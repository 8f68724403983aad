package service

import (
	"context"
	"strings"
	"time"

	"todo-planner/internal/model"
	"todo-planner/internal/ratelimit"
	"todo-planner/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string
	Description string
	Priority    model.Priority
	DueDate     *time.Time
	Tags        []string
}

// TaskUpdate carries a partial update. Nil fields are left untouched.
type TaskUpdate struct {
	Title        *string
	Description  *string
	Priority     *model.Priority
	DueDate      *time.Time
	ClearDueDate bool
	Tags         *[]string
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo *repository.TaskRepository
	limiter  RateLimiter
	now      func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository, limiter RateLimiter) *TaskService {
	return &TaskService{taskRepo: taskRepo, limiter: limiter, now: time.Now}
}

func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	if err := allow(s.limiter, ratelimit.CreateTask, user); err != nil {
		return nil, err
	}

	task := model.Task{
		UserID:      user.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Priority:    defaultPriority(input.Priority),
		DueDate:     input.DueDate,
		Tags:        normalizeTags(input.Tags),
	}
	if err := validateTaskFields(task); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func validateTaskFields(task model.Task) error {
	if err := validateTitle(task.Title); err != nil {
		return err
	}
	if err := validateDescription(task.Description); err != nil {
		return err
	}
	if err := validatePriority(task.Priority); err != nil {
		return err
	}
	return validateTags(task.Tags)
}

// ListTasks returns all of the user's tasks, newest first.
func (s *TaskService) ListTasks(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.taskRepo.ListByUser(ctx, user.ID, repository.TaskFilter{})
}

func (s *TaskService) ListByStatus(ctx context.Context, user *model.User, completed bool) ([]model.Task, error) {
	return s.taskRepo.ListByUser(ctx, user.ID, repository.TaskFilter{Completed: &completed})
}

func (s *TaskService) ListByPriority(ctx context.Context, user *model.User, priority model.Priority) ([]model.Task, error) {
	if err := validatePriority(priority); err != nil {
		return nil, err
	}
	return s.taskRepo.ListByUser(ctx, user.ID, repository.TaskFilter{Priority: &priority})
}

// Upcoming returns open tasks with a due date, soonest first.
func (s *TaskService) Upcoming(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.taskRepo.ListUpcoming(ctx, user.ID)
}

func (s *TaskService) Overdue(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.taskRepo.ListOverdue(ctx, user.ID, s.now())
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	return s.ownedTask(ctx, user, taskID)
}

func (s *TaskService) UpdateTask(ctx context.Context, user *model.User, taskID uint, upd TaskUpdate) (*model.Task, error) {
	if err := allow(s.limiter, ratelimit.UpdateTask, user); err != nil {
		return nil, err
	}
	task, err := s.ownedTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		task.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		task.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Priority != nil {
		task.Priority = *upd.Priority
	}
	switch {
	case upd.ClearDueDate:
		task.DueDate = nil
	case upd.DueDate != nil:
		task.DueDate = upd.DueDate
	}
	if upd.Tags != nil {
		task.Tags = normalizeTags(*upd.Tags)
	}
	if err := validateTaskFields(*task); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ToggleComplete flips the completion state of a task.
func (s *TaskService) ToggleComplete(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	if err := allow(s.limiter, ratelimit.UpdateTask, user); err != nil {
		return nil, err
	}
	task, err := s.ownedTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}

	if task.Completed {
		err = s.taskRepo.MarkOpen(ctx, task)
	} else {
		err = s.taskRepo.MarkCompleted(ctx, task, s.now())
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	if err := allow(s.limiter, ratelimit.DeleteTask, user); err != nil {
		return nil, err
	}
	task, err := s.ownedTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		return nil, err
	}
	return task, nil
}

// ClearCompleted removes all completed tasks and reports how many went away.
func (s *TaskService) ClearCompleted(ctx context.Context, user *model.User) (int64, error) {
	if err := allow(s.limiter, ratelimit.DeleteTask, user); err != nil {
		return 0, err
	}
	return s.taskRepo.DeleteCompleted(ctx, user.ID)
}

func (s *TaskService) ownedTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookupErr("task", err)
	}
	if task.UserID != user.ID {
		return nil, ErrForbidden
	}
	return task, nil
}
