package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todo-planner/internal/model"
)

// TaskFilter narrows ListByUser. Nil fields match everything.
type TaskFilter struct {
	Completed *bool
	Priority  *model.Priority
}

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	task.DueDate = utcPtr(task.DueDate)
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// CreateFromTemplate inserts a task stamped from tmpl. A non-empty key is
// stored as the task's SourceKey; when a task with the same key already
// exists nothing is written and created is false.
func (r *TaskRepository) CreateFromTemplate(ctx context.Context, userID uint, tmpl model.TaskTemplate, key string) (bool, error) {
	task := model.Task{
		UserID:      userID,
		Title:       tmpl.Title,
		Description: tmpl.Description,
		Priority:    tmpl.Priority,
		Tags:        append([]string(nil), tmpl.Tags...),
	}
	if key != "" {
		task.SourceKey = &key
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "source_key"}}, DoNothing: true}).
		Create(&task)
	if res.Error != nil {
		return false, fmt.Errorf("create task from template: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByUser returns the user's tasks, newest first.
func (r *TaskRepository) ListByUser(ctx context.Context, userID uint, filter TaskFilter) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Completed != nil {
		q = q.Where("completed = ?", *filter.Completed)
	}
	if filter.Priority != nil {
		q = q.Where("priority = ?", *filter.Priority)
	}

	var tasks []model.Task
	if err := q.Order("created_at DESC, id DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListUpcoming returns open tasks that have a due date, soonest first.
func (r *TaskRepository) ListUpcoming(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed = ? AND due_date IS NOT NULL", userID, false).
		Order("due_date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListOverdue returns open tasks whose due date is before now.
func (r *TaskRepository) ListOverdue(ctx context.Context, userID uint, now time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed = ? AND due_date IS NOT NULL AND due_date < ?", userID, false, utc(now)).
		Order("due_date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	task.DueDate = utcPtr(task.DueDate)
	task.CompletedAt = utcPtr(task.CompletedAt)
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (r *TaskRepository) MarkCompleted(ctx context.Context, task *model.Task, completedAt time.Time) error {
	task.Completed = true
	task.CompletedAt = &completedAt
	if err := r.db.WithContext(ctx).Model(task).Updates(map[string]interface{}{
		"completed":    true,
		"completed_at": utc(completedAt),
	}).Error; err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

func (r *TaskRepository) MarkOpen(ctx context.Context, task *model.Task) error {
	task.Completed = false
	task.CompletedAt = nil
	if err := r.db.WithContext(ctx).Model(task).Updates(map[string]interface{}{
		"completed":    false,
		"completed_at": nil,
	}).Error; err != nil {
		return fmt.Errorf("reopen task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, taskID uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Task{}, taskID).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// DeleteCompleted removes every completed task of the user.
func (r *TaskRepository) DeleteCompleted(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND completed = ?", userID, true).
		Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete completed tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}
