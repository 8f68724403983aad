package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"todo-planner/internal/model"
)

// TableCounts holds one counter per stored record type.
type TableCounts struct {
	Tasks          int64
	ScheduledTasks int64
	Threads        int64
	Messages       int64
	Preferences    int64
}

// Total sums all counters.
func (c TableCounts) Total() int64 {
	return c.Tasks + c.ScheduledTasks + c.Threads + c.Messages + c.Preferences
}

// TaskCounts breaks tasks down by state and priority.
type TaskCounts struct {
	Total     int64
	Completed int64
	Active    int64
	Overdue   int64
	High      int64
	Medium    int64
	Low       int64
}

// DashboardRepository runs typed count queries. A zero userID means all users.
type DashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

func (r *DashboardRepository) scoped(ctx context.Context, m interface{}, userID uint) *gorm.DB {
	q := r.db.WithContext(ctx).Model(m)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	return q
}

func (r *DashboardRepository) count(ctx context.Context, m interface{}, userID uint, dst *int64, where ...interface{}) error {
	q := r.scoped(ctx, m, userID)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	return q.Count(dst).Error
}

func (r *DashboardRepository) TableCounts(ctx context.Context, userID uint) (TableCounts, error) {
	var c TableCounts
	steps := []struct {
		name string
		m    interface{}
		dst  *int64
	}{
		{"tasks", &model.Task{}, &c.Tasks},
		{"scheduled tasks", &model.ScheduledTask{}, &c.ScheduledTasks},
		{"threads", &model.Thread{}, &c.Threads},
		{"messages", &model.Message{}, &c.Messages},
		{"preferences", &model.Preferences{}, &c.Preferences},
	}
	for _, s := range steps {
		if err := r.count(ctx, s.m, userID, s.dst); err != nil {
			return TableCounts{}, fmt.Errorf("count %s: %w", s.name, err)
		}
	}
	return c, nil
}

func (r *DashboardRepository) TaskCounts(ctx context.Context, userID uint, now time.Time) (TaskCounts, error) {
	var c TaskCounts
	steps := []struct {
		name  string
		dst   *int64
		where []interface{}
	}{
		{"total", &c.Total, nil},
		{"completed", &c.Completed, []interface{}{"completed = ?", true}},
		{"active", &c.Active, []interface{}{"completed = ?", false}},
		{"overdue", &c.Overdue, []interface{}{"completed = ? AND due_date IS NOT NULL AND due_date < ?", false, utc(now)}},
		{"high", &c.High, []interface{}{"priority = ?", model.PriorityHigh}},
		{"medium", &c.Medium, []interface{}{"priority = ?", model.PriorityMedium}},
		{"low", &c.Low, []interface{}{"priority = ?", model.PriorityLow}},
	}
	for _, s := range steps {
		if err := r.count(ctx, &model.Task{}, userID, s.dst, s.where...); err != nil {
			return TaskCounts{}, fmt.Errorf("count %s tasks: %w", s.name, err)
		}
	}
	return c, nil
}

// RecentTasks returns the most recently updated tasks.
func (r *DashboardRepository) RecentTasks(ctx context.Context, userID uint, limit int) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.scoped(ctx, &model.Task{}, userID).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("recent tasks: %w", err)
	}
	return tasks, nil
}
