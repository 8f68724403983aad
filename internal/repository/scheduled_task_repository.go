package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"todo-planner/internal/model"
)

// ScheduledTaskRepository handles CRUD for recurring task schedules.
type ScheduledTaskRepository struct {
	db *gorm.DB
}

func NewScheduledTaskRepository(db *gorm.DB) *ScheduledTaskRepository {
	return &ScheduledTaskRepository{db: db}
}

func (r *ScheduledTaskRepository) Create(ctx context.Context, sched *model.ScheduledTask) error {
	sched.NextRun = utc(sched.NextRun)
	sched.LastRun = utcPtr(sched.LastRun)
	if err := r.db.WithContext(ctx).Create(sched).Error; err != nil {
		return fmt.Errorf("create scheduled task: %w", err)
	}
	return nil
}

func (r *ScheduledTaskRepository) FindByID(ctx context.Context, id uint) (*model.ScheduledTask, error) {
	var sched model.ScheduledTask
	if err := r.db.WithContext(ctx).First(&sched, id).Error; err != nil {
		return nil, err
	}
	return &sched, nil
}

// ListByUser returns the user's schedules, newest first.
func (r *ScheduledTaskRepository) ListByUser(ctx context.Context, userID uint) ([]model.ScheduledTask, error) {
	var scheds []model.ScheduledTask
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&scheds).Error; err != nil {
		return nil, err
	}
	return scheds, nil
}

// ListEnabledByUser returns the user's enabled schedules, soonest first.
func (r *ScheduledTaskRepository) ListEnabledByUser(ctx context.Context, userID uint) ([]model.ScheduledTask, error) {
	var scheds []model.ScheduledTask
	if err := r.db.WithContext(ctx).Where("user_id = ? AND enabled = ?", userID, true).
		Order("next_run ASC, id ASC").
		Find(&scheds).Error; err != nil {
		return nil, err
	}
	return scheds, nil
}

func (r *ScheduledTaskRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.ScheduledTask{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count scheduled tasks: %w", err)
	}
	return n, nil
}

// ListDue returns every enabled schedule whose next run is at or before now.
func (r *ScheduledTaskRepository) ListDue(ctx context.Context, now time.Time) ([]model.ScheduledTask, error) {
	var scheds []model.ScheduledTask
	if err := r.db.WithContext(ctx).
		Where("enabled = ? AND next_run <= ?", true, utc(now)).
		Order("next_run ASC, id ASC").
		Find(&scheds).Error; err != nil {
		return nil, fmt.Errorf("list due scheduled tasks: %w", err)
	}
	return scheds, nil
}

func (r *ScheduledTaskRepository) Save(ctx context.Context, sched *model.ScheduledTask) error {
	sched.NextRun = utc(sched.NextRun)
	sched.LastRun = utcPtr(sched.LastRun)
	if err := r.db.WithContext(ctx).Save(sched).Error; err != nil {
		return fmt.Errorf("save scheduled task: %w", err)
	}
	return nil
}

// SetEnabled flips the enabled flag and, when nextRun is non-nil, moves the
// next run as part of the same write.
func (r *ScheduledTaskRepository) SetEnabled(ctx context.Context, id uint, enabled bool, nextRun *time.Time) error {
	updates := map[string]interface{}{"enabled": enabled}
	if nextRun != nil {
		updates["next_run"] = utc(*nextRun)
	}
	if err := r.db.WithContext(ctx).Model(&model.ScheduledTask{ID: id}).Updates(updates).Error; err != nil {
		return fmt.Errorf("set scheduled task enabled: %w", err)
	}
	return nil
}

// UpdateRunTimes records a completed run.
func (r *ScheduledTaskRepository) UpdateRunTimes(ctx context.Context, id uint, lastRun, nextRun time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.ScheduledTask{ID: id}).Updates(map[string]interface{}{
		"last_run": utc(lastRun),
		"next_run": utc(nextRun),
	})
	if res.Error != nil {
		return fmt.Errorf("update scheduled task run: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update scheduled task run %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *ScheduledTaskRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.ScheduledTask{}, id).Error; err != nil {
		return fmt.Errorf("delete scheduled task: %w", err)
	}
	return nil
}
