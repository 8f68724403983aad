package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"todo-planner/internal/model"
)

// ThreadRepository stores assistant threads and their messages.
type ThreadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

func (r *ThreadRepository) Create(ctx context.Context, thread *model.Thread) error {
	if thread.Status == "" {
		thread.Status = model.ThreadActive
	}
	if err := r.db.WithContext(ctx).Create(thread).Error; err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	return nil
}

func (r *ThreadRepository) FindByID(ctx context.Context, id uint) (*model.Thread, error) {
	var thread model.Thread
	if err := r.db.WithContext(ctx).First(&thread, id).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

// ListByUser returns the user's threads, most recently touched first.
func (r *ThreadRepository) ListByUser(ctx context.Context, userID uint) ([]model.Thread, error) {
	var threads []model.Thread
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&threads).Error; err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *ThreadRepository) ListActiveByUser(ctx context.Context, userID uint) ([]model.Thread, error) {
	var threads []model.Thread
	if err := r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, model.ThreadActive).
		Order("updated_at DESC, id DESC").
		Find(&threads).Error; err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *ThreadRepository) CountActive(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Thread{}).
		Where("user_id = ? AND status = ?", userID, model.ThreadActive).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count threads: %w", err)
	}
	return n, nil
}

func (r *ThreadRepository) Archive(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&model.Thread{ID: id}).
		Update("status", model.ThreadArchived).Error; err != nil {
		return fmt.Errorf("archive thread: %w", err)
	}
	return nil
}

// Delete removes the thread together with all of its messages.
func (r *ThreadRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("delete thread messages: %w", err)
		}
		if err := tx.Delete(&model.Thread{}, id).Error; err != nil {
			return fmt.Errorf("delete thread: %w", err)
		}
		return nil
	})
}

// AddMessage appends msg and bumps the thread's updated_at.
func (r *ThreadRepository) AddMessage(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		if err := tx.Model(&model.Thread{ID: msg.ThreadID}).Update("updated_at", msg.CreatedAt).Error; err != nil {
			return fmt.Errorf("touch thread: %w", err)
		}
		return nil
	})
}

// Messages returns the thread's messages in conversation order.
func (r *ThreadRepository) Messages(ctx context.Context, threadID uint) ([]model.Message, error) {
	var msgs []model.Message
	if err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
