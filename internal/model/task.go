package model

import "time"

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task represents a single item on a user's list.
type Task struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"index;index:idx_task_user_completed,priority:1"`
	Title       string `gorm:"not null"`
	Description string
	Completed   bool `gorm:"index:idx_task_user_completed,priority:2"`
	CompletedAt *time.Time
	Priority    Priority   `gorm:"type:varchar(10);index"`
	DueDate     *time.Time `gorm:"index"`
	Tags        []string   `gorm:"serializer:json"`
	// SourceKey identifies the schedule slot a task was spawned from.
	SourceKey *string `gorm:"uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
