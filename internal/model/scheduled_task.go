package model

import "time"

// TaskTemplate is the blueprint a schedule stamps out on every run.
type TaskTemplate struct {
	Title       string
	Description string
	Priority    Priority `gorm:"type:varchar(10)"`
	Tags        []string `gorm:"serializer:json"`
}

// ScheduledTask spawns a new Task from Template whenever NextRun passes.
type ScheduledTask struct {
	ID             uint         `gorm:"primaryKey"`
	UserID         uint         `gorm:"index;index:idx_schedule_user_enabled,priority:1"`
	Template       TaskTemplate `gorm:"embedded;embeddedPrefix:template_"`
	CronExpression string       `gorm:"not null"`
	Enabled        bool         `gorm:"index:idx_schedule_user_enabled,priority:2"`
	LastRun        *time.Time
	NextRun        time.Time `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
