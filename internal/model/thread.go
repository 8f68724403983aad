package model

import "time"

type ThreadStatus string

const (
	ThreadActive   ThreadStatus = "active"
	ThreadArchived ThreadStatus = "archived"
)

// Thread is a conversation with the assistant.
type Thread struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"index;index:idx_thread_user_status,priority:1"`
	Title     string
	Status    ThreadStatus `gorm:"type:varchar(10);index:idx_thread_user_status,priority:2"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn in a thread.
type Message struct {
	ID        uint        `gorm:"primaryKey"`
	ThreadID  uint        `gorm:"index"`
	UserID    uint        `gorm:"index"`
	Role      MessageRole `gorm:"type:varchar(10)"`
	Content   string
	CreatedAt time.Time
}
