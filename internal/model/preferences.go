package model

import "time"

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

// Preferences stores per-user settings.
type Preferences struct {
	ID               uint     `gorm:"primaryKey"`
	UserID           uint     `gorm:"uniqueIndex"`
	Theme            Theme    `gorm:"type:varchar(10)"`
	DefaultPriority  Priority `gorm:"type:varchar(10)"`
	DueDateReminders bool
	DailyDigest      bool `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DefaultPreferences returns the settings a new user starts with.
func DefaultPreferences(userID uint) Preferences {
	return Preferences{
		UserID:           userID,
		Theme:            ThemeSystem,
		DefaultPriority:  PriorityMedium,
		DueDateReminders: true,
		DailyDigest:      false,
	}
}

func (Preferences) TableName() string { return "preferences" }
