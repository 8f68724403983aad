package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"todo-planner/internal/model"
)

// PreferencesRepository manages per-user settings.
type PreferencesRepository struct {
	db *gorm.DB
}

func NewPreferencesRepository(db *gorm.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// GetOrCreate returns the user's preferences, creating the defaults on first
// access.
func (r *PreferencesRepository) GetOrCreate(ctx context.Context, userID uint) (*model.Preferences, error) {
	var prefs model.Preferences
	db := r.db.WithContext(ctx)
	err := db.Where("user_id = ?", userID).First(&prefs).Error
	switch {
	case err == nil:
		return &prefs, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		prefs = model.DefaultPreferences(userID)
		if err := db.Create(&prefs).Error; err != nil {
			return nil, fmt.Errorf("create preferences: %w", err)
		}
		return &prefs, nil
	default:
		return nil, fmt.Errorf("find preferences: %w", err)
	}
}

func (r *PreferencesRepository) Save(ctx context.Context, prefs *model.Preferences) error {
	if err := r.db.WithContext(ctx).Save(prefs).Error; err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// ListDigestSubscribers returns users that opted into the daily digest.
func (r *PreferencesRepository) ListDigestSubscribers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Joins("JOIN preferences ON preferences.user_id = users.id").
		Where("preferences.daily_digest = ?", true).
		Order("users.id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list digest subscribers: %w", err)
	}
	return users, nil
}
