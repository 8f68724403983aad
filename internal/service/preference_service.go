package service

import (
	"context"

	"todo-planner/internal/model"
	"todo-planner/internal/ratelimit"
	"todo-planner/internal/repository"
)

// PreferencesUpdate carries a partial update. Nil fields are left untouched.
type PreferencesUpdate struct {
	Theme            *model.Theme
	DefaultPriority  *model.Priority
	DueDateReminders *bool
	DailyDigest      *bool
}

// PreferenceService manages per-user settings.
type PreferenceService struct {
	repo    *repository.PreferencesRepository
	limiter RateLimiter
}

func NewPreferenceService(repo *repository.PreferencesRepository, limiter RateLimiter) *PreferenceService {
	return &PreferenceService{repo: repo, limiter: limiter}
}

// Get returns the user's preferences, creating the defaults on first use.
func (s *PreferenceService) Get(ctx context.Context, user *model.User) (*model.Preferences, error) {
	return s.repo.GetOrCreate(ctx, user.ID)
}

func (s *PreferenceService) Update(ctx context.Context, user *model.User, upd PreferencesUpdate) (*model.Preferences, error) {
	if err := allow(s.limiter, ratelimit.UpdatePreferences, user); err != nil {
		return nil, err
	}
	if upd.Theme != nil && !upd.Theme.Valid() {
		return nil, invalid("theme must be light, dark or system, got %q", *upd.Theme)
	}
	if upd.DefaultPriority != nil {
		if err := validatePriority(*upd.DefaultPriority); err != nil {
			return nil, err
		}
	}

	prefs, err := s.repo.GetOrCreate(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if upd.Theme != nil {
		prefs.Theme = *upd.Theme
	}
	if upd.DefaultPriority != nil {
		prefs.DefaultPriority = *upd.DefaultPriority
	}
	if upd.DueDateReminders != nil {
		prefs.DueDateReminders = *upd.DueDateReminders
	}
	if upd.DailyDigest != nil {
		prefs.DailyDigest = *upd.DailyDigest
	}

	if err := s.repo.Save(ctx, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}
