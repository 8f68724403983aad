package repository

import (
	"context"
	"testing"

	"todo-planner/internal/model"
)

func TestPreferencesGetOrCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewPreferencesRepository(db)
	user := newTestUser(t, db, 1)
	ctx := context.Background()

	prefs, err := repo.GetOrCreate(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if prefs.Theme != model.ThemeSystem || prefs.DefaultPriority != model.PriorityMedium {
		t.Fatalf("defaults = %+v", prefs)
	}
	if !prefs.DueDateReminders || prefs.DailyDigest {
		t.Fatalf("notification defaults = %+v", prefs)
	}

	prefs.DailyDigest = true
	prefs.Theme = model.ThemeDark
	if err := repo.Save(ctx, prefs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := repo.GetOrCreate(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if again.ID != prefs.ID || again.Theme != model.ThemeDark {
		t.Fatalf("second read = %+v", again)
	}
}

func TestPreferencesListDigestSubscribers(t *testing.T) {
	db := newTestDB(t)
	repo := NewPreferencesRepository(db)
	ctx := context.Background()

	subscribed := newTestUser(t, db, 1)
	quiet := newTestUser(t, db, 2)
	newTestUser(t, db, 3) // never opened preferences

	for _, u := range []*model.User{subscribed, quiet} {
		prefs, err := repo.GetOrCreate(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetOrCreate: %v", err)
		}
		prefs.DailyDigest = u.ID == subscribed.ID
		if err := repo.Save(ctx, prefs); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	users, err := repo.ListDigestSubscribers(ctx)
	if err != nil {
		t.Fatalf("ListDigestSubscribers: %v", err)
	}
	if len(users) != 1 || users[0].ID != subscribed.ID {
		t.Fatalf("subscribers = %+v", users)
	}
}
