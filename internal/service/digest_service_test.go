package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"todo-planner/internal/model"
	"todo-planner/internal/repository"
)

type fakeNotifier struct {
	notifyFn func(context.Context, model.User, string) error
}

func (n *fakeNotifier) Notify(ctx context.Context, user model.User, text string) error {
	return n.notifyFn(ctx, user, text)
}

func TestDigest_WithoutNotifier(t *testing.T) {
	db := newTestDB(t)
	svc := NewDigestService(repository.NewTaskRepository(db), repository.NewScheduledTaskRepository(db), repository.NewPreferencesRepository(db), time.UTC, zerolog.Nop())

	res, err := svc.Send(context.Background())
	if err != nil {
		t.Fatalf("Send() err=%v", err)
	}
	if res != (DigestResult{}) {
		t.Fatalf("Send() = %+v, want zero result", res)
	}
}

func TestDigest_SendsToSubscribers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tasks := repository.NewTaskRepository(db)
	schedules := repository.NewScheduledTaskRepository(db)
	prefs := repository.NewPreferencesRepository(db)
	svc := NewDigestService(tasks, schedules, prefs, time.UTC, zerolog.Nop())
	now := time.Date(2024, 2, 5, 8, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	subscriber := newTestUser(t, db, 1)
	quiet := newTestUser(t, db, 2)
	broken := newTestUser(t, db, 3)
	for _, u := range []*model.User{subscriber, broken} {
		p, _ := prefs.GetOrCreate(ctx, u.ID)
		p.DailyDigest = true
		if err := prefs.Save(ctx, p); err != nil {
			t.Fatalf("save prefs: %v", err)
		}
	}
	_, _ = prefs.GetOrCreate(ctx, quiet.ID)

	yesterday := now.Add(-24 * time.Hour)
	_ = tasks.Create(ctx, &model.Task{UserID: subscriber.ID, Title: "file <taxes>", Priority: model.PriorityHigh, DueDate: &yesterday})
	_ = tasks.Create(ctx, &model.Task{UserID: subscriber.ID, Title: "call mom", Priority: model.PriorityMedium})
	_ = schedules.Create(ctx, &model.ScheduledTask{
		UserID: subscriber.ID, Template: model.TaskTemplate{Title: "standup"},
		CronExpression: "0 9 * * *", Enabled: true, NextRun: now.Add(time.Hour),
	})

	sent := map[uint]string{}
	svc.SetNotifier(&fakeNotifier{notifyFn: func(_ context.Context, u model.User, text string) error {
		if u.ID == broken.ID {
			return errors.New("chat not found")
		}
		sent[u.ID] = text
		return nil
	}})

	res, err := svc.Send(ctx)
	if err != nil {
		t.Fatalf("Send() err=%v", err)
	}
	if want := (DigestResult{Recipients: 2, Sent: 1, Failed: 1}); res != want {
		t.Fatalf("Send() = %+v, want %+v", res, want)
	}
	text, ok := sent[subscriber.ID]
	if !ok {
		t.Fatalf("subscriber got no digest")
	}
	if _, ok := sent[quiet.ID]; ok {
		t.Fatalf("unsubscribed user got a digest")
	}
	for _, want := range []string{"Open tasks</b> (2)", "Overdue</b> (1)", "file &lt;taxes&gt;", "standup: Daily at 09:00"} {
		if !strings.Contains(text, want) {
			t.Fatalf("digest missing %q:\n%s", want, text)
		}
	}
}
