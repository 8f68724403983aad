package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"todo-planner/internal/cronexpr"
	"todo-planner/internal/model"
	"todo-planner/internal/repository"
)

func newTestScheduleService(t *testing.T, now time.Time) (*ScheduledTaskService, *repository.ScheduledTaskRepository, *model.User) {
	t.Helper()
	db := newTestDB(t)
	repo := repository.NewScheduledTaskRepository(db)
	svc := NewScheduledTaskService(repo, cronexpr.NewCalculator(cronexpr.ModeCompat), nil, time.UTC)
	svc.now = fixedClock(now)
	return svc, repo, newTestUser(t, db, 1)
}

func TestScheduleCreate_SetsInitialNextRun(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	svc, _, user := newTestScheduleService(t, now)

	sched, err := svc.Create(context.Background(), user, ScheduleInput{
		CronExpression: " 0 9 * * * ",
		Template:       model.TaskTemplate{Title: "standup", Tags: []string{"work"}},
	})
	if err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	if !sched.Enabled {
		t.Fatalf("new schedule is disabled")
	}
	if sched.CronExpression != "0 9 * * *" {
		t.Fatalf("CronExpression = %q", sched.CronExpression)
	}
	if want := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC); !sched.NextRun.Equal(want) {
		t.Fatalf("NextRun = %v, want %v", sched.NextRun, want)
	}
	if sched.Template.Priority != model.PriorityMedium {
		t.Fatalf("template priority = %q, want medium", sched.Template.Priority)
	}
	if got := svc.Describe(*sched); got != "Daily at 09:00" {
		t.Fatalf("Describe() = %q", got)
	}
}

func TestScheduleCreate_Rejects(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	svc, _, user := newTestScheduleService(t, now)
	ctx := context.Background()

	if _, err := svc.Create(ctx, user, ScheduleInput{CronExpression: "bad", Template: model.TaskTemplate{Title: "x"}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad cron err=%v, want %v", err, ErrInvalidInput)
	}
	if _, err := svc.Create(ctx, user, ScheduleInput{CronExpression: "0 9 * * *"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty title err=%v, want %v", err, ErrInvalidInput)
	}
}

func TestScheduleCreate_PerUserLimit(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	svc, _, user := newTestScheduleService(t, now)
	ctx := context.Background()

	input := ScheduleInput{CronExpression: "0 9 * * *", Template: model.TaskTemplate{Title: "again"}}
	for i := 0; i < MaxSchedulesPerUser; i++ {
		if _, err := svc.Create(ctx, user, input); err != nil {
			t.Fatalf("Create() #%d err=%v", i, err)
		}
	}
	if _, err := svc.Create(ctx, user, input); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("Create() over limit err=%v, want %v", err, ErrLimitReached)
	}
}

func TestScheduleUpdate_CronChangeRecomputes(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	svc, _, user := newTestScheduleService(t, now)
	ctx := context.Background()

	sched, _ := svc.Create(ctx, user, ScheduleInput{CronExpression: "0 9 * * *", Template: model.TaskTemplate{Title: "gym"}})

	renamed, err := svc.Update(ctx, user, sched.ID, ScheduleUpdate{Title: ptr("gym session")})
	if err != nil {
		t.Fatalf("Update() err=%v", err)
	}
	if !renamed.NextRun.Equal(sched.NextRun) {
		t.Fatalf("title change moved NextRun to %v", renamed.NextRun)
	}

	moved, err := svc.Update(ctx, user, sched.ID, ScheduleUpdate{CronExpression: ptr("30 7 * * *")})
	if err != nil {
		t.Fatalf("Update() err=%v", err)
	}
	if want := time.Date(2024, 1, 2, 7, 30, 0, 0, time.UTC); !moved.NextRun.Equal(want) {
		t.Fatalf("NextRun = %v, want %v", moved.NextRun, want)
	}
	if moved.Template.Title != "gym session" {
		t.Fatalf("Title = %q", moved.Template.Title)
	}

	if _, err := svc.Update(ctx, user, sched.ID, ScheduleUpdate{CronExpression: ptr("* *")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Update() bad cron err=%v", err)
	}
}

func TestScheduleToggle_RecomputesStaleNextRun(t *testing.T) {
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	svc, repo, user := newTestScheduleService(t, created)
	ctx := context.Background()

	sched, _ := svc.Create(ctx, user, ScheduleInput{CronExpression: "0 9 * * *", Template: model.TaskTemplate{Title: "meds"}})

	off, err := svc.ToggleEnabled(ctx, user, sched.ID)
	if err != nil || off.Enabled {
		t.Fatalf("ToggleEnabled() = %+v, %v; want disabled", off, err)
	}

	// Re-enabled three days later: the missed slot is skipped.
	later := time.Date(2024, 1, 4, 10, 0, 0, 0, time.UTC)
	svc.now = fixedClock(later)
	on, err := svc.ToggleEnabled(ctx, user, sched.ID)
	if err != nil || !on.Enabled {
		t.Fatalf("ToggleEnabled() = %+v, %v; want enabled", on, err)
	}
	want := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	if !on.NextRun.Equal(want) {
		t.Fatalf("NextRun = %v, want %v", on.NextRun, want)
	}
	stored, _ := repo.FindByID(ctx, sched.ID)
	if !stored.Enabled || !stored.NextRun.Equal(want) {
		t.Fatalf("stored = enabled %v next %v", stored.Enabled, stored.NextRun)
	}
}

func TestScheduleOwnershipAndDelete(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	svc, repo, user := newTestScheduleService(t, now)
	ctx := context.Background()
	stranger := &model.User{ID: user.ID + 1}

	sched, _ := svc.Create(ctx, user, ScheduleInput{CronExpression: "0 9 * * *", Template: model.TaskTemplate{Title: "mine"}})

	if _, err := svc.Get(ctx, stranger, sched.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Get() by stranger err=%v", err)
	}
	if _, err := svc.Delete(ctx, stranger, sched.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Delete() by stranger err=%v", err)
	}
	if _, err := svc.Delete(ctx, user, sched.ID); err != nil {
		t.Fatalf("Delete() err=%v", err)
	}
	if _, err := svc.Get(ctx, user, sched.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after delete err=%v", err)
	}
	if n, _ := repo.CountByUser(ctx, user.ID); n != 0 {
		t.Fatalf("CountByUser() = %d", n)
	}
}

func TestSweep_AgainstSQLite(t *testing.T) {
	db := newTestDB(t)
	schedules := repository.NewScheduledTaskRepository(db)
	tasks := repository.NewTaskRepository(db)
	user := newTestUser(t, db, 1)
	ctx := context.Background()

	slot := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	sched := model.ScheduledTask{
		UserID:         user.ID,
		Template:       model.TaskTemplate{Title: "review inbox", Priority: model.PriorityHigh, Tags: []string{"mail"}},
		CronExpression: "0 9 * * *",
		Enabled:        true,
		NextRun:        slot,
	}
	if err := schedules.Create(ctx, &sched); err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	sweep := NewSweepService(schedules, tasks, cronexpr.NextRun, zerolog.Nop(), WithSweepClock(fixedClock(slot.Add(5*time.Minute))))
	res, err := sweep.Run(ctx)
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	if res.Examined != 1 || res.Created != 1 {
		t.Fatalf("Run() = %+v", res)
	}

	// A replay of the same slot, e.g. after a crash before the advance, is absorbed.
	created, err := tasks.CreateFromTemplate(ctx, user.ID, sched.Template, SlotKey(sched))
	if err != nil || created {
		t.Fatalf("replay created=%v err=%v", created, err)
	}

	list, _ := tasks.ListByUser(ctx, user.ID, repository.TaskFilter{})
	if len(list) != 1 {
		t.Fatalf("tasks = %d, want 1", len(list))
	}
	if got := list[0]; got.Title != "review inbox" || got.Priority != model.PriorityHigh || got.Completed {
		t.Fatalf("task = %+v", got)
	}

	stored, _ := schedules.FindByID(ctx, sched.ID)
	if want := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC); !stored.NextRun.Equal(want) {
		t.Fatalf("NextRun = %v, want %v", stored.NextRun, want)
	}
	if stored.LastRun == nil {
		t.Fatalf("LastRun not set")
	}

	// Nothing is due until the next slot.
	res, err = sweep.Run(ctx)
	if err != nil || res.Examined != 0 {
		t.Fatalf("second Run() = %+v, %v", res, err)
	}
}
