package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"gorm.io/gorm"

	"todo-planner/internal/model"
)

func TestTaskRepositoryCRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	user := newTestUser(t, db, 1)
	ctx := context.Background()

	task := &model.Task{UserID: user.ID, Title: "write report", Priority: model.PriorityHigh, Tags: []string{"work", "q1"}}
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !reflect.DeepEqual(got.Tags, []string{"work", "q1"}) {
		t.Fatalf("Tags = %v", got.Tags)
	}
	if got.Completed || got.CompletedAt != nil {
		t.Fatalf("new task must be open: %+v", got)
	}

	done := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.MarkCompleted(ctx, got, done); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	got, _ = repo.FindByID(ctx, task.ID)
	if !got.Completed || got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Fatalf("after complete: %+v", got)
	}

	if err := repo.MarkOpen(ctx, got); err != nil {
		t.Fatalf("MarkOpen: %v", err)
	}
	got, _ = repo.FindByID(ctx, task.ID)
	if got.Completed || got.CompletedAt != nil {
		t.Fatalf("after reopen: %+v", got)
	}

	if err := repo.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, task.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("FindByID after delete err = %v", err)
	}
}

func TestTaskRepositoryListings(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	user := newTestUser(t, db, 1)
	other := newTestUser(t, db, 2)
	ctx := context.Background()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	past := now.Add(-48 * time.Hour)
	soon := now.Add(24 * time.Hour)
	later := now.Add(72 * time.Hour)

	tasks := []*model.Task{
		{UserID: user.ID, Title: "overdue", Priority: model.PriorityHigh, DueDate: &past},
		{UserID: user.ID, Title: "later", Priority: model.PriorityLow, DueDate: &later},
		{UserID: user.ID, Title: "soon", Priority: model.PriorityHigh, DueDate: &soon},
		{UserID: user.ID, Title: "no due", Priority: model.PriorityMedium},
		{UserID: user.ID, Title: "done", Priority: model.PriorityHigh, Completed: true, DueDate: &past},
		{UserID: other.ID, Title: "foreign", Priority: model.PriorityHigh, DueDate: &past},
	}
	for _, task := range tasks {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("Create %q: %v", task.Title, err)
		}
	}

	all, err := repo.ListByUser(ctx, user.ID, TaskFilter{})
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("ListByUser len = %d, want 5", len(all))
	}
	if all[0].Title != "done" {
		t.Fatalf("ListByUser newest first: got %q first", all[0].Title)
	}

	completed := true
	high := model.PriorityHigh
	doneHigh, err := repo.ListByUser(ctx, user.ID, TaskFilter{Completed: &completed, Priority: &high})
	if err != nil {
		t.Fatalf("ListByUser filtered: %v", err)
	}
	if len(doneHigh) != 1 || doneHigh[0].Title != "done" {
		t.Fatalf("filtered = %+v", doneHigh)
	}

	upcoming, err := repo.ListUpcoming(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListUpcoming: %v", err)
	}
	if titles(upcoming) != "overdue,soon,later" {
		t.Fatalf("upcoming = %s", titles(upcoming))
	}

	overdue, err := repo.ListOverdue(ctx, user.ID, now)
	if err != nil {
		t.Fatalf("ListOverdue: %v", err)
	}
	if titles(overdue) != "overdue" {
		t.Fatalf("overdue = %s", titles(overdue))
	}

	n, err := repo.DeleteCompleted(ctx, user.ID)
	if err != nil {
		t.Fatalf("DeleteCompleted: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteCompleted = %d, want 1", n)
	}
}

func TestTaskRepositoryCreateFromTemplateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	user := newTestUser(t, db, 1)
	ctx := context.Background()

	tmpl := model.TaskTemplate{Title: "water plants", Priority: model.PriorityLow, Tags: []string{"home"}}

	created, err := repo.CreateFromTemplate(ctx, user.ID, tmpl, "schedule:1:100")
	if err != nil || !created {
		t.Fatalf("first create = %v, %v", created, err)
	}
	created, err = repo.CreateFromTemplate(ctx, user.ID, tmpl, "schedule:1:100")
	if err != nil {
		t.Fatalf("replay err: %v", err)
	}
	if created {
		t.Fatal("replay of the same slot must not create a task")
	}
	created, err = repo.CreateFromTemplate(ctx, user.ID, tmpl, "schedule:1:200")
	if err != nil || !created {
		t.Fatalf("next slot = %v, %v", created, err)
	}
	created, err = repo.CreateFromTemplate(ctx, user.ID, tmpl, "")
	if err != nil || !created {
		t.Fatalf("keyless = %v, %v", created, err)
	}

	list, err := repo.ListByUser(ctx, user.ID, TaskFilter{})
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("tasks = %d, want 3", len(list))
	}
	for _, task := range list {
		if task.Completed || task.Title != "water plants" || !reflect.DeepEqual(task.Tags, []string{"home"}) {
			t.Fatalf("task not stamped from template: %+v", task)
		}
	}
}

func titles(tasks []model.Task) string {
	out := ""
	for i, task := range tasks {
		if i > 0 {
			out += ","
		}
		out += task.Title
	}
	return out
}
