package service

import (
	"context"
	"time"

	"todo-planner/internal/model"
	"todo-planner/internal/repository"
)

// Dashboard is the counter view shown to a user.
type Dashboard struct {
	Tables repository.TableCounts
	Tasks  repository.TaskCounts
	Recent []model.Task
}

// DashboardService aggregates counters for the dashboard.
type DashboardService struct {
	repo *repository.DashboardRepository
	now  func() time.Time
}

func NewDashboardService(repo *repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo, now: time.Now}
}

// Summary returns the counters scoped to the user.
func (s *DashboardService) Summary(ctx context.Context, user *model.User) (*Dashboard, error) {
	tables, err := s.repo.TableCounts(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.repo.TaskCounts(ctx, user.ID, s.now())
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentTasks(ctx, user.ID, DefaultRecentTasks)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Tables: tables, Tasks: tasks, Recent: recent}, nil
}

// Recent returns the user's most recently updated tasks.
func (s *DashboardService) Recent(ctx context.Context, user *model.User, limit int) ([]model.Task, error) {
	if limit <= 0 {
		limit = DefaultRecentTasks
	}
	return s.repo.RecentTasks(ctx, user.ID, limit)
}

// Totals returns the counters across all users.
func (s *DashboardService) Totals(ctx context.Context) (repository.TableCounts, error) {
	return s.repo.TableCounts(ctx, 0)
}
