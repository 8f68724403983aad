package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"todo-planner/internal/cronexpr"
	"todo-planner/internal/model"
	"todo-planner/internal/repository"
)

// Notifier delivers a rendered message to a user.
type Notifier interface {
	Notify(ctx context.Context, user model.User, text string) error
}

// DigestResult reports one daily digest run.
type DigestResult struct {
	Recipients int
	Sent       int
	Failed     int
}

const digestListLimit = 10

// DigestService builds and sends the daily task summary.
type DigestService struct {
	taskRepo     *repository.TaskRepository
	scheduleRepo *repository.ScheduledTaskRepository
	prefsRepo    *repository.PreferencesRepository
	notifier     Notifier
	log          zerolog.Logger
	loc          *time.Location
	now          func() time.Time
}

func NewDigestService(
	taskRepo *repository.TaskRepository,
	scheduleRepo *repository.ScheduledTaskRepository,
	prefsRepo *repository.PreferencesRepository,
	loc *time.Location,
	log zerolog.Logger,
) *DigestService {
	if loc == nil {
		loc = time.Local
	}
	return &DigestService{
		taskRepo:     taskRepo,
		scheduleRepo: scheduleRepo,
		prefsRepo:    prefsRepo,
		log:          log,
		loc:          loc,
		now:          time.Now,
	}
}

// SetNotifier attaches the delivery channel. Without one, Send only logs.
func (s *DigestService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Send delivers the digest to every subscribed user. One user's failure does
// not stop delivery to the others.
func (s *DigestService) Send(ctx context.Context) (DigestResult, error) {
	var res DigestResult
	if s.notifier == nil {
		s.log.Info().Msg("daily digest ran without a notifier, nothing sent")
		return res, nil
	}

	users, err := s.prefsRepo.ListDigestSubscribers(ctx)
	if err != nil {
		return res, err
	}
	res.Recipients = len(users)

	now := s.now().In(s.loc)
	for _, user := range users {
		text, err := s.DailySummary(ctx, user, now)
		if err == nil {
			err = s.notifier.Notify(ctx, user, text)
		}
		if err != nil {
			res.Failed++
			s.log.Error().Err(err).Uint("user", user.ID).Msg("daily digest not delivered")
			continue
		}
		res.Sent++
	}

	s.log.Info().
		Int("recipients", res.Recipients).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Msg("daily digest finished")
	return res, nil
}

// DailySummary renders the user's open tasks, overdue tasks and upcoming
// scheduled runs as Telegram HTML.
func (s *DigestService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	open := false
	pending, err := s.taskRepo.ListByUser(ctx, user.ID, repository.TaskFilter{Completed: &open})
	if err != nil {
		return "", err
	}
	overdue, err := s.taskRepo.ListOverdue(ctx, user.ID, now)
	if err != nil {
		return "", err
	}
	schedules, err := s.scheduleRepo.ListEnabledByUser(ctx, user.ID)
	if err != nil {
		return "", err
	}

	sortByDue(pending)

	var b strings.Builder
	b.WriteString("📋 <b>Daily digest</b>\n")
	fmt.Fprintf(&b, "🗓 %s\n\n", now.Format("Mon, 02 Jan 2006"))

	fmt.Fprintf(&b, "🔥 <b>Open tasks</b> (%d)\n", len(pending))
	if len(pending) == 0 {
		b.WriteString("— nothing open\n")
	}
	for i, task := range pending {
		if i == digestListLimit {
			fmt.Fprintf(&b, "… and %d more\n", len(pending)-digestListLimit)
			break
		}
		b.WriteString(digestTaskLine(task, s.loc))
	}

	if len(overdue) > 0 {
		fmt.Fprintf(&b, "\n⏰ <b>Overdue</b> (%d)\n", len(overdue))
		for i, task := range overdue {
			if i == digestListLimit {
				fmt.Fprintf(&b, "… and %d more\n", len(overdue)-digestListLimit)
				break
			}
			b.WriteString(digestTaskLine(task, s.loc))
		}
	}

	b.WriteString("\n♻️ <b>Scheduled</b>\n")
	if len(schedules) == 0 {
		b.WriteString("— no active schedules\n")
	}
	for _, sched := range schedules {
		fmt.Fprintf(&b, "• %s: %s, next %s\n",
			html.EscapeString(sched.Template.Title),
			html.EscapeString(cronexpr.Describe(sched.CronExpression)),
			sched.NextRun.In(s.loc).Format("02.01 15:04"))
	}

	return strings.TrimSpace(b.String()), nil
}

func digestTaskLine(task model.Task, loc *time.Location) string {
	line := fmt.Sprintf("• #%d %s", task.ID, html.EscapeString(task.Title))
	if task.Priority == model.PriorityHigh {
		line += " ❗"
	}
	if task.DueDate != nil {
		line += fmt.Sprintf(" (due %s)", task.DueDate.In(loc).Format("02.01 15:04"))
	}
	return line + "\n"
}

// sortByDue orders tasks with a due date first, soonest first, then the rest
// newest first.
func sortByDue(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		switch {
		case tasks[i].DueDate == nil && tasks[j].DueDate == nil:
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		case tasks[i].DueDate == nil:
			return false
		case tasks[j].DueDate == nil:
			return true
		default:
			return tasks[i].DueDate.Before(*tasks[j].DueDate)
		}
	})
}
