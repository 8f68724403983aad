package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"todo-planner/internal/cronexpr"
	"todo-planner/internal/model"
	"todo-planner/internal/ratelimit"
	"todo-planner/internal/service"
)

const (
	iconDefault  = "🟢"
	iconDue      = "⏳"
	iconOverdue  = "⚠️"
	iconDone     = "✅"
	iconSchedule = "♻️"
	iconPaused   = "⏸"
)

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-1]) + "…"
}

func priorityMark(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityLow:
		return "⚪"
	default:
		return "🟡"
	}
}

func formatTask(task model.Task, now time.Time) string {
	var b strings.Builder
	icon := iconDefault
	switch {
	case task.Completed:
		icon = iconDone
	case task.DueDate != nil && now.After(*task.DueDate):
		icon = iconOverdue
	case task.DueDate != nil && task.DueDate.Sub(now) <= 48*time.Hour:
		icon = iconDue
	}
	fmt.Fprintf(&b, "%s <b>#%d</b> %s %s\n", icon, task.ID, priorityMark(task.Priority), escape(normalizeTitle(task.Title)))
	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		if !task.Completed && now.After(d) {
			fmt.Fprintf(&b, "   ⏰ Due %s, <b>overdue</b>\n", d.Format("2006-01-02 15:04"))
		} else {
			fmt.Fprintf(&b, "   ⏰ Due %s\n", d.Format("2006-01-02 15:04"))
		}
	}
	if task.Description != "" {
		fmt.Fprintf(&b, "   📝 %s\n", escape(task.Description))
	}
	if len(task.Tags) > 0 {
		tags := make([]string, len(task.Tags))
		for i, tag := range task.Tags {
			tags[i] = "#" + escape(tag)
		}
		fmt.Fprintf(&b, "   🏷 %s\n", strings.Join(tags, " "))
	}
	return b.String()
}

func formatTaskList(header string, tasks []model.Task, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>%s</b> (%d)\n\n", escape(header), len(tasks))
	for _, task := range tasks {
		b.WriteString(formatTask(task, now))
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func formatTaskSaved(task model.Task, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("✅ <b>Task saved</b>\n")
	fmt.Fprintf(&b, "• <b>ID:</b> %d\n", task.ID)
	fmt.Fprintf(&b, "• <b>Title:</b> %s\n", escape(normalizeTitle(task.Title)))
	fmt.Fprintf(&b, "• <b>Priority:</b> %s %s\n", priorityMark(task.Priority), task.Priority)
	if task.DueDate != nil {
		fmt.Fprintf(&b, "• <b>Due:</b> %s\n", task.DueDate.In(loc).Format("2006-01-02 15:04"))
	}
	if len(task.Tags) > 0 {
		fmt.Fprintf(&b, "• <b>Tags:</b> %s\n", escape(strings.Join(task.Tags, ", ")))
	}
	return strings.TrimSpace(b.String())
}

func formatSchedule(sched model.ScheduledTask, loc *time.Location) string {
	var b strings.Builder
	icon := iconSchedule
	if !sched.Enabled {
		icon = iconPaused
	}
	fmt.Fprintf(&b, "%s <b>#%d</b> %s\n", icon, sched.ID, escape(normalizeTitle(sched.Template.Title)))
	fmt.Fprintf(&b, "   🔄 %s <code>%s</code>\n", escape(cronexpr.Describe(sched.CronExpression)), escape(sched.CronExpression))
	if sched.Enabled {
		fmt.Fprintf(&b, "   ⏭ Next: %s\n", sched.NextRun.In(loc).Format("2006-01-02 15:04"))
	} else {
		b.WriteString("   ⏸ Paused\n")
	}
	if sched.LastRun != nil {
		fmt.Fprintf(&b, "   ✅ Last: %s\n", sched.LastRun.In(loc).Format("2006-01-02 15:04"))
	}
	return b.String()
}

func formatDashboard(d *service.Dashboard, now time.Time) string {
	var b strings.Builder
	b.WriteString("📊 <b>Dashboard</b>\n\n")
	fmt.Fprintf(&b, "Tasks: <b>%d</b> (active %d, completed %d, overdue %d)\n",
		d.Tasks.Total, d.Tasks.Active, d.Tasks.Completed, d.Tasks.Overdue)
	fmt.Fprintf(&b, "Priority: 🔴 %d · 🟡 %d · ⚪ %d\n", d.Tasks.High, d.Tasks.Medium, d.Tasks.Low)
	fmt.Fprintf(&b, "Schedules: %d · Threads: %d · Messages: %d\n",
		d.Tables.ScheduledTasks, d.Tables.Threads, d.Tables.Messages)
	if len(d.Recent) > 0 {
		b.WriteString("\n<b>Recently updated</b>\n")
		for _, task := range d.Recent {
			b.WriteString(formatTask(task, now))
		}
	}
	return strings.TrimSpace(b.String())
}

func formatPreferences(p *model.Preferences) string {
	onOff := func(v bool) string {
		if v {
			return "on"
		}
		return "off"
	}
	return fmt.Sprintf("⚙️ <b>Preferences</b>\n"+
		"• Theme: %s\n"+
		"• Default priority: %s\n"+
		"• Due date reminders: %s\n"+
		"• Daily digest: %s\n\n"+
		"Change with /theme, /priority, /reminders or /digest.",
		p.Theme, p.DefaultPriority, onOff(p.DueDateReminders), onOff(p.DailyDigest))
}

func formatThreads(threads []model.Thread) string {
	if len(threads) == 0 {
		return "No conversations yet. Ask something with /ask."
	}
	var b strings.Builder
	b.WriteString("💬 <b>Conversations</b>\n")
	for _, th := range threads {
		status := ""
		if th.Status == model.ThreadArchived {
			status = " (archived)"
		}
		fmt.Fprintf(&b, "• <b>#%d</b> %s%s\n", th.ID, escape(th.Title), status)
	}
	return strings.TrimSpace(b.String())
}

func formatMessages(thread uint, msgs []model.Message) string {
	if len(msgs) == 0 {
		return fmt.Sprintf("Conversation #%d is empty.", thread)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "💬 <b>Conversation #%d</b>\n\n", thread)
	for _, m := range msgs {
		who := "🙂"
		if m.Role == model.RoleAssistant {
			who = "🤖"
		}
		fmt.Fprintf(&b, "%s %s\n\n", who, escape(m.Content))
	}
	return strings.TrimSpace(b.String())
}

// errorText turns a service error into a reply. known is false for
// unexpected errors, whose details are not shown to the user.
func errorText(err error) (text string, known bool) {
	var rl *ratelimit.Error
	switch {
	case errors.As(err, &rl):
		return fmt.Sprintf("⏳ Too many requests. Try again in %s.", rl.RetryAfter.Round(time.Second)), true
	case errors.Is(err, errUsage), errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrLimitReached):
		return "⚠️ " + escape(err.Error()), true
	case errors.Is(err, service.ErrNotFound):
		return "Not found.", true
	case errors.Is(err, service.ErrForbidden):
		return "That item belongs to someone else.", true
	case errors.Is(err, service.ErrAssistantUnavailable):
		return "🤖 The assistant is not configured on this server.", true
	default:
		return "Something went wrong, please try again later.", false
	}
}

// splitMessage breaks text into chunks Telegram accepts. Cuts prefer a
// newline and never land inside an HTML entity or tag.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var out []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		cut = markupSafeCut(runes, cut)
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// markupSafeCut moves cut back to the start of an entity ("&amp;") or tag
// ("<b>") that runes[:cut] leaves open. A construct that starts the chunk
// cannot be moved before, so cut is kept.
func markupSafeCut(runes []rune, cut int) int {
	safe := cut
	if i := openMarkup(runes[:cut], '&', ';'); i > 0 && i < safe {
		safe = i
	}
	if i := openMarkup(runes[:cut], '<', '>'); i > 0 && i < safe {
		safe = i
	}
	return safe
}

// openMarkup returns the index of the last open rune in chunk that has no
// matching close after it, or -1.
func openMarkup(chunk []rune, open, close rune) int {
	for i := len(chunk) - 1; i >= 0; i-- {
		switch chunk[i] {
		case close:
			return -1
		case open:
			return i
		}
	}
	return -1
}
