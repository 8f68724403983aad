package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todo-planner/internal/model"
)

func (b *Bot) addTask(ctx context.Context, msg *tgbotapi.Message, line string) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	input, err := parseTaskArgs(line, b.now())
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	if input.Priority == "" {
		prefs, err := b.svc.Preferences.Get(ctx, user)
		if err != nil {
			return err
		}
		input.Priority = prefs.DefaultPriority
	}

	task, err := b.svc.Tasks.CreateTask(ctx, user, input)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	b.log.Info().Uint("task", task.ID).Uint("user", user.ID).Msg("task created")
	return b.sendText(msg.Chat.ID, formatTaskSaved(*task, b.loc))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message, filter string) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	var (
		tasks  []model.Task
		header string
	)
	switch f := strings.ToLower(filter); f {
	case "", "open", "active":
		header = "Open tasks"
		tasks, err = b.svc.Tasks.ListByStatus(ctx, user, false)
	case "done", "completed":
		header = "Completed tasks"
		tasks, err = b.svc.Tasks.ListByStatus(ctx, user, true)
	case "all":
		header = "All tasks"
		tasks, err = b.svc.Tasks.ListTasks(ctx, user)
	default:
		priority, perr := parsePriority(f)
		if perr != nil || priority == "" {
			return b.sendText(msg.Chat.ID, "Filter must be open, done, all, low, medium or high.")
		}
		header = fmt.Sprintf("%s priority", normalizeTitle(string(priority)))
		tasks, err = b.svc.Tasks.ListByPriority(ctx, user, priority)
	}
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendTaskList(msg.Chat.ID, header, tasks)
}

func (b *Bot) handleUpcoming(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	tasks, err := b.svc.Tasks.Upcoming(ctx, user)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendTaskList(msg.Chat.ID, "Upcoming", tasks)
}

func (b *Bot) handleOverdue(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	tasks, err := b.svc.Tasks.Overdue(ctx, user)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendTaskList(msg.Chat.ID, "Overdue", tasks)
}

func (b *Bot) handleToggle(ctx context.Context, msg *tgbotapi.Message, args string) error {
	taskID, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the task id: /done 12")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.svc.Tasks.ToggleComplete(ctx, user, taskID)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, toggledText(task))
}

func toggledText(task *model.Task) string {
	if task.Completed {
		return fmt.Sprintf("✅ «%s» is done.", escape(normalizeTitle(task.Title)))
	}
	return fmt.Sprintf("↩️ «%s» is open again.", escape(normalizeTitle(task.Title)))
}

func (b *Bot) handleEdit(ctx context.Context, msg *tgbotapi.Message, args string) error {
	taskID, upd, err := parseTaskUpdate(args, b.now())
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.svc.Tasks.UpdateTask(ctx, user, taskID, upd)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, formatTaskSaved(*task, b.loc))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message, args string) error {
	taskID, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the task id: /delete 12")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.svc.Tasks.GetTask(ctx, user, taskID)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}

	text := fmt.Sprintf("Delete «%s» (#%d)?", escape(normalizeTitle(task.Title)), task.ID)
	return b.sendWithReplyMarkup(msg.Chat.ID, text, confirmDeleteKeyboard(task.ID))
}

func (b *Bot) handleClear(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	n, err := b.svc.Tasks.ClearCompleted(ctx, user)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🧹 Removed %d completed tasks.", n))
}

func (b *Bot) sendTaskList(chatID int64, header string, tasks []model.Task) error {
	if len(tasks) == 0 {
		return b.sendText(chatID, fmt.Sprintf("%s: nothing here. Add a task with /add.", escape(header)))
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		label := fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 24))
		if task.Completed {
			label = fmt.Sprintf("↩️ #%d · %s", task.ID, shortTitle(task.Title, 24))
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbTogglePrefix, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, formatTaskList(header, tasks, b.now()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) <= 50 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	if len([]rune(msg.Text)) > messageLimit {
		return b.sendText(chatID, msg.Text)
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data
	b.log.Debug().Int64("from", cb.From.ID).Str("data", data).Msg("callback received")

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		b.ack(cb, "")
		return err
	}

	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		b.ack(cb, "")
		id, err := parseID(strings.TrimPrefix(data, cbTogglePrefix))
		if err != nil {
			return nil
		}
		task, err := b.svc.Tasks.ToggleComplete(ctx, user, id)
		if err != nil {
			return b.reply(chatID, err)
		}
		return b.sendText(chatID, toggledText(task))
	case strings.HasPrefix(data, cbDeletePrefix):
		b.ack(cb, "")
		id, err := parseID(strings.TrimPrefix(data, cbDeletePrefix))
		if err != nil {
			return nil
		}
		task, err := b.svc.Tasks.GetTask(ctx, user, id)
		if err != nil {
			return b.reply(chatID, err)
		}
		text := fmt.Sprintf("Delete «%s» (#%d)?", escape(normalizeTitle(task.Title)), task.ID)
		return b.sendWithReplyMarkup(chatID, text, confirmDeleteKeyboard(task.ID))
	case strings.HasPrefix(data, cbConfirmPrefix):
		b.ack(cb, "")
		id, err := parseID(strings.TrimPrefix(data, cbConfirmPrefix))
		if err != nil {
			return nil
		}
		task, err := b.svc.Tasks.DeleteTask(ctx, user, id)
		if err != nil {
			return b.reply(chatID, err)
		}
		b.log.Info().Uint("task", task.ID).Uint("user", user.ID).Msg("task deleted")
		return b.sendText(chatID, fmt.Sprintf("🗑 «%s» deleted.", escape(normalizeTitle(task.Title))))
	case strings.HasPrefix(data, cbPausePrefix):
		b.ack(cb, "")
		id, err := parseID(strings.TrimPrefix(data, cbPausePrefix))
		if err != nil {
			return nil
		}
		sched, err := b.svc.Schedules.ToggleEnabled(ctx, user, id)
		if err != nil {
			return b.reply(chatID, err)
		}
		return b.sendText(chatID, formatSchedule(*sched, b.loc))
	case data == cbCancel:
		b.ack(cb, "Cancelled")
		return nil
	default:
		b.ack(cb, "")
		return nil
	}
}

func confirmDeleteKeyboard(taskID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("%s%d", cbConfirmPrefix, taskID)),
			tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", cbCancel),
		),
	)
}
