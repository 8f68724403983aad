package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todo-planner/internal/service"
)

func (b *Bot) handleSchedule(ctx context.Context, msg *tgbotapi.Message, args string) error {
	input, err := parseScheduleArgs(args)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if input.Template.Priority == "" {
		prefs, err := b.svc.Preferences.Get(ctx, user)
		if err != nil {
			return err
		}
		input.Template.Priority = prefs.DefaultPriority
	}

	sched, err := b.svc.Schedules.Create(ctx, user, input)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	b.log.Info().Uint("schedule", sched.ID).Uint("user", user.ID).Str("cron", sched.CronExpression).Msg("schedule created")
	return b.sendText(msg.Chat.ID, "♻️ <b>Schedule saved</b>\n"+formatSchedule(*sched, b.loc))
}

func (b *Bot) handleListSchedules(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	schedules, err := b.svc.Schedules.List(ctx, user)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	if len(schedules) == 0 {
		return b.sendText(msg.Chat.ID, "No recurring tasks. Create one with <code>/schedule 0 9 * * * title</code>.")
	}

	var text strings.Builder
	text.WriteString("♻️ <b>Recurring tasks</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, sched := range schedules {
		text.WriteString(formatSchedule(sched, b.loc))
		text.WriteByte('\n')
		label := fmt.Sprintf("⏸ #%d · %s", sched.ID, shortTitle(sched.Template.Title, 24))
		if !sched.Enabled {
			label = fmt.Sprintf("▶️ #%d · %s", sched.ID, shortTitle(sched.Template.Title, 24))
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbPausePrefix, sched.ID)),
		))
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, strings.TrimSpace(text.String()))
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	if len([]rune(out.Text)) > messageLimit {
		return b.sendText(msg.Chat.ID, out.Text)
	}
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleReschedule(ctx context.Context, msg *tgbotapi.Message, args string) error {
	idRaw, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	id, err := parseID(idRaw)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /reschedule 3 30 7 * * *")
	}
	expr, title, err := parseCronPrefix(rest)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	upd := service.ScheduleUpdate{CronExpression: &expr}
	if title = strings.TrimSpace(title); title != "" {
		upd.Title = &title
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	sched, err := b.svc.Schedules.Update(ctx, user, id, upd)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, "♻️ <b>Schedule updated</b>\n"+formatSchedule(*sched, b.loc))
}

func (b *Bot) handleToggleSchedule(ctx context.Context, msg *tgbotapi.Message, args string) error {
	id, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the schedule id: /toggle 3")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	sched, err := b.svc.Schedules.ToggleEnabled(ctx, user, id)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, formatSchedule(*sched, b.loc))
}

func (b *Bot) handleUnschedule(ctx context.Context, msg *tgbotapi.Message, args string) error {
	id, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the schedule id: /unschedule 3")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	sched, err := b.svc.Schedules.Delete(ctx, user, id)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Schedule «%s» removed. Tasks it already created stay.", escape(normalizeTitle(sched.Template.Title))))
}
