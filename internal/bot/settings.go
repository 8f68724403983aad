package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todo-planner/internal/model"
	"todo-planner/internal/service"
)

func (b *Bot) handleDashboard(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	dash, err := b.svc.Dashboard.Summary(ctx, user)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, formatDashboard(dash, b.now()))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.svc.Digest.DailySummary(ctx, *user, b.now())
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handlePrefs(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	prefs, err := b.svc.Preferences.Get(ctx, user)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, formatPreferences(prefs))
}

func (b *Bot) handleSetPreference(ctx context.Context, msg *tgbotapi.Message, key, value string) error {
	upd, err := preferenceUpdate(key, value)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	prefs, err := b.svc.Preferences.Update(ctx, user, upd)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, formatPreferences(prefs))
}

func preferenceUpdate(key, value string) (service.PreferencesUpdate, error) {
	var upd service.PreferencesUpdate
	switch key {
	case "theme":
		theme := model.Theme(strings.ToLower(strings.TrimSpace(value)))
		upd.Theme = &theme
	case "priority":
		p, err := parsePriority(value)
		if err != nil {
			return upd, err
		}
		if p == "" {
			p = model.PriorityMedium
		}
		upd.DefaultPriority = &p
	case "digest":
		on, err := parseSwitch(value)
		if err != nil {
			return upd, err
		}
		upd.DailyDigest = &on
	case "reminders":
		on, err := parseSwitch(value)
		if err != nil {
			return upd, err
		}
		upd.DueDateReminders = &on
	}
	return upd, nil
}
