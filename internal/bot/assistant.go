package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) ask(ctx context.Context, msg *tgbotapi.Message, question string) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if !b.svc.Assistant.Available() {
		return b.sendText(msg.Chat.ID, "🤖 The assistant is not configured on this server.")
	}
	thread, err := b.svc.Assistant.ActiveThread(ctx, user)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}

	chatID := msg.Chat.ID
	started := b.runBackground(msg.From.ID, func() {
		if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
			b.log.Debug().Err(err).Msg("chat action")
		}
		answer, err := b.svc.Assistant.SendMessage(ctx, user, thread.ID, question)
		if err != nil {
			err = b.reply(chatID, err)
		} else {
			err = b.sendText(chatID, "🤖 "+escape(answer.Content))
		}
		if err != nil {
			b.log.Error().Err(err).Int64("chat", chatID).Msg("send assistant reply")
		}
	})
	if !started {
		return b.sendText(chatID, "🤖 Still working on your previous question, please wait.")
	}
	return nil
}

func (b *Bot) handleNewThread(ctx context.Context, msg *tgbotapi.Message, title string) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	thread, err := b.svc.Assistant.CreateThread(ctx, user, title)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("💬 Started conversation #%d «%s». Questions now go here.", thread.ID, escape(thread.Title)))
}

func (b *Bot) handleThreads(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	threads, err := b.svc.Assistant.ListThreads(ctx, user)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, formatThreads(threads))
}

func (b *Bot) handleThread(ctx context.Context, msg *tgbotapi.Message, args string) error {
	id, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the conversation id: /thread 2")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	msgs, err := b.svc.Assistant.Messages(ctx, user, id)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, formatMessages(id, msgs))
}

func (b *Bot) handleArchive(ctx context.Context, msg *tgbotapi.Message, args string) error {
	id, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the conversation id: /archive 2")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	thread, err := b.svc.Assistant.ArchiveThread(ctx, user, id)
	if err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📦 Conversation #%d archived.", thread.ID))
}

func (b *Bot) handleForget(ctx context.Context, msg *tgbotapi.Message, args string) error {
	id, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the conversation id: /forget 2")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := b.svc.Assistant.DeleteThread(ctx, user, id); err != nil {
		return b.reply(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Conversation #%d deleted.", id))
}
