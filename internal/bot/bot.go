package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"todo-planner/internal/model"
	"todo-planner/internal/repository"
	"todo-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTaskLine
	stageQuestion
)

const (
	cbTogglePrefix  = "toggle:"
	cbDeletePrefix  = "delete:"
	cbConfirmPrefix = "confirm:"
	cbCancel        = "cancel"
	cbPausePrefix   = "pause:"
)

const (
	menuLabelNewTask   = "➕ New task"
	menuLabelTasks     = "📋 Tasks"
	menuLabelSchedules = "♻️ Schedules"
	menuLabelAsk       = "🤖 Ask"
	menuLabelDashboard = "📊 Dashboard"
	menuLabelHelp      = "ℹ️ Help"
	btnCancelDialog    = "⏪ Cancel"

	messageLimit = 4000
)

// Services are the operations the bot exposes.
type Services struct {
	Users       *repository.UserRepository
	Tasks       *service.TaskService
	Schedules   *service.ScheduledTaskService
	Assistant   *service.AssistantService
	Preferences *service.PreferenceService
	Dashboard   *service.DashboardService
	Digest      *service.DigestService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	svc           Services
	loc           *time.Location
	log           zerolog.Logger
	conversations map[int64]conversationStage
	asking        map[int64]bool
	mu            sync.Mutex
	background    sync.WaitGroup
}

func New(token string, svc Services, loc *time.Location, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}

	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	return &Bot{
		api:           api,
		svc:           svc,
		loc:           loc,
		log:           log,
		conversations: make(map[int64]conversationStage),
		asking:        make(map[int64]bool),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error().Err(err).Int64("chat", update.Message.Chat.ID).Msg("handle message")
			}
		}
	}

	b.background.Wait()
	return nil
}

// runBackground runs job off the update loop. A user has at most one job in
// flight; false means the previous one has not finished yet.
func (b *Bot) runBackground(userID int64, job func()) bool {
	b.mu.Lock()
	if b.asking == nil {
		b.asking = make(map[int64]bool)
	}
	if b.asking[userID] {
		b.mu.Unlock()
		return false
	}
	b.asking[userID] = true
	b.mu.Unlock()

	b.background.Add(1)
	go func() {
		defer b.background.Done()
		defer func() {
			b.mu.Lock()
			delete(b.asking, userID)
			b.mu.Unlock()
		}()
		job()
	}()
	return true
}

// Notify sends text to the user's private chat.
func (b *Bot) Notify(_ context.Context, user model.User, text string) error {
	return b.sendText(user.TelegramID, text)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		b.clearConversation(msg.From.ID)
		b.log.Info().Int64("from", msg.From.ID).Str("command", msg.Command()).Msg("command received")
		return b.handleCommand(ctx, msg)
	}

	text := strings.TrimSpace(msg.Text)
	if text == btnCancelDialog {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
	}
	if handled, err := b.handleMenuAlias(ctx, msg, text); handled {
		return err
	}

	switch b.getConversation(msg.From.ID) {
	case stageTaskLine:
		b.clearConversation(msg.From.ID)
		return b.addTask(ctx, msg, text)
	case stageQuestion:
		b.clearConversation(msg.From.ID)
		return b.ask(ctx, msg, text)
	}

	if b.svc.Assistant != nil && b.svc.Assistant.Available() && text != "" {
		return b.ask(ctx, msg, text)
	}
	return b.sendText(msg.Chat.ID, "I did not get that. Use /add to create a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "add", "newtask":
		if args == "" {
			b.setConversation(msg.From.ID, stageTaskLine)
			return b.sendWithReplyMarkup(msg.Chat.ID,
				"🆕 Send the task as <code>title | priority | tags | due</code>.\nOnly the title is required.", cancelKeyboard())
		}
		return b.addTask(ctx, msg, args)
	case "tasks":
		return b.handleListTasks(ctx, msg, args)
	case "upcoming":
		return b.handleUpcoming(ctx, msg)
	case "overdue":
		return b.handleOverdue(ctx, msg)
	case "done", "complete":
		return b.handleToggle(ctx, msg, args)
	case "edit":
		return b.handleEdit(ctx, msg, args)
	case "delete":
		return b.handleDelete(ctx, msg, args)
	case "clear":
		return b.handleClear(ctx, msg)
	case "schedule":
		return b.handleSchedule(ctx, msg, args)
	case "schedules":
		return b.handleListSchedules(ctx, msg)
	case "reschedule":
		return b.handleReschedule(ctx, msg, args)
	case "toggle":
		return b.handleToggleSchedule(ctx, msg, args)
	case "unschedule":
		return b.handleUnschedule(ctx, msg, args)
	case "ask":
		if args == "" {
			b.setConversation(msg.From.ID, stageQuestion)
			return b.sendWithReplyMarkup(msg.Chat.ID, "🤖 What would you like to ask?", cancelKeyboard())
		}
		return b.ask(ctx, msg, args)
	case "newthread":
		return b.handleNewThread(ctx, msg, args)
	case "threads":
		return b.handleThreads(ctx, msg)
	case "thread":
		return b.handleThread(ctx, msg, args)
	case "archive":
		return b.handleArchive(ctx, msg, args)
	case "forget":
		return b.handleForget(ctx, msg, args)
	case "dashboard":
		return b.handleDashboard(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "prefs":
		return b.handlePrefs(ctx, msg)
	case "theme", "priority", "digest", "reminders":
		return b.handleSetPreference(ctx, msg, msg.Command(), args)
	case "cancel":
		return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if _, err := b.svc.Preferences.Get(ctx, user); err != nil {
		return err
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your to-do list, recurring tasks and a daily digest.</b>\n\n%s",
		escape(user.DisplayName()), helpText)
	return b.sendText(msg.Chat.ID, text)
}

const helpText = "<b>Tasks</b>\n" +
	"• /add title | priority | tags | due\n" +
	"• /tasks [open|done|all|low|medium|high]\n" +
	"• /upcoming, /overdue\n" +
	"• /done &lt;id&gt; toggles completion\n" +
	"• /edit &lt;id&gt; title | priority | tags | due\n" +
	"• /delete &lt;id&gt;, /clear removes completed\n" +
	"<b>Recurring</b>\n" +
	"• /schedule 0 9 * * * title | priority | tags\n" +
	"• /schedules, /toggle &lt;id&gt;, /unschedule &lt;id&gt;\n" +
	"• /reschedule &lt;id&gt; 30 7 * * *\n" +
	"<b>Assistant</b>\n" +
	"• /ask question, /newthread [title]\n" +
	"• /threads, /thread &lt;id&gt;, /archive &lt;id&gt;, /forget &lt;id&gt;\n" +
	"<b>Other</b>\n" +
	"• /dashboard, /report\n" +
	"• /prefs, /theme, /priority, /digest on|off, /reminders on|off"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ "+helpText)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message, text string) (bool, error) {
	switch text {
	case menuLabelNewTask:
		b.setConversation(msg.From.ID, stageTaskLine)
		return true, b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Send the task as <code>title | priority | tags | due</code>.", cancelKeyboard())
	case menuLabelTasks:
		return true, b.handleListTasks(ctx, msg, "")
	case menuLabelSchedules:
		return true, b.handleListSchedules(ctx, msg)
	case menuLabelAsk:
		b.setConversation(msg.From.ID, stageQuestion)
		return true, b.sendWithReplyMarkup(msg.Chat.ID, "🤖 What would you like to ask?", cancelKeyboard())
	case menuLabelDashboard:
		return true, b.handleDashboard(ctx, msg)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.svc.Users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

// reply reports err to the chat when it is a user-facing failure. Other
// errors are logged and answered with a generic message.
func (b *Bot) reply(chatID int64, err error) error {
	text, known := errorText(err)
	if !known {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("request failed")
	}
	return b.sendText(chatID, text)
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard())
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	chunks := splitMessage(text, messageLimit)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if i == len(chunks)-1 {
			msg.ReplyMarkup = markup
		}
		if _, err := b.api.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}
}

func (b *Bot) setConversation(userID int64, stage conversationStage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = stage
}

func (b *Bot) getConversation(userID int64) conversationStage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func (b *Bot) now() time.Time {
	return time.Now().In(b.loc)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelSchedules),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelAsk),
			tgbotapi.NewKeyboardButton(menuLabelDashboard),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}
