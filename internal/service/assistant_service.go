package service

import (
	"context"
	"fmt"
	"strings"

	"todo-planner/internal/assistant"
	"todo-planner/internal/model"
	"todo-planner/internal/ratelimit"
	"todo-planner/internal/repository"
)

const defaultThreadTitle = "New conversation"

// Completer produces the assistant reply for a prompt. *assistant.Client
// implements it.
type Completer interface {
	Complete(ctx context.Context, p assistant.Prompt) (string, error)
}

// AssistantService keeps conversation threads and talks to the model.
type AssistantService struct {
	threadRepo *repository.ThreadRepository
	taskRepo   *repository.TaskRepository
	completer  Completer
	limiter    RateLimiter
}

// NewAssistantService builds the service. A nil completer leaves threads
// usable but makes SendMessage fail with ErrAssistantUnavailable.
func NewAssistantService(threadRepo *repository.ThreadRepository, taskRepo *repository.TaskRepository, completer Completer, limiter RateLimiter) *AssistantService {
	return &AssistantService{threadRepo: threadRepo, taskRepo: taskRepo, completer: completer, limiter: limiter}
}

func (s *AssistantService) Available() bool {
	return s.completer != nil
}

func (s *AssistantService) CreateThread(ctx context.Context, user *model.User, title string) (*model.Thread, error) {
	if err := allow(s.limiter, ratelimit.CreateThread, user); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultThreadTitle
	}
	if err := validateThreadTitle(title); err != nil {
		return nil, err
	}

	active, err := s.threadRepo.CountActive(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if active >= MaxActiveThreads {
		return nil, fmt.Errorf("%w: at most %d active threads, archive one first", ErrLimitReached, MaxActiveThreads)
	}

	thread := model.Thread{UserID: user.ID, Title: title, Status: model.ThreadActive}
	if err := s.threadRepo.Create(ctx, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (s *AssistantService) ListThreads(ctx context.Context, user *model.User) ([]model.Thread, error) {
	return s.threadRepo.ListByUser(ctx, user.ID)
}

func (s *AssistantService) ListActiveThreads(ctx context.Context, user *model.User) ([]model.Thread, error) {
	return s.threadRepo.ListActiveByUser(ctx, user.ID)
}

// ActiveThread returns the user's most recently used active thread, starting
// a new one when there is none.
func (s *AssistantService) ActiveThread(ctx context.Context, user *model.User) (*model.Thread, error) {
	threads, err := s.threadRepo.ListActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(threads) > 0 {
		return &threads[0], nil
	}
	return s.CreateThread(ctx, user, "")
}

func (s *AssistantService) Messages(ctx context.Context, user *model.User, threadID uint) ([]model.Message, error) {
	if _, err := s.ownedThread(ctx, user, threadID); err != nil {
		return nil, err
	}
	return s.threadRepo.Messages(ctx, threadID)
}

// SendMessage stores the user's message, asks the model with the task list
// as context and stores the reply. The user message is kept even when the
// model call fails.
func (s *AssistantService) SendMessage(ctx context.Context, user *model.User, threadID uint, content string) (*model.Message, error) {
	if s.completer == nil {
		return nil, ErrAssistantUnavailable
	}
	if err := allow(s.limiter, ratelimit.SendMessage, user); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if err := validateMessage(content); err != nil {
		return nil, err
	}
	thread, err := s.ownedThread(ctx, user, threadID)
	if err != nil {
		return nil, err
	}

	history, err := s.threadRepo.Messages(ctx, thread.ID)
	if err != nil {
		return nil, err
	}

	question := model.Message{ThreadID: thread.ID, UserID: user.ID, Role: model.RoleUser, Content: content}
	if err := s.threadRepo.AddMessage(ctx, &question); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByUser(ctx, user.ID, repository.TaskFilter{})
	if err != nil {
		return nil, err
	}

	prompt := assistant.Prompt{System: assistant.Instructions}
	if len(history) > assistantHistoryTurns {
		history = history[len(history)-assistantHistoryTurns:]
	}
	for _, msg := range history {
		prompt.Turns = append(prompt.Turns, assistant.Turn{Role: string(msg.Role), Content: msg.Content})
	}
	prompt.Turns = append(prompt.Turns, assistant.Turn{
		Role:    string(model.RoleUser),
		Content: taskContext(tasks) + "\n\nUser question: " + content,
	})

	text, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("assistant reply: %w", err)
	}

	reply := model.Message{ThreadID: thread.ID, UserID: user.ID, Role: model.RoleAssistant, Content: text}
	if err := s.threadRepo.AddMessage(ctx, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *AssistantService) ArchiveThread(ctx context.Context, user *model.User, threadID uint) (*model.Thread, error) {
	thread, err := s.ownedThread(ctx, user, threadID)
	if err != nil {
		return nil, err
	}
	if err := s.threadRepo.Archive(ctx, thread.ID); err != nil {
		return nil, err
	}
	thread.Status = model.ThreadArchived
	return thread, nil
}

// DeleteThread removes the thread and its messages.
func (s *AssistantService) DeleteThread(ctx context.Context, user *model.User, threadID uint) error {
	thread, err := s.ownedThread(ctx, user, threadID)
	if err != nil {
		return err
	}
	return s.threadRepo.Delete(ctx, thread.ID)
}

func (s *AssistantService) ownedThread(ctx context.Context, user *model.User, id uint) (*model.Thread, error) {
	thread, err := s.threadRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("thread", err)
	}
	if thread.UserID != user.ID {
		return nil, ErrForbidden
	}
	return thread, nil
}

// taskContext summarizes the task list for the model. tasks is newest first.
func taskContext(tasks []model.Task) string {
	var active, completed int
	for _, t := range tasks {
		if t.Completed {
			completed++
		} else {
			active++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User has %d total tasks.\n", len(tasks))
	fmt.Fprintf(&b, "Active tasks: %d\n", active)
	fmt.Fprintf(&b, "Completed tasks: %d\n\n", completed)
	b.WriteString("Recent tasks:")
	for i, t := range tasks {
		if i == DefaultRecentTasks {
			break
		}
		state := "active"
		if t.Completed {
			state = "completed"
		}
		fmt.Fprintf(&b, "\n- %s (%s priority, %s)", t.Title, t.Priority, state)
	}
	return b.String()
}
