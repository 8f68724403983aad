package service

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"todo-planner/internal/model"
)

const (
	MaxTitleLength        = 200
	MaxDescriptionLength  = 2000
	MaxTags               = 10
	MaxTagLength          = 30
	MaxThreadTitleLength  = 200
	MaxMessageLength      = 10000
	MaxActiveThreads      = 20
	MaxSchedulesPerUser   = 50
	DefaultRecentTasks    = 5
	assistantHistoryTurns = 20
)

func validateTitle(title string) error {
	if n := utf8.RuneCountInString(title); n == 0 || n > MaxTitleLength {
		return invalid("task title must be between 1 and %d characters", MaxTitleLength)
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return invalid("task description must be at most %d characters", MaxDescriptionLength)
	}
	return nil
}

func validatePriority(p model.Priority) error {
	if !p.Valid() {
		return invalid("priority must be low, medium or high, got %q", p)
	}
	return nil
}

func validateTags(tags []string) error {
	if len(tags) > MaxTags {
		return invalid("at most %d tags are allowed", MaxTags)
	}
	for _, tag := range tags {
		if n := utf8.RuneCountInString(tag); n == 0 || n > MaxTagLength {
			return invalid("tags must be between 1 and %d characters", MaxTagLength)
		}
	}
	return nil
}

func validateTemplate(tmpl model.TaskTemplate) error {
	if err := validateTitle(tmpl.Title); err != nil {
		return err
	}
	if err := validateDescription(tmpl.Description); err != nil {
		return err
	}
	if err := validatePriority(tmpl.Priority); err != nil {
		return err
	}
	return validateTags(tmpl.Tags)
}

func validateThreadTitle(title string) error {
	if n := utf8.RuneCountInString(title); n == 0 || n > MaxThreadTitleLength {
		return invalid("thread title must be between 1 and %d characters", MaxThreadTitleLength)
	}
	return nil
}

func validateMessage(content string) error {
	if n := utf8.RuneCountInString(content); n == 0 || n > MaxMessageLength {
		return invalid("message must be between 1 and %d characters", MaxMessageLength)
	}
	return nil
}

// normalizeTags trims, drops empties and de-duplicates case-insensitively.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func defaultPriority(p model.Priority) model.Priority {
	if p == "" {
		return model.PriorityMedium
	}
	return p
}

func userKey(user *model.User) string {
	return strconv.FormatUint(uint64(user.ID), 10)
}
