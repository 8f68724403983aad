package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("not authorized")
	ErrInvalidInput         = errors.New("invalid input")
	ErrLimitReached         = errors.New("limit reached")
	ErrAssistantUnavailable = errors.New("assistant is not configured")
	ErrSweepInProgress      = errors.New("sweep already running")

	// ErrTaskCreation marks a sweep item whose task could not be created.
	// The schedule keeps its next run and is retried on the next sweep.
	ErrTaskCreation = errors.New("task creation failed")
	// ErrScheduleUpdate marks a sweep item whose task was created but whose
	// run times could not be advanced.
	ErrScheduleUpdate = errors.New("schedule update failed")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// lookupErr maps a repository lookup failure to the service vocabulary.
func lookupErr(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return fmt.Errorf("find %s: %w", what, err)
}
