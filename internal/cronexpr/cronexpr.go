// Package cronexpr computes when a scheduled task fires next.
//
// The default (compat) mode understands exactly one pattern, a fixed daily
// time such as "0 9 * * *". Every other five-field expression, and a daily
// shape whose hour or minute has no leading number, advances by one calendar
// day. Stored schedules depend on that behaviour, so it is kept as
// is; ModeStandard switches to a full five-field evaluator.
package cronexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidExpression is returned for strings that are not five fields.
var ErrInvalidExpression = errors.New("invalid cron expression")

const wildcard = "*"

// Mode selects the evaluation strategy of a Calculator.
type Mode int

const (
	ModeCompat Mode = iota
	ModeStandard
)

// ParseMode maps a configuration value to a Mode.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "compat":
		return ModeCompat, nil
	case "standard":
		return ModeStandard, nil
	default:
		return ModeCompat, fmt.Errorf("unknown cron mode %q", raw)
	}
}

func (m Mode) String() string {
	if m == ModeStandard {
		return "standard"
	}
	return "compat"
}

type fields struct {
	minute, hour, dayOfMonth, month, dayOfWeek string
}

func split(expr string) (fields, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return fields{}, fmt.Errorf("%w: %q has %d fields, want 5", ErrInvalidExpression, expr, len(parts))
	}
	return fields{parts[0], parts[1], parts[2], parts[3], parts[4]}, nil
}

// isDaily reports whether f has the fixed daily time shape: concrete minute
// and hour, wildcard day, month and weekday.
func (f fields) isDaily() bool {
	return f.minute != wildcard && f.hour != wildcard &&
		f.dayOfMonth == wildcard && f.month == wildcard && f.dayOfWeek == wildcard
}

// dailyTime returns the hour and minute of a daily expression, read from the
// leading integer of each field ("9-17" is 9, "0,30" is 0). Values are not
// range checked; time.Date rolls them over. ok is false when either field has
// no leading integer at all, such as "*/4".
func (f fields) dailyTime() (hour, minute int, ok bool) {
	if !f.isDaily() {
		return 0, 0, false
	}
	h, hok := leadingInt(f.hour)
	m, mok := leadingInt(f.minute)
	if !hok || !mok {
		return 0, 0, false
	}
	return h, m, true
}

// leadingInt parses an optional sign followed by the longest run of digits.
func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the five-field shape only.
func Validate(expr string) error {
	_, err := split(expr)
	return err
}

// NextRun returns the next fire time after from using the compat rules.
func NextRun(expr string, from time.Time) (time.Time, error) {
	f, err := split(expr)
	if err != nil {
		return time.Time{}, err
	}

	hour, minute, ok := f.dailyTime()
	if !ok {
		return from.AddDate(0, 0, 1), nil
	}

	year, month, day := from.Date()
	candidate := time.Date(year, month, day, hour, minute, 0, 0, from.Location())
	if !candidate.After(from) {
		candidate = time.Date(year, month, day+1, hour, minute, 0, 0, from.Location())
	}
	return candidate, nil
}

// Calculator computes next runs in the configured Mode.
type Calculator struct {
	mode Mode
}

func NewCalculator(mode Mode) Calculator {
	return Calculator{mode: mode}
}

func (c Calculator) Mode() Mode { return c.mode }

// Next returns the next fire time strictly after from.
func (c Calculator) Next(expr string, from time.Time) (time.Time, error) {
	if c.mode != ModeStandard {
		return NextRun(expr, from)
	}
	if err := Validate(expr); err != nil {
		return time.Time{}, err
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	next := sched.Next(from)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q never fires", ErrInvalidExpression, expr)
	}
	return next, nil
}

// Validate checks expr against the rules of the calculator's mode.
func (c Calculator) Validate(expr string) error {
	if err := Validate(expr); err != nil {
		return err
	}
	if c.mode == ModeStandard {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidExpression, err)
		}
	}
	return nil
}
