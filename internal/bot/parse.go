package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"todo-planner/internal/model"
	"todo-planner/internal/service"
)

var errUsage = errors.New("usage")

// dueLayouts are accepted in the user's time zone. A date without a time
// means the end of that day.
var dueLayouts = []string{"2006-01-02 15:04", "2006-01-02", "02.01.2006 15:04", "02.01.2006"}

// splitArgs splits "a | b | c" into trimmed parts, keeping empty ones so
// positions stay stable.
func splitArgs(raw string) []string {
	parts := strings.Split(raw, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func part(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func parseID(raw string) (uint, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("%w: expected a numeric id", errUsage)
	}
	return uint(value), nil
}

func parsePriority(raw string) (model.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "low", "l":
		return model.PriorityLow, nil
	case "medium", "med", "m":
		return model.PriorityMedium, nil
	case "high", "h", "!":
		return model.PriorityHigh, nil
	default:
		return "", fmt.Errorf("%w: priority must be low, medium or high", errUsage)
	}
}

func parseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == '#' })
}

// parseDue understands absolute dates plus "today" and "tomorrow".
func parseDue(raw string, now time.Time) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	loc := now.Location()
	endOfDay := func(t time.Time) *time.Time {
		d := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, loc)
		return &d
	}
	switch strings.ToLower(raw) {
	case "today":
		return endOfDay(now), nil
	case "tomorrow":
		return endOfDay(now.AddDate(0, 0, 1)), nil
	}
	for _, layout := range dueLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "15:04") {
			return endOfDay(t), nil
		}
		return &t, nil
	}
	return nil, fmt.Errorf("%w: due date must look like 2025-11-30 or 2025-11-30 18:00", errUsage)
}

// parseTaskArgs reads "title | priority | tags | due".
func parseTaskArgs(raw string, now time.Time) (service.TaskInput, error) {
	parts := splitArgs(raw)
	input := service.TaskInput{Title: part(parts, 0)}
	if input.Title == "" {
		return input, fmt.Errorf("%w: title is required", errUsage)
	}
	var err error
	if input.Priority, err = parsePriority(part(parts, 1)); err != nil {
		return input, err
	}
	input.Tags = parseTags(part(parts, 2))
	if input.DueDate, err = parseDue(part(parts, 3), now); err != nil {
		return input, err
	}
	return input, nil
}

// parseTaskUpdate reads "<id> title | priority | tags | due". Empty parts are
// left unchanged and a due date of "-" clears it.
func parseTaskUpdate(raw string, now time.Time) (uint, service.TaskUpdate, error) {
	var upd service.TaskUpdate
	idRaw, rest, _ := strings.Cut(strings.TrimSpace(raw), " ")
	id, err := parseID(idRaw)
	if err != nil {
		return 0, upd, err
	}
	parts := splitArgs(rest)
	if title := part(parts, 0); title != "" {
		upd.Title = &title
	}
	if p := part(parts, 1); p != "" {
		priority, err := parsePriority(p)
		if err != nil {
			return 0, upd, err
		}
		upd.Priority = &priority
	}
	if t := part(parts, 2); t != "" {
		tags := parseTags(t)
		upd.Tags = &tags
	}
	switch due := part(parts, 3); due {
	case "":
	case "-":
		upd.ClearDueDate = true
	default:
		if upd.DueDate, err = parseDue(due, now); err != nil {
			return 0, upd, err
		}
	}
	if upd == (service.TaskUpdate{}) {
		return 0, upd, fmt.Errorf("%w: nothing to change", errUsage)
	}
	return id, upd, nil
}

// parseCronPrefix splits "<m> <h> <dom> <mon> <dow> rest" into the cron
// expression and the rest.
func parseCronPrefix(raw string) (string, string, error) {
	fields := strings.Fields(raw)
	if len(fields) < 5 {
		return "", "", fmt.Errorf("%w: a schedule starts with five cron fields", errUsage)
	}
	return strings.Join(fields[:5], " "), strings.Join(fields[5:], " "), nil
}

// parseScheduleArgs reads "<cron> title | priority | tags | description".
func parseScheduleArgs(raw string) (service.ScheduleInput, error) {
	var input service.ScheduleInput
	expr, rest, err := parseCronPrefix(raw)
	if err != nil {
		return input, err
	}
	parts := splitArgs(rest)
	input.CronExpression = expr
	input.Template.Title = part(parts, 0)
	if input.Template.Title == "" {
		return input, fmt.Errorf("%w: title is required after the cron fields", errUsage)
	}
	if input.Template.Priority, err = parsePriority(part(parts, 1)); err != nil {
		return input, err
	}
	input.Template.Tags = parseTags(part(parts, 2))
	input.Template.Description = part(parts, 3)
	return input, nil
}

func parseSwitch(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "yes", "true", "1":
		return true, nil
	case "off", "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: expected on or off", errUsage)
	}
}
