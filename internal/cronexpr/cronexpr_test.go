package cronexpr

import (
	"errors"
	"testing"
	"time"
)

func mustTime(t *testing.T, raw string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return ts
}

func TestNextRun(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		expr string
		from string
		want string
	}{
		{name: "daily before target", expr: "0 9 * * *", from: "2024-01-01T08:00:00Z", want: "2024-01-01T09:00:00Z"},
		{name: "daily after target", expr: "0 9 * * *", from: "2024-01-01T09:30:00Z", want: "2024-01-02T09:00:00Z"},
		{name: "daily exactly at target", expr: "0 9 * * *", from: "2024-01-01T09:00:00Z", want: "2024-01-02T09:00:00Z"},
		{name: "daily drops seconds", expr: "30 6 * * *", from: "2024-01-01T06:29:59Z", want: "2024-01-01T06:30:00Z"},
		{name: "daily month rollover", expr: "15 23 * * *", from: "2024-01-31T23:20:00Z", want: "2024-02-01T23:15:00Z"},
		{name: "extra whitespace", expr: " 0   9 * *  * ", from: "2024-01-01T08:00:00Z", want: "2024-01-01T09:00:00Z"},
		{name: "fallback step minute", expr: "*/4 * * * *", from: "2024-01-01T08:00:00Z", want: "2024-01-02T08:00:00Z"},
		{name: "fallback hourly", expr: "30 * * * *", from: "2024-01-01T08:10:00Z", want: "2024-01-02T08:10:00Z"},
		{name: "fallback weekly", expr: "0 0 * * 1", from: "2024-01-01T08:00:00Z", want: "2024-01-02T08:00:00Z"},
		{name: "fallback step hour", expr: "0 */4 * * *", from: "2024-01-01T08:00:00Z", want: "2024-01-02T08:00:00Z"},
		{name: "daily hour range uses first hour", expr: "0 9-17 * * *", from: "2024-01-01T08:00:00Z", want: "2024-01-01T09:00:00Z"},
		{name: "daily minute list uses first minute", expr: "0,30 9 * * *", from: "2024-01-01T08:00:00Z", want: "2024-01-01T09:00:00Z"},
		{name: "daily hour list uses first hour", expr: "15 9,18 * * *", from: "2024-01-01T10:00:00Z", want: "2024-01-02T09:15:00Z"},
		{name: "hour 25 rolls into next day", expr: "0 25 * * *", from: "2024-01-01T08:00:00Z", want: "2024-01-02T01:00:00Z"},
		{name: "hour 24 is next midnight", expr: "0 24 * * *", from: "2024-01-01T08:00:00Z", want: "2024-01-02T00:00:00Z"},
		{name: "minute 60 rolls into next hour", expr: "60 9 * * *", from: "2024-01-01T08:00:00Z", want: "2024-01-01T10:00:00Z"},
		{name: "rolled over time already passed", expr: "0 25 * * *", from: "2024-01-02T02:00:00Z", want: "2024-01-03T01:00:00Z"},
		{name: "fallback keeps sub-second", expr: "* * * * *", from: "2024-02-28T10:11:12.5Z", want: "2024-02-29T10:11:12.5Z"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NextRun(tt.expr, mustTime(t, tt.from))
			if err != nil {
				t.Fatalf("NextRun(%q) error: %v", tt.expr, err)
			}
			if want := mustTime(t, tt.want); !got.Equal(want) {
				t.Fatalf("NextRun(%q, %s) = %s, want %s", tt.expr, tt.from, got, want)
			}
		})
	}
}

func TestNextRunStrictlyAfterFrom(t *testing.T) {
	t.Parallel()
	from := mustTime(t, "2024-03-10T00:00:00Z")
	for i := 0; i < 24*60; i += 7 {
		at := from.Add(time.Duration(i) * time.Minute)
		got, err := NextRun("45 13 * * *", at)
		if err != nil {
			t.Fatalf("NextRun error: %v", err)
		}
		if !got.After(at) {
			t.Fatalf("NextRun(%s) = %s, not after from", at, got)
		}
		if got.Sub(at) > 24*time.Hour {
			t.Fatalf("NextRun(%s) = %s, more than a day ahead", at, got)
		}
	}
}

func TestNextRunKeepsWallClockAcrossDST(t *testing.T) {
	t.Parallel()
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	from := time.Date(2024, 3, 30, 10, 0, 0, 0, loc)

	got, err := NextRun("0 9 * * *", from)
	if err != nil {
		t.Fatalf("NextRun error: %v", err)
	}
	if want := time.Date(2024, 3, 31, 9, 0, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("daily = %s, want %s", got, want)
	}

	got, err = NextRun("0 0 * * 1", from)
	if err != nil {
		t.Fatalf("NextRun error: %v", err)
	}
	if want := time.Date(2024, 3, 31, 10, 0, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("fallback = %s, want %s", got, want)
	}
}

func TestNextRunInvalid(t *testing.T) {
	t.Parallel()
	from := mustTime(t, "2024-01-01T08:00:00Z")
	for _, expr := range []string{"bad", "", "0 9 * *", "0 9 * * * *"} {
		if _, err := NextRun(expr, from); !errors.Is(err, ErrInvalidExpression) {
			t.Fatalf("NextRun(%q) err = %v, want ErrInvalidExpression", expr, err)
		}
	}
}

func TestCalculatorStandardMode(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(ModeStandard)
	from := mustTime(t, "2024-01-01T08:00:00Z") // Monday
	tests := []struct {
		expr string
		want string
	}{
		{expr: "*/4 * * * *", want: "2024-01-01T08:04:00Z"},
		{expr: "0 */4 * * *", want: "2024-01-01T12:00:00Z"},
		{expr: "0 0 * * 3", want: "2024-01-03T00:00:00Z"},
		{expr: "0 9 * * *", want: "2024-01-01T09:00:00Z"},
	}
	for _, tt := range tests {
		got, err := calc.Next(tt.expr, from)
		if err != nil {
			t.Fatalf("Next(%q) error: %v", tt.expr, err)
		}
		if want := mustTime(t, tt.want); !got.Equal(want) {
			t.Fatalf("Next(%q) = %s, want %s", tt.expr, got, want)
		}
	}

	if _, err := calc.Next("0 9 * *", from); !errors.Is(err, ErrInvalidExpression) {
		t.Fatalf("four fields err = %v", err)
	}
	if _, err := calc.Next("0 9 * * funday", from); !errors.Is(err, ErrInvalidExpression) {
		t.Fatalf("bad dow err = %v", err)
	}
	if _, err := calc.Next("@daily", from); !errors.Is(err, ErrInvalidExpression) {
		t.Fatalf("descriptor err = %v", err)
	}
}

func TestCalculatorCompatMatchesNextRun(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(ModeCompat)
	from := mustTime(t, "2024-01-01T08:00:00Z")
	got, err := calc.Next("*/4 * * * *", from)
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if want := mustTime(t, "2024-01-02T08:00:00Z"); !got.Equal(want) {
		t.Fatalf("Next = %s, want %s", got, want)
	}
}

func TestCalculatorValidate(t *testing.T) {
	t.Parallel()
	compat := NewCalculator(ModeCompat)
	standard := NewCalculator(ModeStandard)

	if err := compat.Validate("0 9 * * *"); err != nil {
		t.Fatalf("compat valid: %v", err)
	}
	if err := compat.Validate("0 25 * * *"); err != nil {
		t.Fatalf("compat accepts any five fields: %v", err)
	}
	if err := compat.Validate("0 9 * *"); !errors.Is(err, ErrInvalidExpression) {
		t.Fatalf("compat four fields err = %v", err)
	}
	if err := compat.Validate("x y z w v"); err != nil {
		t.Fatalf("compat only checks shape for other patterns: %v", err)
	}
	if err := standard.Validate("x y z w v"); !errors.Is(err, ErrInvalidExpression) {
		t.Fatalf("standard garbage err = %v", err)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	if m, err := ParseMode(""); err != nil || m != ModeCompat {
		t.Fatalf("ParseMode(\"\") = %v, %v", m, err)
	}
	if m, err := ParseMode("Standard"); err != nil || m != ModeStandard {
		t.Fatalf("ParseMode(Standard) = %v, %v", m, err)
	}
	if _, err := ParseMode("quartz"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()
	tests := []struct {
		expr string
		want string
	}{
		{expr: "0 9 * * *", want: "Daily at 09:00"},
		{expr: "5 14 * * *", want: "Daily at 14:05"},
		{expr: "30 * * * *", want: "Every hour at 30 minutes"},
		{expr: "0 0 * * 1", want: "Custom: 0 0 * * 1"},
		{expr: "*/4 * * * *", want: "Custom: */4 * * * *"},
		{expr: "0 */4 * * *", want: "Custom: 0 */4 * * *"},
		{expr: "0 25 * * *", want: "Custom: 0 25 * * *"},
		{expr: "0 9-17 * * *", want: "Custom: 0 9-17 * * *"},
		{expr: "bad", want: "Invalid cron expression"},
		{expr: "", want: "Invalid cron expression"},
	}
	for _, tt := range tests {
		got := Describe(tt.expr)
		if got != tt.want {
			t.Fatalf("Describe(%q) = %q, want %q", tt.expr, got, tt.want)
		}
		if again := Describe(tt.expr); again != got {
			t.Fatalf("Describe(%q) not stable: %q vs %q", tt.expr, got, again)
		}
	}
}
