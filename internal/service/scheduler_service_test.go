package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"08:00", "0 0 8 * * *", false},
		{"23:59", "0 59 23 * * *", false},
		{"7:5", "0 5 7 * * *", false},
		{"24:00", "", true},
		{"08:60", "", true},
		{"0800", "", true},
		{"aa:bb", "", true},
	}
	for _, tt := range tests {
		got, err := buildDailySpec(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("buildDailySpec(%q) err=%v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("buildDailySpec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSchedulerRegistration(t *testing.T) {
	s := NewSchedulerService(time.UTC, zerolog.Nop())

	if _, err := s.ScheduleInterval("sweep", 0, func() {}); err == nil {
		t.Fatalf("ScheduleInterval(0) err=nil")
	}
	if _, err := s.ScheduleDaily("digest", "25:00", func() {}); err == nil {
		t.Fatalf("ScheduleDaily(25:00) err=nil")
	}

	id, err := s.ScheduleInterval("sweep", 15*time.Minute, func() {})
	if err != nil {
		t.Fatalf("ScheduleInterval() err=%v", err)
	}
	if _, err := s.ScheduleDaily("digest", "08:00", func() {}); err != nil {
		t.Fatalf("ScheduleDaily() err=%v", err)
	}

	s.Start()
	defer s.Stop()
	next := s.NextRun(id)
	if next.IsZero() || next.Sub(time.Now()) > 15*time.Minute {
		t.Fatalf("NextRun() = %v", next)
	}
}
