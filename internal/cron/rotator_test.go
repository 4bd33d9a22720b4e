package cron

import (
	"testing"
	"time"
)

func TestNextRunAfterSeconds(t *testing.T) {
	from := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got := nextRunAfter("300", from)
	want := from.Add(5 * time.Minute)
	if !got.Equal(want) {
		t.Fatalf("nextRunAfter seconds = %v, want %v", got, want)
	}
}

func TestNextRunAfterCronExpression(t *testing.T) {
	from := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	got := nextRunAfter("0 0 * * *", from)
	want := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("nextRunAfter cron = %v, want %v", got, want)
	}
}

func TestNextRunAfterInvalidFallsBack(t *testing.T) {
	from := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got := nextRunAfter("not-a-schedule", from)
	want := from.Add(24 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("nextRunAfter fallback = %v, want %v", got, want)
	}
}
