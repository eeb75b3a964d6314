package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	clock := NewClock(At(9, 0))
	nowFn := clock.NowFunc()

	if updated := clock.Advance(90 * time.Minute); !updated.Equal(At(10, 30)) {
		t.Fatalf("advance returned %v", updated)
	}
	clock.Set(At(12, 0))
	if got := nowFn(); !got.Equal(At(12, 0)) {
		t.Fatalf("expected NowFunc to follow Set, got %v", got)
	}
}

func TestUsageIDs(t *testing.T) {
	ids := NewUsageIDs("")
	if first, second := ids.Next(), ids.Next(); first != "usage-1" || second != "usage-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	ids.Reset()
	if next := ids.Next(); next != "usage-1" {
		t.Fatalf("expected usage-1 after reset, got %q", next)
	}
}
