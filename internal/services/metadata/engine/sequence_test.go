package engine

import (
	"testing"
	"time"
)

func TestNextSequenceStrictlyIncreasesUnderFrozenClock(t *testing.T) {
	t.Parallel()

	frozen := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	eng := &Engine{clock: func() time.Time { return frozen }}

	prev := eng.nextSequence()
	if prev != frozen.UnixMicro() {
		t.Fatalf("first sequence = %d, want clock micros %d", prev, frozen.UnixMicro())
	}
	for i := 0; i < 100; i++ {
		next := eng.nextSequence()
		if next <= prev {
			t.Fatalf("sequence not strictly increasing: %d then %d", prev, next)
		}
		prev = next
	}
}

func TestNextSequenceSurvivesClockRegression(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	eng := &Engine{clock: func() time.Time { return now }}

	first := eng.nextSequence()
	now = now.Add(-time.Hour)
	second := eng.nextSequence()
	if second != first+1 {
		t.Fatalf("sequence after clock regression = %d, want %d", second, first+1)
	}
}

func TestNextSequenceFollowsAdvancingClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	eng := &Engine{clock: func() time.Time { return now }}

	first := eng.nextSequence()
	now = now.Add(time.Second)
	second := eng.nextSequence()
	if second != now.UnixMicro() {
		t.Fatalf("sequence = %d, want advanced clock micros %d", second, now.UnixMicro())
	}
	if second <= first {
		t.Fatalf("sequence not increasing: %d then %d", first, second)
	}
}
