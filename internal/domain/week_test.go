package domain

import (
	"errors"
	"testing"
	"time"
)

func TestWeekOfUsesISOBoundaries(t *testing.T) {
	cases := []struct {
		at   time.Time
		want ISOWeek
	}{
		{time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC), ISOWeek{Week: 42, Year: 2026}},
		{time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), ISOWeek{Week: 43, Year: 2026}},
		{time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC), ISOWeek{Week: 53, Year: 2020}},
		{time.Date(2024, 12, 30, 8, 0, 0, 0, time.UTC), ISOWeek{Week: 1, Year: 2025}},
	}
	for _, tc := range cases {
		if got := WeekOf(tc.at); got != tc.want {
			t.Fatalf("WeekOf(%s) = %s, want %s", tc.at, got, tc.want)
		}
	}
}

func TestWeekOfNormalizesToUTC(t *testing.T) {
	kl := time.FixedZone("MYT", 8*3600)
	// Monday 02:00 in Kuala Lumpur is still Sunday in UTC.
	at := time.Date(2026, 10, 19, 2, 0, 0, 0, kl)
	if got := WeekOf(at); got != (ISOWeek{Week: 42, Year: 2026}) {
		t.Fatalf("expected UTC week 42, got %s", got)
	}
}

func TestPreviousAndMonday(t *testing.T) {
	w := ISOWeek{Week: 1, Year: 2021}
	prev := w.Previous()
	if prev != (ISOWeek{Week: 53, Year: 2020}) {
		t.Fatalf("expected 2020-W53, got %s", prev)
	}
	if m := prev.Monday(); !m.Equal(time.Date(2020, 12, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected monday %s", m)
	}
	if !prev.Valid() {
		t.Fatalf("expected 2020-W53 to be valid")
	}
	if (ISOWeek{Week: 53, Year: 2021}).Valid() {
		t.Fatalf("2021 has no week 53")
	}
}

func TestRegionSet(t *testing.T) {
	set := NewRegionSet("my", " PT ", "")
	if set.Len() != 2 {
		t.Fatalf("expected 2 regions, got %d", set.Len())
	}
	if err := set.Check("MY"); err != nil {
		t.Fatalf("expected MY allowed: %v", err)
	}
	if err := set.Check("SG"); !errors.Is(err, ErrUnknownRegion) {
		t.Fatalf("expected unknown region, got %v", err)
	}
	if list := set.List(); list[0] != "MY" || list[1] != "PT" {
		t.Fatalf("unexpected order %v", list)
	}
}

func TestQuestionValidate(t *testing.T) {
	ok := Question{ID: "q1", Options: []string{"a", "b"}, CorrectOptionIndex: 1}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid question: %v", err)
	}
	bad := []Question{
		{Options: []string{"a", "b"}},
		{ID: "q2", Options: []string{"a"}},
		{ID: "q3", Options: []string{"a", "b"}, CorrectOptionIndex: 2},
		{ID: "q4", Options: []string{"a", "b"}, CorrectOptionIndex: -1},
	}
	for _, q := range bad {
		if err := q.Validate(); !errors.Is(err, ErrInvalidQuestion) {
			t.Fatalf("expected invalid question for %+v, got %v", q, err)
		}
	}
}
