package app

import (
	"testing"

	"safepass-compliance/internal/domain"
)

func TestScoreRounding(t *testing.T) {
	cases := []struct {
		correct, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{5, 5, 100},
		{2, 3, 67},
		{1, 3, 33},
		{1, 8, 13}, // 12.5 rounds up
		{29, 30, 97},
	}
	for _, tc := range cases {
		if got := Score(answersFor(tc.correct, tc.total)); got != tc.want {
			t.Fatalf("Score(%d/%d) = %d, want %d", tc.correct, tc.total, got, tc.want)
		}
	}
}

func TestRoundedMean(t *testing.T) {
	if got := roundedMean([]int{80, 90, 100}); got != 90 {
		t.Fatalf("expected 90, got %d", got)
	}
	if got := roundedMean([]int{1, 2}); got != 2 {
		t.Fatalf("expected 1.5 to round to 2, got %d", got)
	}
	if got := roundedMean(nil); got != 0 {
		t.Fatalf("expected 0 for no values, got %d", got)
	}
}

func answersFor(correct, total int) []domain.Answer {
	out := make([]domain.Answer, total)
	for i := range out {
		out[i] = domain.Answer{QuestionID: "q", IsCorrect: i < correct}
	}
	return out
}
