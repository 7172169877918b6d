package app

import "safepass-compliance/internal/domain"

// Score returns round(100 * correct / answered), rounding halves up, or 0 with no answers.
func Score(answers []domain.Answer) int {
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	return roundedPercent(correct, len(answers))
}

func roundedPercent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

// roundedMean is the half-up rounded arithmetic mean of non-negative values.
func roundedMean(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	n := len(values)
	return (2*sum + n) / (2 * n)
}
