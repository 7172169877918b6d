package domain

import "fmt"

// Validate checks the invariants a question must hold before it can be quizzed.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question %s has %d options", ErrInvalidQuestion, q.ID, len(q.Options))
	}
	if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
		return fmt.Errorf("%w: question %s correct option %d out of range", ErrInvalidQuestion, q.ID, q.CorrectOptionIndex)
	}
	return nil
}

// AppliesTo reports whether the question belongs to the region's bank.
func (q Question) AppliesTo(region Region) bool {
	for _, r := range q.Regions {
		if r == region {
			return true
		}
	}
	return false
}
