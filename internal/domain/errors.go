package domain

import "errors"

var (
	// ErrNoQuestionsAvailable is returned when a region has no questions to build a quiz from.
	ErrNoQuestionsAvailable = errors.New("no questions available for region")
	// ErrInvalidQuestion indicates question bank data that violates the question invariants.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidAnswerIndex indicates a selected option outside the current question's options.
	ErrInvalidAnswerIndex = errors.New("invalid answer index")
	// ErrQuizAlreadyComplete is returned when answering a quiz with no questions left.
	ErrQuizAlreadyComplete = errors.New("quiz already complete")
	// ErrQuizIncomplete is returned when submitting a quiz before every question is answered.
	ErrQuizIncomplete = errors.New("quiz not complete")
	// ErrSubmissionFailed wraps any persistence failure while writing a submission.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrDuplicateSubmission indicates the quiz instance is being or has been submitted.
	ErrDuplicateSubmission = errors.New("quiz already submitted")
	// ErrIntegrityViolation indicates a compliance record whose signature does not match.
	ErrIntegrityViolation = errors.New("compliance record integrity violation")
	// ErrRecordNotFound is returned when no compliance record exists for a key.
	ErrRecordNotFound = errors.New("compliance record not found")
	// ErrProfileNotFound is returned when the driver has no profile.
	ErrProfileNotFound = errors.New("driver profile not found")
	// ErrSessionNotFound is returned when the driver has no quiz in progress.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrUnknownRegion is returned for region codes outside the configured set.
	ErrUnknownRegion = errors.New("unknown region")
	// ErrInvalidDriver is returned for an empty driver id.
	ErrInvalidDriver = errors.New("invalid driver id")
	// ErrMissingSigningKey is returned when the ledger is built without a signing secret.
	ErrMissingSigningKey = errors.New("missing compliance signing key")
)
