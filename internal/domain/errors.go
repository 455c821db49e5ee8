package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound is returned for an unknown quiz id or join token.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question id does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrParticipantNotFound is returned when a participant id is unknown.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrSubmissionNotFound is returned when a participant has no submission yet.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrParticipantExists rejects a second registration of an email for the same quiz.
	ErrParticipantExists = errors.New("participant already registered for this quiz")
	// ErrSubmissionExists is returned by stores when a participant already owns a submission.
	ErrSubmissionExists = errors.New("submission already exists for participant")
	// ErrQuizInactive rejects registrations for a deactivated quiz.
	ErrQuizInactive = errors.New("quiz is not active")
	// ErrQuizExpired rejects answers that arrive after the participant's time limit.
	ErrQuizExpired = errors.New("quiz time limit exceeded")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err carries a ValidationError or another client-side rejection.
func IsValidation(err error) bool {
	var v *ValidationError
	if errors.As(err, &v) {
		return true
	}
	return errors.Is(err, ErrParticipantExists) ||
		errors.Is(err, ErrQuizInactive) ||
		errors.Is(err, ErrQuizExpired)
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrParticipantNotFound) ||
		errors.Is(err, ErrSubmissionNotFound)
}
