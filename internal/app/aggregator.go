package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizboard/internal/domain"
)

// AnswerEvent is a single per-question scoring signal.
type AnswerEvent struct {
	ParticipantID int64
	QuizID        int64
	QuestionID    int64
	IsCorrect     bool
	Points        int
}

// FinalSubmission is the authoritative end-of-quiz payload. A nil Answers map
// keeps whatever was recorded incrementally. A nil Score takes the running score
// of the answers held at write time.
type FinalSubmission struct {
	ParticipantID  int64
	QuizID         int64
	Answers        domain.Answers
	Score          *int
	TotalQuestions int
	CompletionTime int
}

// Aggregator maintains running submissions and reconciles them on finalization.
type Aggregator struct {
	submissions SubmissionRepository
	locker      SubmissionLocker
	now         func() time.Time
}

func NewAggregator(submissions SubmissionRepository, locker SubmissionLocker) *Aggregator {
	return NewAggregatorWithClock(submissions, locker, time.Now)
}

// NewAggregatorWithClock allows deterministic timestamps in tests.
func NewAggregatorWithClock(submissions SubmissionRepository, locker SubmissionLocker, now func() time.Time) *Aggregator {
	return &Aggregator{submissions: submissions, locker: locker, now: now}
}

// RecordAnswer merges one answer into the participant's submission and returns it
// with the score recomputed from the whole answer map.
func (a *Aggregator) RecordAnswer(ctx context.Context, ev AnswerEvent) (domain.Submission, error) {
	points := ev.Points
	if points <= 0 {
		points = domain.DefaultPoints
	}
	return a.mutate(ctx, ev.ParticipantID, ev.QuizID, func(sub *domain.Submission) {
		answers := sub.Answers.Clone()
		answers[ev.QuestionID] = domain.Answer{
			Value:     answers[ev.QuestionID].Value,
			IsCorrect: ev.IsCorrect,
			Points:    points,
		}
		sub.Answers = answers
		sub.Score = answers.Score()
	})
}

// Finalize overwrites the participant's submission with the authoritative result.
// Calling it again simply overwrites again.
func (a *Aggregator) Finalize(ctx context.Context, final FinalSubmission) (domain.Submission, error) {
	return a.mutate(ctx, final.ParticipantID, final.QuizID, func(sub *domain.Submission) {
		if final.Answers != nil {
			sub.Answers = final.Answers.Clone()
		}
		sub.QuizID = final.QuizID
		if final.Score != nil {
			sub.Score = *final.Score
		} else {
			sub.Score = sub.Answers.Score()
		}
		sub.TotalQuestions = final.TotalQuestions
		sub.CompletionTime = final.CompletionTime
		sub.SubmittedAt = a.now()
	})
}

// mutate runs apply on the current submission (or a zero one) under the participant lock
// and writes the result back in place.
func (a *Aggregator) mutate(ctx context.Context, participantID, quizID int64, apply func(*domain.Submission)) (domain.Submission, error) {
	unlock, err := a.locker.Lock(ctx, participantID)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("lock submission of participant %d: %w", participantID, err)
	}
	defer unlock()

	// A second pass covers a creator on another instance winning the insert.
	for attempt := 0; attempt < 2; attempt++ {
		sub, err := a.submissions.GetSubmissionByParticipant(ctx, participantID)
		switch {
		case err == nil:
			apply(&sub)
			updated, err := a.submissions.UpdateSubmission(ctx, sub)
			if err != nil {
				return domain.Submission{}, fmt.Errorf("update submission: %w", err)
			}
			return updated, nil
		case errors.Is(err, domain.ErrSubmissionNotFound):
			sub = domain.Submission{
				ParticipantID: participantID,
				QuizID:        quizID,
				Answers:       domain.Answers{},
				SubmittedAt:   a.now(),
			}
			apply(&sub)
			created, err := a.submissions.CreateSubmission(ctx, sub)
			if errors.Is(err, domain.ErrSubmissionExists) {
				continue
			}
			if err != nil {
				return domain.Submission{}, fmt.Errorf("create submission: %w", err)
			}
			return created, nil
		default:
			return domain.Submission{}, fmt.Errorf("load submission: %w", err)
		}
	}
	return domain.Submission{}, fmt.Errorf("upsert submission of participant %d: %w", participantID, domain.ErrSubmissionExists)
}
