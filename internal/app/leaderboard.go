package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
	"quizboard/internal/domain"
)

// pointsPerQuestion is the fixed accuracy denominator per question. It ignores
// the real point value of each question, so mixed-value quizzes can exceed 100%.
const pointsPerQuestion = 10

// LeaderboardEngine ranks submissions of a quiz. Results are recomputed on every
// read; concurrent reads of the same quiz share one computation.
type LeaderboardEngine struct {
	participants ParticipantRepository
	submissions  SubmissionRepository
	now          func() time.Time
	sf           singleflight.Group
}

func NewLeaderboardEngine(participants ParticipantRepository, submissions SubmissionRepository) *LeaderboardEngine {
	return &LeaderboardEngine{participants: participants, submissions: submissions, now: time.Now}
}

// Leaderboard returns the ranked entries of a quiz.
func (e *LeaderboardEngine) Leaderboard(ctx context.Context, quizID int64) ([]domain.LeaderboardEntry, error) {
	// the computation is shared, so one caller going away must not fail the others
	ch := e.sf.DoChan(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		return e.compute(context.WithoutCancel(ctx), quizID)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	shared := res.Val.([]domain.LeaderboardEntry)
	entries := make([]domain.LeaderboardEntry, len(shared))
	copy(entries, shared)
	return entries, nil
}

// Stats summarises the submissions of a quiz.
func (e *LeaderboardEngine) Stats(ctx context.Context, quizID int64) (domain.QuizStats, error) {
	subs, err := e.submissions.ListSubmissionsByQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizStats{}, fmt.Errorf("list submissions: %w", err)
	}
	return ComputeStats(subs), nil
}

// Snapshot bundles leaderboard and stats for live subscribers.
func (e *LeaderboardEngine) Snapshot(ctx context.Context, quizID int64) (domain.LeaderboardUpdate, error) {
	entries, err := e.Leaderboard(ctx, quizID)
	if err != nil {
		return domain.LeaderboardUpdate{}, err
	}
	stats, err := e.Stats(ctx, quizID)
	if err != nil {
		return domain.LeaderboardUpdate{}, err
	}
	return domain.LeaderboardUpdate{
		QuizID:    quizID,
		Entries:   entries,
		Stats:     stats,
		UpdatedAt: e.now(),
	}, nil
}

func (e *LeaderboardEngine) compute(ctx context.Context, quizID int64) ([]domain.LeaderboardEntry, error) {
	subs, err := e.submissions.ListSubmissionsByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	participants := make(map[int64]domain.Participant, len(subs))
	for _, sub := range subs {
		p, err := e.participants.GetParticipant(ctx, sub.ParticipantID)
		if errors.Is(err, domain.ErrParticipantNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load participant %d: %w", sub.ParticipantID, err)
		}
		participants[p.ID] = p
	}
	return RankEntries(subs, participants), nil
}

// RankEntries joins submissions with participants, skipping orphans, and ranks them by
// score descending then completion time ascending. Ranks are never shared.
func RankEntries(subs []domain.Submission, participants map[int64]domain.Participant) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(subs))
	for _, sub := range subs {
		p, ok := participants[sub.ParticipantID]
		if !ok {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			ParticipantID:  p.ID,
			Name:           p.Name,
			Email:          p.Email,
			Score:          sub.Score,
			CompletionTime: sub.CompletionTime,
			Accuracy:       Accuracy(sub.Score, sub.TotalQuestions),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].CompletionTime != entries[j].CompletionTime {
			return entries[i].CompletionTime < entries[j].CompletionTime
		}
		return entries[i].ParticipantID < entries[j].ParticipantID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Accuracy is round(score / (totalQuestions * 10) * 100), or 0 without questions.
func Accuracy(score, totalQuestions int) int {
	if totalQuestions <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(totalQuestions*pointsPerQuestion) * 100))
}

// ComputeStats returns participant count, rounded mean and maximum score.
func ComputeStats(subs []domain.Submission) domain.QuizStats {
	if len(subs) == 0 {
		return domain.QuizStats{}
	}
	sum, highest := 0, subs[0].Score
	for _, sub := range subs {
		sum += sub.Score
		if sub.Score > highest {
			highest = sub.Score
		}
	}
	return domain.QuizStats{
		TotalParticipants: len(subs),
		AverageScore:      int(math.Round(float64(sum) / float64(len(subs)))),
		HighestScore:      highest,
	}
}
