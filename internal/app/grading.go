package app

import (
	"strings"

	"quizboard/internal/domain"
)

// Grade compares raw answers against each question's correct answer and returns
// the recorded answer map with the total score. Answers for unknown questions are dropped.
func Grade(questions []domain.Question, raw map[int64]string) (domain.Answers, int) {
	answers := make(domain.Answers, len(raw))
	for _, q := range questions {
		value, ok := raw[q.ID]
		if !ok {
			continue
		}
		points := q.Points
		if points <= 0 {
			points = domain.DefaultPoints
		}
		answers[q.ID] = domain.Answer{
			Value:     value,
			IsCorrect: matches(value, q.CorrectAnswer),
			Points:    points,
		}
	}
	return answers, answers.Score()
}

// matches is a case-insensitive comparison of trimmed strings; an empty answer never matches.
func matches(answer, correct string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	return strings.EqualFold(answer, strings.TrimSpace(correct))
}
