package app

import (
	"context"

	"quizboard/internal/domain"
)

// QuizRepository persists quizzes. Ids are assigned by the backend.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	GetQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	GetQuizByQRCode(ctx context.Context, qrCode string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	UpdateQuizQRCode(ctx context.Context, id int64, qrCode string) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, id int64) error
}

// QuestionRepository persists questions. Listing is ordered by OrderIndex.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, question domain.Question) (domain.Question, error)
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	ListQuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error)
	CountQuestionsByQuiz(ctx context.Context, quizID int64) (int, error)
	UpdateQuestion(ctx context.Context, id int64, patch domain.QuestionPatch) (domain.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
}

// ParticipantRepository persists registrations; (email, quizID) is unique.
type ParticipantRepository interface {
	CreateParticipant(ctx context.Context, participant domain.Participant) (domain.Participant, error)
	GetParticipant(ctx context.Context, id int64) (domain.Participant, error)
	GetParticipantByEmailAndQuiz(ctx context.Context, email string, quizID int64) (domain.Participant, error)
	ListParticipantsByQuiz(ctx context.Context, quizID int64) ([]domain.Participant, error)
	DeleteParticipant(ctx context.Context, id int64) error
}

// SubmissionRepository persists submissions; at most one per participant.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, submission domain.Submission) (domain.Submission, error)
	GetSubmissionByParticipant(ctx context.Context, participantID int64) (domain.Submission, error)
	ListSubmissionsByQuiz(ctx context.Context, quizID int64) ([]domain.Submission, error)
	UpdateSubmission(ctx context.Context, submission domain.Submission) (domain.Submission, error)
	DeleteSubmission(ctx context.Context, participantID int64) error
}

// Store bundles every repository a backend has to provide.
type Store interface {
	QuizRepository
	QuestionRepository
	ParticipantRepository
	SubmissionRepository
}

// SubmissionLocker serialises read-modify-write cycles on one participant's submission.
// The returned unlock must always be called.
type SubmissionLocker interface {
	Lock(ctx context.Context, participantID int64) (unlock func(), err error)
}

// Notifier announces that the leaderboard of a quiz may have changed.
type Notifier interface {
	Notify(ctx context.Context, quizID int64) error
}
