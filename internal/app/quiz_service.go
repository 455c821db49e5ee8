package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"quizboard/internal/domain"
)

// QRRenderer turns a join URL into an embeddable image data URL.
type QRRenderer interface {
	DataURL(content string) (string, error)
}

// Dependencies are the collaborators of QuizService. Notifier defaults to the
// service's own hub.
type Dependencies struct {
	Store    Store
	Locker   SubmissionLocker
	Notifier Notifier
	QR       QRRenderer
	Logger   *zap.Logger
}

// Options tune service behaviour.
type Options struct {
	// EnforceDeadline rejects answers that arrive after the participant's time limit.
	EnforceDeadline bool
	DeadlineGrace   time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// QuizService contains the quiz use cases.
type QuizService struct {
	store       Store
	aggregator  *Aggregator
	leaderboard *LeaderboardEngine
	hub         *Hub
	notifier    Notifier
	qr          QRRenderer
	logger      *zap.Logger
	opts        Options
	now         func() time.Time
}

func NewQuizService(deps Dependencies, opts Options) *QuizService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := NewLeaderboardEngine(deps.Store, deps.Store)
	engine.now = now
	hub := NewHub(engine.Snapshot, logger)

	notifier := deps.Notifier
	if notifier == nil {
		notifier = hub
	}
	return &QuizService{
		store:       deps.Store,
		aggregator:  NewAggregatorWithClock(deps.Store, deps.Locker, now),
		leaderboard: engine,
		hub:         hub,
		notifier:    notifier,
		qr:          deps.QR,
		logger:      logger,
		opts:        opts,
		now:         now,
	}
}

// Hub exposes the live leaderboard hub, e.g. for cross-instance listeners.
func (s *QuizService) Hub() *Hub {
	return s.hub
}

// NewQuiz is the input of CreateQuiz. IsActive defaults to true.
type NewQuiz struct {
	Title     string
	TimeLimit int
	IsActive  *bool
}

func (s *QuizService) CreateQuiz(ctx context.Context, in NewQuiz) (domain.Quiz, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Quiz{}, domain.Invalid("title", "is required")
	}
	if in.TimeLimit <= 0 {
		return domain.Quiz{}, domain.Invalid("timeLimit", "must be a positive number of minutes")
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return s.store.CreateQuiz(ctx, domain.Quiz{
		Title:     title,
		TimeLimit: in.TimeLimit,
		IsActive:  active,
		CreatedAt: s.now(),
	})
}

func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.store.ListQuizzes(ctx)
}

// GetQuiz returns a quiz with its questions in display order.
func (s *QuizService) GetQuiz(ctx context.Context, id int64) (domain.QuizWithQuestions, error) {
	quiz, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return domain.QuizWithQuestions{}, err
	}
	questions, err := s.store.ListQuestionsByQuiz(ctx, id)
	if err != nil {
		return domain.QuizWithQuestions{}, err
	}
	return domain.QuizWithQuestions{Quiz: quiz, Questions: questions}, nil
}

func (s *QuizService) GetQuizByQRCode(ctx context.Context, qrCode string) (domain.Quiz, error) {
	return s.store.GetQuizByQRCode(ctx, qrCode)
}

// DeleteQuiz removes the quiz only; questions, participants and submissions stay.
func (s *QuizService) DeleteQuiz(ctx context.Context, id int64) error {
	return s.store.DeleteQuiz(ctx, id)
}

// QRCodeResult is returned after generating a join token.
type QRCodeResult struct {
	QRCode        string      `json:"qrCode"`
	QRCodeDataURL string      `json:"qrCodeDataUrl"`
	Quiz          domain.Quiz `json:"quiz"`
}

// GenerateQRCode issues a join token quiz-{id}-{unixMillis} and renders the join URL
// {origin}/quiz/{token} as a QR image.
func (s *QuizService) GenerateQRCode(ctx context.Context, id int64, origin string) (QRCodeResult, error) {
	if _, err := s.store.GetQuiz(ctx, id); err != nil {
		return QRCodeResult{}, err
	}
	token := fmt.Sprintf("quiz-%d-%d", id, s.now().UnixMilli())
	joinURL := strings.TrimRight(origin, "/") + "/quiz/" + token

	dataURL, err := s.qr.DataURL(joinURL)
	if err != nil {
		return QRCodeResult{}, fmt.Errorf("render qr code: %w", err)
	}
	quiz, err := s.store.UpdateQuizQRCode(ctx, id, token)
	if err != nil {
		return QRCodeResult{}, err
	}
	return QRCodeResult{QRCode: token, QRCodeDataURL: dataURL, Quiz: quiz}, nil
}

// NewQuestion is the input of CreateQuestion. Points default to 10 and a missing
// OrderIndex appends the question after the existing ones.
type NewQuestion struct {
	QuizID        int64
	QuestionText  string
	QuestionType  domain.QuestionType
	Options       []string
	CorrectAnswer string
	Points        *int
	OrderIndex    *int
}

func (s *QuizService) CreateQuestion(ctx context.Context, in NewQuestion) (domain.Question, error) {
	if strings.TrimSpace(in.QuestionText) == "" {
		return domain.Question{}, domain.Invalid("questionText", "is required")
	}
	if !in.QuestionType.Valid() {
		return domain.Question{}, domain.Invalid("questionType", fmt.Sprintf("unsupported type %q", in.QuestionType))
	}
	points := domain.DefaultPoints
	if in.Points != nil {
		if *in.Points <= 0 {
			return domain.Question{}, domain.Invalid("points", "must be positive")
		}
		points = *in.Points
	}
	if _, err := s.store.GetQuiz(ctx, in.QuizID); err != nil {
		return domain.Question{}, err
	}

	var order int
	if in.OrderIndex != nil {
		order = *in.OrderIndex
	} else {
		count, err := s.store.CountQuestionsByQuiz(ctx, in.QuizID)
		if err != nil {
			return domain.Question{}, err
		}
		order = count
	}
	return s.store.CreateQuestion(ctx, domain.Question{
		QuizID:        in.QuizID,
		QuestionText:  in.QuestionText,
		QuestionType:  in.QuestionType,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Points:        points,
		OrderIndex:    order,
	})
}

// ListQuestions returns the questions of a quiz by OrderIndex; unknown quizzes yield none.
func (s *QuizService) ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	return s.store.ListQuestionsByQuiz(ctx, quizID)
}

func (s *QuizService) UpdateQuestion(ctx context.Context, id int64, patch domain.QuestionPatch) (domain.Question, error) {
	if patch.QuestionText != nil && strings.TrimSpace(*patch.QuestionText) == "" {
		return domain.Question{}, domain.Invalid("questionText", "must not be empty")
	}
	if patch.QuestionType != nil && !patch.QuestionType.Valid() {
		return domain.Question{}, domain.Invalid("questionType", fmt.Sprintf("unsupported type %q", *patch.QuestionType))
	}
	if patch.Points != nil && *patch.Points <= 0 {
		return domain.Question{}, domain.Invalid("points", "must be positive")
	}
	return s.store.UpdateQuestion(ctx, id, patch)
}

// DeleteQuestion hard-deletes a question; answers already recorded for it are kept.
func (s *QuizService) DeleteQuestion(ctx context.Context, id int64) error {
	return s.store.DeleteQuestion(ctx, id)
}

// NewParticipant is the input of RegisterParticipant.
type NewParticipant struct {
	Name   string
	Email  string
	Phone  string
	QuizID int64
}

// RegisterParticipant registers an email once per quiz.
func (s *QuizService) RegisterParticipant(ctx context.Context, in NewParticipant) (domain.Participant, error) {
	quiz, err := s.store.GetQuiz(ctx, in.QuizID)
	if err != nil {
		return domain.Participant{}, err
	}
	if !quiz.IsActive {
		return domain.Participant{}, domain.ErrQuizInactive
	}
	_, err = s.store.GetParticipantByEmailAndQuiz(ctx, in.Email, in.QuizID)
	switch {
	case err == nil:
		return domain.Participant{}, domain.ErrParticipantExists
	case !errors.Is(err, domain.ErrParticipantNotFound):
		return domain.Participant{}, err
	}
	return s.store.CreateParticipant(ctx, domain.Participant{
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		QuizID:    in.QuizID,
		CreatedAt: s.now(),
	})
}

// DeleteParticipant removes only the registration; its submission becomes an orphan
// and drops off the leaderboard.
func (s *QuizService) DeleteParticipant(ctx context.Context, id int64) error {
	participant, err := s.store.GetParticipant(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteParticipant(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, participant.QuizID)
	return nil
}

// SubmitAnswer records one answer and returns the running submission.
func (s *QuizService) SubmitAnswer(ctx context.Context, ev AnswerEvent) (domain.Submission, error) {
	participant, err := s.participantOf(ctx, ev.ParticipantID, ev.QuizID)
	if err != nil {
		return domain.Submission{}, err
	}
	if s.opts.EnforceDeadline {
		if err := s.checkDeadline(ctx, participant); err != nil {
			return domain.Submission{}, err
		}
	}
	question, err := s.store.GetQuestion(ctx, ev.QuestionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if question.QuizID != ev.QuizID {
		return domain.Submission{}, domain.Invalid("questionId", "question does not belong to this quiz")
	}

	sub, err := s.aggregator.RecordAnswer(ctx, ev)
	if err != nil {
		return domain.Submission{}, err
	}
	s.notify(ctx, ev.QuizID)
	return sub, nil
}

// FinalizeRequest is the end-of-quiz payload. When RawAnswers is set the score is
// graded server-side from the quiz questions; otherwise Score (or the running score) is used.
type FinalizeRequest struct {
	ParticipantID  int64
	QuizID         int64
	RawAnswers     map[int64]string
	Score          *int
	TotalQuestions *int
	CompletionTime int
}

// Finalize writes the authoritative submission. Repeated calls update in place.
func (s *QuizService) Finalize(ctx context.Context, in FinalizeRequest) (domain.Submission, error) {
	if in.CompletionTime < 0 {
		return domain.Submission{}, domain.Invalid("completionTime", "must not be negative")
	}
	if in.Score != nil && *in.Score < 0 {
		return domain.Submission{}, domain.Invalid("score", "must not be negative")
	}
	if in.TotalQuestions != nil && *in.TotalQuestions < 0 {
		return domain.Submission{}, domain.Invalid("totalQuestions", "must not be negative")
	}
	if _, err := s.participantOf(ctx, in.ParticipantID, in.QuizID); err != nil {
		return domain.Submission{}, err
	}
	questions, err := s.store.ListQuestionsByQuiz(ctx, in.QuizID)
	if err != nil {
		return domain.Submission{}, err
	}

	final := FinalSubmission{
		ParticipantID:  in.ParticipantID,
		QuizID:         in.QuizID,
		TotalQuestions: len(questions),
		CompletionTime: in.CompletionTime,
	}
	if in.TotalQuestions != nil {
		final.TotalQuestions = *in.TotalQuestions
	}
	switch {
	case in.RawAnswers != nil:
		answers, score := Grade(questions, in.RawAnswers)
		final.Answers, final.Score = answers, &score
	case in.Score != nil:
		score := *in.Score
		final.Score = &score
	}

	sub, err := s.aggregator.Finalize(ctx, final)
	if err != nil {
		return domain.Submission{}, err
	}
	s.logger.Info("submission finalized",
		zap.Int64("participantId", sub.ParticipantID),
		zap.Int64("quizId", sub.QuizID),
		zap.Int("score", sub.Score))
	s.notify(ctx, in.QuizID)
	return sub, nil
}

func (s *QuizService) GetSubmission(ctx context.Context, participantID int64) (domain.Submission, error) {
	return s.store.GetSubmissionByParticipant(ctx, participantID)
}

// ResetSubmission deletes a participant's submission.
func (s *QuizService) ResetSubmission(ctx context.Context, participantID int64) error {
	sub, err := s.store.GetSubmissionByParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteSubmission(ctx, participantID); err != nil {
		return err
	}
	s.notify(ctx, sub.QuizID)
	return nil
}

func (s *QuizService) Leaderboard(ctx context.Context, quizID int64) ([]domain.LeaderboardEntry, error) {
	return s.leaderboard.Leaderboard(ctx, quizID)
}

func (s *QuizService) Stats(ctx context.Context, quizID int64) (domain.QuizStats, error) {
	return s.leaderboard.Stats(ctx, quizID)
}

// ExportCSV renders the leaderboard of a quiz as CSV.
func (s *QuizService) ExportCSV(ctx context.Context, quizID int64) (string, error) {
	entries, err := s.leaderboard.Leaderboard(ctx, quizID)
	if err != nil {
		return "", err
	}
	return ExportCSV(entries), nil
}

// SubscribeLeaderboard streams leaderboard updates of an existing quiz.
func (s *QuizService) SubscribeLeaderboard(ctx context.Context, quizID int64) (<-chan domain.LeaderboardUpdate, func(), error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return nil, nil, err
	}
	return s.hub.Subscribe(ctx, quizID)
}

// Snapshot returns the current leaderboard view of a quiz.
func (s *QuizService) Snapshot(ctx context.Context, quizID int64) (domain.LeaderboardUpdate, error) {
	return s.leaderboard.Snapshot(ctx, quizID)
}

// AdminStats returns per-quiz statistics for every quiz.
func (s *QuizService) AdminStats(ctx context.Context) ([]domain.AdminQuizStats, error) {
	quizzes, err := s.store.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AdminQuizStats, 0, len(quizzes))
	for _, quiz := range quizzes {
		stats, err := s.leaderboard.Stats(ctx, quiz.ID)
		if err != nil {
			return nil, err
		}
		count, err := s.store.CountQuestionsByQuiz(ctx, quiz.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.AdminQuizStats{
			QuizID:         quiz.ID,
			Title:          quiz.Title,
			QuizStats:      stats,
			TotalQuestions: count,
			CreatedAt:      quiz.CreatedAt,
		})
	}
	return out, nil
}

// QuizResults returns the detailed admin view of one quiz. Submissions whose
// participant is gone are left out.
func (s *QuizService) QuizResults(ctx context.Context, quizID int64) (domain.QuizResults, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizResults{}, err
	}
	questions, err := s.store.ListQuestionsByQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizResults{}, err
	}
	subs, err := s.store.ListSubmissionsByQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizResults{}, err
	}

	participants := make([]domain.ParticipantResult, 0, len(subs))
	for i := range subs {
		sub := subs[i]
		p, err := s.store.GetParticipant(ctx, sub.ParticipantID)
		if errors.Is(err, domain.ErrParticipantNotFound) {
			continue
		}
		if err != nil {
			return domain.QuizResults{}, err
		}
		participants = append(participants, domain.ParticipantResult{
			Participant: p,
			Submission:  &sub,
			Score:       sub.Score,
		})
	}
	return domain.QuizResults{
		Quiz:         quiz,
		Questions:    questions,
		Participants: participants,
		Stats:        ComputeStats(subs),
	}, nil
}

// participantOf loads a participant and checks it registered for quizID.
func (s *QuizService) participantOf(ctx context.Context, participantID, quizID int64) (domain.Participant, error) {
	participant, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return domain.Participant{}, err
	}
	if participant.QuizID != quizID {
		return domain.Participant{}, domain.Invalid("quizId", "participant is not registered for this quiz")
	}
	return participant, nil
}

func (s *QuizService) checkDeadline(ctx context.Context, participant domain.Participant) error {
	quiz, err := s.store.GetQuiz(ctx, participant.QuizID)
	if err != nil {
		return err
	}
	deadline := participant.CreatedAt.Add(time.Duration(quiz.TimeLimit)*time.Minute + s.opts.DeadlineGrace)
	if s.now().After(deadline) {
		return domain.ErrQuizExpired
	}
	return nil
}

// notify is best-effort: a failed broadcast never fails the write that caused it.
func (s *QuizService) notify(ctx context.Context, quizID int64) {
	if err := s.notifier.Notify(ctx, quizID); err != nil {
		s.logger.Warn("leaderboard notify failed", zap.Int64("quizId", quizID), zap.Error(err))
	}
}
