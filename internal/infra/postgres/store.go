package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quizboard/internal/domain"
)

const uniqueViolation = "23505"

// Store implements app.Store on PostgreSQL. Answers are kept as JSONB,
// question options as TEXT[].
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const quizColumns = `id, title, time_limit, is_active, qr_code, created_at`

func scanQuiz(row rowScanner) (domain.Quiz, error) {
	var q domain.Quiz
	err := row.Scan(&q.ID, &q.Title, &q.TimeLimit, &q.IsActive, &q.QRCode, &q.CreatedAt)
	return q, err
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO quizzes (title, time_limit, is_active) VALUES ($1, $2, $3) RETURNING `+quizColumns,
		quiz.Title, quiz.TimeLimit, quiz.IsActive)
	created, err := scanQuiz(row)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	return created, nil
}

func (s *Store) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	quiz, err := scanQuiz(s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, id))
	if err != nil {
		return domain.Quiz{}, notFound(err, domain.ErrQuizNotFound, "load quiz")
	}
	return quiz, nil
}

func (s *Store) GetQuizByQRCode(ctx context.Context, qrCode string) (domain.Quiz, error) {
	quiz, err := scanQuiz(s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE qr_code=$1`, qrCode))
	if err != nil {
		return domain.Quiz{}, notFound(err, domain.ErrQuizNotFound, "load quiz by qr code")
	}
	return quiz, nil
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Quiz, 0)
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}

func (s *Store) UpdateQuizQRCode(ctx context.Context, id int64, qrCode string) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx, `UPDATE quizzes SET qr_code=$2 WHERE id=$1 RETURNING `+quizColumns, id, qrCode)
	quiz, err := scanQuiz(row)
	if err != nil {
		return domain.Quiz{}, notFound(err, domain.ErrQuizNotFound, "update qr code")
	}
	return quiz, nil
}

func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM quizzes WHERE id=$1`, id, domain.ErrQuizNotFound)
}

const questionColumns = `id, quiz_id, question_text, question_type, COALESCE(options, '{}'), correct_answer, points, order_index`

func scanQuestion(row rowScanner) (domain.Question, error) {
	var q domain.Question
	var qType string
	err := row.Scan(&q.ID, &q.QuizID, &q.QuestionText, &qType, &q.Options, &q.CorrectAnswer, &q.Points, &q.OrderIndex)
	q.QuestionType = domain.QuestionType(qType)
	return q, err
}

func (s *Store) CreateQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO questions (quiz_id, question_text, question_type, options, correct_answer, points, order_index)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+questionColumns,
		question.QuizID, question.QuestionText, string(question.QuestionType), question.Options,
		question.CorrectAnswer, question.Points, question.OrderIndex)
	created, err := scanQuestion(row)
	if err != nil {
		return domain.Question{}, fmt.Errorf("insert question: %w", err)
	}
	return created, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	question, err := scanQuestion(s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, id))
	if err != nil {
		return domain.Question{}, notFound(err, domain.ErrQuestionNotFound, "load question")
	}
	return question, nil
}

func (s *Store) ListQuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE quiz_id=$1 ORDER BY order_index, id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Question, 0)
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, question)
	}
	return out, rows.Err()
}

func (s *Store) CountQuestionsByQuiz(ctx context.Context, quizID int64) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM questions WHERE quiz_id=$1`, quizID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, id int64, patch domain.QuestionPatch) (domain.Question, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Question{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanQuestion(tx.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return domain.Question{}, notFound(err, domain.ErrQuestionNotFound, "load question")
	}
	next := patch.Apply(current)

	row := tx.QueryRow(ctx,
		`UPDATE questions SET quiz_id=$2, question_text=$3, question_type=$4, options=$5,
		 correct_answer=$6, points=$7, order_index=$8 WHERE id=$1 RETURNING `+questionColumns,
		id, next.QuizID, next.QuestionText, string(next.QuestionType), next.Options,
		next.CorrectAnswer, next.Points, next.OrderIndex)
	updated, err := scanQuestion(row)
	if err != nil {
		return domain.Question{}, fmt.Errorf("update question: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Question{}, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM questions WHERE id=$1`, id, domain.ErrQuestionNotFound)
}

const participantColumns = `id, name, email, phone, quiz_id, created_at`

func scanParticipant(row rowScanner) (domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.QuizID, &p.CreatedAt)
	return p, err
}

func (s *Store) CreateParticipant(ctx context.Context, participant domain.Participant) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO participants (name, email, phone, quiz_id) VALUES ($1, $2, $3, $4) RETURNING `+participantColumns,
		participant.Name, participant.Email, participant.Phone, participant.QuizID)
	created, err := scanParticipant(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Participant{}, domain.ErrParticipantExists
		}
		return domain.Participant{}, fmt.Errorf("insert participant: %w", err)
	}
	return created, nil
}

func (s *Store) GetParticipant(ctx context.Context, id int64) (domain.Participant, error) {
	p, err := scanParticipant(s.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants WHERE id=$1`, id))
	if err != nil {
		return domain.Participant{}, notFound(err, domain.ErrParticipantNotFound, "load participant")
	}
	return p, nil
}

func (s *Store) GetParticipantByEmailAndQuiz(ctx context.Context, email string, quizID int64) (domain.Participant, error) {
	p, err := scanParticipant(s.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE email=$1 AND quiz_id=$2`, email, quizID))
	if err != nil {
		return domain.Participant{}, notFound(err, domain.ErrParticipantNotFound, "load participant by email")
	}
	return p, nil
}

func (s *Store) ListParticipantsByQuiz(ctx context.Context, quizID int64) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+participantColumns+` FROM participants WHERE quiz_id=$1 ORDER BY id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeleteParticipant(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM participants WHERE id=$1`, id, domain.ErrParticipantNotFound)
}

const submissionColumns = `id, participant_id, quiz_id, answers, score, total_questions, completion_time, submitted_at`

func scanSubmission(row rowScanner) (domain.Submission, error) {
	var sub domain.Submission
	var raw []byte
	if err := row.Scan(&sub.ID, &sub.ParticipantID, &sub.QuizID, &raw, &sub.Score,
		&sub.TotalQuestions, &sub.CompletionTime, &sub.SubmittedAt); err != nil {
		return domain.Submission{}, err
	}
	answers, err := decodeAnswers(raw)
	if err != nil {
		return domain.Submission{}, err
	}
	sub.Answers = answers
	return sub, nil
}

func (s *Store) CreateSubmission(ctx context.Context, submission domain.Submission) (domain.Submission, error) {
	raw, err := encodeAnswers(submission.Answers)
	if err != nil {
		return domain.Submission{}, err
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO submissions (participant_id, quiz_id, answers, score, total_questions, completion_time, submitted_at)
		 VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7) RETURNING `+submissionColumns,
		submission.ParticipantID, submission.QuizID, string(raw), submission.Score,
		submission.TotalQuestions, submission.CompletionTime, submission.SubmittedAt)
	created, err := scanSubmission(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Submission{}, domain.ErrSubmissionExists
		}
		return domain.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return created, nil
}

func (s *Store) GetSubmissionByParticipant(ctx context.Context, participantID int64) (domain.Submission, error) {
	sub, err := scanSubmission(s.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE participant_id=$1`, participantID))
	if err != nil {
		return domain.Submission{}, notFound(err, domain.ErrSubmissionNotFound, "load submission")
	}
	return sub, nil
}

func (s *Store) ListSubmissionsByQuiz(ctx context.Context, quizID int64) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE quiz_id=$1 ORDER BY id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSubmission(ctx context.Context, submission domain.Submission) (domain.Submission, error) {
	raw, err := encodeAnswers(submission.Answers)
	if err != nil {
		return domain.Submission{}, err
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE submissions SET quiz_id=$2, answers=$3::jsonb, score=$4, total_questions=$5,
		 completion_time=$6, submitted_at=$7 WHERE id=$1 RETURNING `+submissionColumns,
		submission.ID, submission.QuizID, string(raw), submission.Score,
		submission.TotalQuestions, submission.CompletionTime, submission.SubmittedAt)
	updated, err := scanSubmission(row)
	if err != nil {
		return domain.Submission{}, notFound(err, domain.ErrSubmissionNotFound, "update submission")
	}
	return updated, nil
}

func (s *Store) DeleteSubmission(ctx context.Context, participantID int64) error {
	return s.deleteByID(ctx, `DELETE FROM submissions WHERE participant_id=$1`, participantID, domain.ErrSubmissionNotFound)
}

func (s *Store) deleteByID(ctx context.Context, query string, id int64, missing error) error {
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return missing
	}
	return nil
}

func encodeAnswers(answers domain.Answers) ([]byte, error) {
	if answers == nil {
		answers = domain.Answers{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	return raw, nil
}

func decodeAnswers(raw []byte) (domain.Answers, error) {
	answers := domain.Answers{}
	if len(raw) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return answers, nil
}

func notFound(err, sentinel error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
