package memory

import (
	"context"
	"sort"
	"sync"

	"quizboard/internal/domain"
)

// Store is an in-memory implementation of app.Store. Primary-key lookups hit a map;
// secondary-key lookups (qr code, email+quiz, participant on submission) scan.
type Store struct {
	mu sync.RWMutex

	quizzes      map[int64]domain.Quiz
	questions    map[int64]domain.Question
	participants map[int64]domain.Participant
	submissions  map[int64]domain.Submission

	nextQuizID        int64
	nextQuestionID    int64
	nextParticipantID int64
	nextSubmissionID  int64
}

func NewStore() *Store {
	return &Store{
		quizzes:           make(map[int64]domain.Quiz),
		questions:         make(map[int64]domain.Question),
		participants:      make(map[int64]domain.Participant),
		submissions:       make(map[int64]domain.Submission),
		nextQuizID:        1,
		nextQuestionID:    1,
		nextParticipantID: 1,
		nextSubmissionID:  1,
	}
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz.ID = s.nextQuizID
	s.nextQuizID++
	quiz.QRCode = nil
	s.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (s *Store) GetQuiz(_ context.Context, id int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) GetQuizByQRCode(_ context.Context, qrCode string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, quiz := range s.quizzes {
		if quiz.QRCode != nil && *quiz.QRCode == qrCode {
			return quiz, nil
		}
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		out = append(out, quiz)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateQuizQRCode(_ context.Context, id int64, qrCode string) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	code := qrCode
	quiz.QRCode = &code
	s.quizzes[id] = quiz
	return quiz, nil
}

func (s *Store) DeleteQuiz(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	return nil
}

func (s *Store) CreateQuestion(_ context.Context, question domain.Question) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	question.ID = s.nextQuestionID
	s.nextQuestionID++
	question.Options = cloneOptions(question.Options)
	s.questions[question.ID] = question
	return question, nil
}

func (s *Store) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	question.Options = cloneOptions(question.Options)
	return question, nil
}

func (s *Store) ListQuestionsByQuiz(_ context.Context, quizID int64) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, question := range s.questions {
		if question.QuizID == quizID {
			question.Options = cloneOptions(question.Options)
			out = append(out, question)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CountQuestionsByQuiz(_ context.Context, quizID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, question := range s.questions {
		if question.QuizID == quizID {
			count++
		}
	}
	return count, nil
}

func (s *Store) UpdateQuestion(_ context.Context, id int64, patch domain.QuestionPatch) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	question, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	question = patch.Apply(question)
	question.Options = cloneOptions(question.Options)
	s.questions[id] = question
	return question, nil
}

func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *Store) CreateParticipant(_ context.Context, participant domain.Participant) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participantByEmailLocked(participant.Email, participant.QuizID); ok {
		return domain.Participant{}, domain.ErrParticipantExists
	}
	participant.ID = s.nextParticipantID
	s.nextParticipantID++
	s.participants[participant.ID] = participant
	return participant, nil
}

func (s *Store) GetParticipant(_ context.Context, id int64) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participant, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return participant, nil
}

func (s *Store) GetParticipantByEmailAndQuiz(_ context.Context, email string, quizID int64) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participant, ok := s.participantByEmailLocked(email, quizID)
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return participant, nil
}

func (s *Store) ListParticipantsByQuiz(_ context.Context, quizID int64) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, 0)
	for _, participant := range s.participants {
		if participant.QuizID == quizID {
			out = append(out, participant)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteParticipant(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[id]; !ok {
		return domain.ErrParticipantNotFound
	}
	delete(s.participants, id)
	return nil
}

func (s *Store) participantByEmailLocked(email string, quizID int64) (domain.Participant, bool) {
	for _, participant := range s.participants {
		if participant.Email == email && participant.QuizID == quizID {
			return participant, true
		}
	}
	return domain.Participant{}, false
}

func (s *Store) CreateSubmission(_ context.Context, submission domain.Submission) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissionByParticipantLocked(submission.ParticipantID); ok {
		return domain.Submission{}, domain.ErrSubmissionExists
	}
	submission.ID = s.nextSubmissionID
	s.nextSubmissionID++
	submission.Answers = submission.Answers.Clone()
	s.submissions[submission.ID] = submission
	return withClonedAnswers(submission), nil
}

func (s *Store) GetSubmissionByParticipant(_ context.Context, participantID int64) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	submission, ok := s.submissionByParticipantLocked(participantID)
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return withClonedAnswers(submission), nil
}

func (s *Store) ListSubmissionsByQuiz(_ context.Context, quizID int64) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Submission, 0)
	for _, submission := range s.submissions {
		if submission.QuizID == quizID {
			out = append(out, withClonedAnswers(submission))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateSubmission replaces the stored row with the same id.
func (s *Store) UpdateSubmission(_ context.Context, submission domain.Submission) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[submission.ID]; !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	submission.Answers = submission.Answers.Clone()
	s.submissions[submission.ID] = submission
	return withClonedAnswers(submission), nil
}

func (s *Store) DeleteSubmission(_ context.Context, participantID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission, ok := s.submissionByParticipantLocked(participantID)
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	delete(s.submissions, submission.ID)
	return nil
}

func (s *Store) submissionByParticipantLocked(participantID int64) (domain.Submission, bool) {
	for _, submission := range s.submissions {
		if submission.ParticipantID == participantID {
			return submission, true
		}
	}
	return domain.Submission{}, false
}

func withClonedAnswers(submission domain.Submission) domain.Submission {
	submission.Answers = submission.Answers.Clone()
	return submission
}

func cloneOptions(options []string) []string {
	if options == nil {
		return nil
	}
	out := make([]string, len(options))
	copy(out, options)
	return out
}
