package domain

import "time"

// DefaultPoints is awarded for a question when no explicit value is set.
const DefaultPoints = 10

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionReorder        QuestionType = "reorder"
	QuestionSort           QuestionType = "sort"
	QuestionMatch          QuestionType = "match"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionFillBlank,
		QuestionReorder, QuestionSort, QuestionMatch:
		return true
	}
	return false
}

// Quiz is a named set of timed questions, joined through its QR token.
type Quiz struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	TimeLimit int       `json:"timeLimit"` // minutes
	IsActive  bool      `json:"isActive"`
	QRCode    *string   `json:"qrCode"`
	CreatedAt time.Time `json:"createdAt"`
}

// QuizWithQuestions embeds the ordered question list of a quiz.
type QuizWithQuestions struct {
	Quiz
	Questions []Question `json:"questions"`
}

// Question belongs to a quiz; OrderIndex defines display order.
type Question struct {
	ID            int64        `json:"id"`
	QuizID        int64        `json:"quizId"`
	QuestionText  string       `json:"questionText"`
	QuestionType  QuestionType `json:"questionType"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correctAnswer"`
	Points        int          `json:"points"`
	OrderIndex    int          `json:"orderIndex"`
}

// QuestionPatch carries a partial question update. Nil fields are left untouched.
type QuestionPatch struct {
	QuizID        *int64
	QuestionText  *string
	QuestionType  *QuestionType
	Options       *[]string
	CorrectAnswer *string
	Points        *int
	OrderIndex    *int
}

// Apply returns q with the non-nil patch fields copied over.
func (p QuestionPatch) Apply(q Question) Question {
	if p.QuizID != nil {
		q.QuizID = *p.QuizID
	}
	if p.QuestionText != nil {
		q.QuestionText = *p.QuestionText
	}
	if p.QuestionType != nil {
		q.QuestionType = *p.QuestionType
	}
	if p.Options != nil {
		q.Options = *p.Options
	}
	if p.CorrectAnswer != nil {
		q.CorrectAnswer = *p.CorrectAnswer
	}
	if p.Points != nil {
		q.Points = *p.Points
	}
	if p.OrderIndex != nil {
		q.OrderIndex = *p.OrderIndex
	}
	return q
}

// Participant is a registration of one person for one quiz.
type Participant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	QuizID    int64     `json:"quizId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Answer is the recorded outcome for a single question. Points are stored with
// the answer so the running score does not depend on the order of events.
type Answer struct {
	Value     string `json:"value,omitempty"`
	IsCorrect bool   `json:"isCorrect"`
	Points    int    `json:"points"`
}

// Answers maps question ids to recorded answers.
type Answers map[int64]Answer

// Score sums the points of every correct answer.
func (a Answers) Score() int {
	total := 0
	for _, answer := range a {
		if answer.IsCorrect {
			total += answer.Points
		}
	}
	return total
}

// Clone returns an independent copy of the map.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Submission is the evolving, then final, record of one participant's answers.
type Submission struct {
	ID             int64     `json:"id"`
	ParticipantID  int64     `json:"participantId"`
	QuizID         int64     `json:"quizId"`
	Answers        Answers   `json:"answers"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	CompletionTime int       `json:"completionTime"` // seconds
	SubmittedAt    time.Time `json:"submittedAt"`
}

// LeaderboardEntry is a ranked view of a participant; never persisted.
type LeaderboardEntry struct {
	ParticipantID  int64  `json:"participantId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Score          int    `json:"score"`
	CompletionTime int    `json:"completionTime"`
	Rank           int    `json:"rank"`
	Accuracy       int    `json:"accuracy"`
}

// QuizStats summarises the submissions of a quiz.
type QuizStats struct {
	TotalParticipants int `json:"totalParticipants"`
	AverageScore      int `json:"averageScore"`
	HighestScore      int `json:"highestScore"`
}

// AdminQuizStats is one row of the admin dashboard.
type AdminQuizStats struct {
	QuizID int64  `json:"quizId"`
	Title  string `json:"title"`
	QuizStats
	TotalQuestions int       `json:"totalQuestions"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ParticipantResult joins a participant with its submission.
type ParticipantResult struct {
	Participant
	Submission *Submission `json:"submission"`
	Score      int         `json:"score"`
}

// QuizResults is the detailed admin view of a quiz.
type QuizResults struct {
	Quiz         Quiz                `json:"quiz"`
	Questions    []Question          `json:"questions"`
	Participants []ParticipantResult `json:"participants"`
	Stats        QuizStats           `json:"stats"`
}

// LeaderboardUpdate is pushed to live subscribers of a quiz.
type LeaderboardUpdate struct {
	QuizID    int64              `json:"quizId"`
	Entries   []LeaderboardEntry `json:"entries"`
	Stats     QuizStats          `json:"stats"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
