package http

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"quizboard/internal/domain"
)

type validatorErrors = validator.ValidationErrors

func newValidator() *validator.Validate {
	v := validator.New()
	// report json field names instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describeTag(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be at least " + param
	case "oneof":
		return "must be one of: " + param
	default:
		return "failed " + tag + " validation"
	}
}

type createQuizRequest struct {
	Title     string `json:"title" validate:"required"`
	TimeLimit int    `json:"timeLimit" validate:"required,gt=0"`
	IsActive  *bool  `json:"isActive"`
}

type createQuestionRequest struct {
	QuizID        int64    `json:"quizId" validate:"required"`
	QuestionText  string   `json:"questionText" validate:"required"`
	QuestionType  string   `json:"questionType" validate:"required,oneof=multiple_choice true_false fill_blank reorder sort match"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required"`
	Points        *int     `json:"points" validate:"omitempty,gt=0"`
	OrderIndex    *int     `json:"orderIndex" validate:"omitempty,gte=0"`
}

type updateQuestionRequest struct {
	QuizID        *int64    `json:"quizId"`
	QuestionText  *string   `json:"questionText"`
	QuestionType  *string   `json:"questionType"`
	Options       *[]string `json:"options"`
	CorrectAnswer *string   `json:"correctAnswer"`
	Points        *int      `json:"points"`
	OrderIndex    *int      `json:"orderIndex"`
}

func (r updateQuestionRequest) patch() domain.QuestionPatch {
	p := domain.QuestionPatch{
		QuizID:        r.QuizID,
		QuestionText:  r.QuestionText,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		Points:        r.Points,
		OrderIndex:    r.OrderIndex,
	}
	if r.QuestionType != nil {
		t := domain.QuestionType(*r.QuestionType)
		p.QuestionType = &t
	}
	return p
}

type registerParticipantRequest struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone" validate:"required"`
	QuizID int64  `json:"quizId" validate:"required"`
}

type finalizeRequest struct {
	ParticipantID  int64           `json:"participantId" validate:"required"`
	QuizID         int64           `json:"quizId" validate:"required"`
	Answers        json.RawMessage `json:"answers"`
	Score          *int            `json:"score" validate:"omitempty,gte=0"`
	TotalQuestions *int            `json:"totalQuestions" validate:"omitempty,gte=0"`
	CompletionTime int             `json:"completionTime" validate:"gte=0"`
}

type submitAnswerRequest struct {
	ParticipantID int64 `json:"participantId" validate:"required"`
	QuizID        int64 `json:"quizId" validate:"required"`
	QuestionID    int64 `json:"questionId" validate:"required"`
	IsCorrect     *bool `json:"isCorrect" validate:"required"`
	Points        int   `json:"points"`
}

type submitAnswerResponse struct {
	Success   bool   `json:"success"`
	Score     int    `json:"score"`
	UpdatedAt string `json:"updatedAt"`
}

// parseRawAnswers accepts the answers field either as an object keyed by question id
// or as a JSON string containing that object. Non-string values (e.g. the ordered
// items of a reorder question) are kept as their compact JSON text.
// A missing or null field yields nil.
func parseRawAnswers(raw json.RawMessage) (map[int64]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, domain.Invalid("answers", "malformed string")
		}
		if strings.TrimSpace(encoded) == "" {
			return nil, nil
		}
		raw = []byte(encoded)
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, domain.Invalid("answers", "must be an object keyed by question id")
	}
	out := make(map[int64]string, len(values))
	for key, value := range values {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, domain.Invalid("answers", fmt.Sprintf("invalid question id %q", key))
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			out[id] = s
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, value); err != nil {
			return nil, domain.Invalid("answers", fmt.Sprintf("invalid answer for question %d", id))
		}
		out[id] = compact.String()
	}
	return out, nil
}
