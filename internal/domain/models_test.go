package domain

import "testing"

func TestAnswersScoreCountsCorrectOnly(t *testing.T) {
	answers := Answers{
		1: {IsCorrect: true, Points: 10},
		2: {IsCorrect: false, Points: 10},
		3: {IsCorrect: true, Points: 25},
	}
	if got := answers.Score(); got != 35 {
		t.Fatalf("expected 35, got %d", got)
	}
	if got := Answers(nil).Score(); got != 0 {
		t.Fatalf("expected 0 for nil answers, got %d", got)
	}
}

func TestAnswersCloneIsIndependent(t *testing.T) {
	original := Answers{1: {IsCorrect: true, Points: 10}}
	clone := original.Clone()
	clone[2] = Answer{IsCorrect: true, Points: 10}
	if len(original) != 1 {
		t.Fatalf("clone mutation leaked into original")
	}
	if Answers(nil).Clone() == nil {
		t.Fatalf("clone of nil must be a usable map")
	}
}

func TestQuestionPatchApply(t *testing.T) {
	q := Question{ID: 1, QuizID: 1, QuestionText: "old", QuestionType: QuestionTrueFalse, Points: 10, OrderIndex: 0}
	text := "new"
	points := 20
	options := []string{"a", "b"}

	got := QuestionPatch{QuestionText: &text, Points: &points, Options: &options}.Apply(q)
	if got.QuestionText != "new" || got.Points != 20 || len(got.Options) != 2 {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.ID != 1 || got.QuestionType != QuestionTrueFalse || got.OrderIndex != 0 {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}

func TestQuestionTypeValid(t *testing.T) {
	for _, typ := range []QuestionType{QuestionMultipleChoice, QuestionTrueFalse, QuestionFillBlank, QuestionReorder, QuestionSort, QuestionMatch} {
		if !typ.Valid() {
			t.Fatalf("%s should be valid", typ)
		}
	}
	if QuestionType("essay").Valid() {
		t.Fatalf("essay should be invalid")
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsValidation(Invalid("title", "is required")) || !IsValidation(ErrParticipantExists) || !IsValidation(ErrQuizExpired) {
		t.Fatalf("expected client-side errors to classify as validation")
	}
	if IsValidation(ErrQuizNotFound) || !IsNotFound(ErrSubmissionNotFound) {
		t.Fatalf("not-found errors misclassified")
	}
	if got := Invalid("title", "is required").Error(); got != "title: is required" {
		t.Fatalf("unexpected message %q", got)
	}
}
