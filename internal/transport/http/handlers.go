package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"quizboard/internal/app"
	"quizboard/internal/domain"
)

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid quiz data", err)
		return
	}
	quiz, err := h.service.CreateQuiz(r.Context(), app.NewQuiz{
		Title:     req.Title,
		TimeLimit: req.TimeLimit,
		IsActive:  req.IsActive,
	})
	if err != nil {
		h.fail(w, r, "Invalid quiz data", err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListQuizzes(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to fetch quizzes", err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "Invalid quiz id", err)
		return
	}
	quiz, err := h.service.GetQuiz(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to fetch quiz", err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) getQuizByQRCode(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuizByQRCode(r.Context(), mux.Vars(r)["qrCode"])
	if err != nil {
		h.fail(w, r, "Failed to fetch quiz", err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "Invalid quiz id", err)
		return
	}
	if err := h.service.DeleteQuiz(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete quiz", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Quiz deleted successfully"})
}

func (h *Handler) generateQRCode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "Invalid quiz id", err)
		return
	}
	result, err := h.service.GenerateQRCode(r.Context(), id, h.origin(r))
	if err != nil {
		h.fail(w, r, "Failed to generate QR code", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// origin is the configured public origin, else the scheme and host the request came in on.
func (h *Handler) origin(r *http.Request) string {
	if h.opts.PublicOrigin != "" {
		return h.opts.PublicOrigin
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid question data", err)
		return
	}
	question, err := h.service.CreateQuestion(r.Context(), app.NewQuestion{
		QuizID:        req.QuizID,
		QuestionText:  req.QuestionText,
		QuestionType:  domain.QuestionType(req.QuestionType),
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Points:        req.Points,
		OrderIndex:    req.OrderIndex,
	})
	if err != nil {
		h.fail(w, r, "Invalid question data", err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "quizId")
	if err != nil {
		h.fail(w, r, "Invalid quiz id", err)
		return
	}
	questions, err := h.service.ListQuestions(r.Context(), quizID)
	if err != nil {
		h.fail(w, r, "Failed to fetch questions", err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "Invalid question id", err)
		return
	}
	var req updateQuestionRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid question data", err)
		return
	}
	question, err := h.service.UpdateQuestion(r.Context(), id, req.patch())
	if err != nil {
		h.fail(w, r, "Invalid question data", err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "Invalid question id", err)
		return
	}
	if err := h.service.DeleteQuestion(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete question", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Question deleted successfully"})
}

func (h *Handler) registerParticipant(w http.ResponseWriter, r *http.Request) {
	var req registerParticipantRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid participant data", err)
		return
	}
	participant, err := h.service.RegisterParticipant(r.Context(), app.NewParticipant{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		QuizID: req.QuizID,
	})
	if err != nil {
		h.fail(w, r, "Invalid participant data", err)
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

func (h *Handler) deleteParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, "Invalid participant id", err)
		return
	}
	if err := h.service.DeleteParticipant(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete participant", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Participant deleted successfully"})
}

// finalizeSubmission serves both POST and PUT /submissions; each upserts.
func (h *Handler) finalizeSubmission(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid submission data", err)
		return
	}
	answers, err := parseRawAnswers(req.Answers)
	if err != nil {
		h.fail(w, r, "Invalid submission data", err)
		return
	}
	sub, err := h.service.Finalize(r.Context(), app.FinalizeRequest{
		ParticipantID:  req.ParticipantID,
		QuizID:         req.QuizID,
		RawAnswers:     answers,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		CompletionTime: req.CompletionTime,
	})
	if err != nil {
		h.fail(w, r, "Failed to save submission", err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) getSubmission(w http.ResponseWriter, r *http.Request) {
	participantID, err := pathID(r, "participantId")
	if err != nil {
		h.fail(w, r, "Invalid participant id", err)
		return
	}
	sub, err := h.service.GetSubmission(r.Context(), participantID)
	if err != nil {
		h.fail(w, r, "Failed to fetch submission", err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) resetSubmission(w http.ResponseWriter, r *http.Request) {
	participantID, err := pathID(r, "participantId")
	if err != nil {
		h.fail(w, r, "Invalid participant id", err)
		return
	}
	if err := h.service.ResetSubmission(r.Context(), participantID); err != nil {
		h.fail(w, r, "Failed to delete submission", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Submission deleted successfully"})
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Missing required fields", err)
		return
	}
	sub, err := h.service.SubmitAnswer(r.Context(), app.AnswerEvent{
		ParticipantID: req.ParticipantID,
		QuizID:        req.QuizID,
		QuestionID:    req.QuestionID,
		IsCorrect:     *req.IsCorrect,
		Points:        req.Points,
	})
	if err != nil {
		h.fail(w, r, "Failed to submit answer", err)
		return
	}
	h.metrics.AnswersRecorded.WithLabelValues(strconv.FormatBool(*req.IsCorrect)).Inc()
	writeJSON(w, http.StatusOK, submitAnswerResponse{
		Success:   true,
		Score:     sub.Score,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "quizId")
	if err != nil {
		h.fail(w, r, "Invalid quiz id", err)
		return
	}
	entries, err := h.service.Leaderboard(r.Context(), quizID)
	if err != nil {
		h.fail(w, r, "Failed to fetch leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "quizId")
	if err != nil {
		h.fail(w, r, "Invalid quiz id", err)
		return
	}
	stats, err := h.service.Stats(r.Context(), quizID)
	if err != nil {
		h.fail(w, r, "Failed to fetch quiz stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "quizId")
	if err != nil {
		h.fail(w, r, "Invalid quiz id", err)
		return
	}
	csv, err := h.service.ExportCSV(r.Context(), quizID)
	if err != nil {
		h.fail(w, r, "Failed to export results", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="quiz-`+strconv.FormatInt(quizID, 10)+`-results.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(csv))
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.AdminStats(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to fetch admin stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) quizResults(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r, "quizId")
	if err != nil {
		h.fail(w, r, "Invalid quiz id", err)
		return
	}
	results, err := h.service.QuizResults(r.Context(), quizID)
	if err != nil {
		h.fail(w, r, "Failed to fetch quiz results", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
