package http

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quizboard/internal/app"
	"quizboard/internal/domain"
	"quizboard/internal/infra/memory"
	"quizboard/internal/qr"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	service := app.NewQuizService(app.Dependencies{
		Store:  memory.NewStore(),
		Locker: memory.NewSubmissionLocker(),
		QR:     qr.NewRenderer(),
	}, app.Options{})
	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = time.Hour
	}
	server := httptest.NewServer(NewHandler(service, nil, nil, opts).Router())
	t.Cleanup(server.Close)
	return server
}

func call(t *testing.T, server *httptest.Server, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeInto[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

// seedQuiz creates a quiz with two 10-point questions and one participant.
func seedQuiz(t *testing.T, server *httptest.Server) (domain.Quiz, []domain.Question, domain.Participant) {
	t.Helper()
	status, data := call(t, server, http.MethodPost, "/api/quizzes", map[string]interface{}{"title": "Capitals", "timeLimit": 10})
	require.Equal(t, http.StatusOK, status, string(data))
	quiz := decodeInto[domain.Quiz](t, data)

	var questions []domain.Question
	for i, q := range []struct{ text, answer string }{{"Capital of France?", "Paris"}, {"Capital of Japan?", "Tokyo"}} {
		status, data := call(t, server, http.MethodPost, "/api/questions", map[string]interface{}{
			"quizId":        quiz.ID,
			"questionText":  q.text,
			"questionType":  "fill_blank",
			"correctAnswer": q.answer,
			"orderIndex":    i,
		})
		require.Equal(t, http.StatusOK, status, string(data))
		questions = append(questions, decodeInto[domain.Question](t, data))
	}

	status, data = call(t, server, http.MethodPost, "/api/participants", map[string]interface{}{
		"name": "Ada", "email": "ada@example.com", "phone": "555-0100", "quizId": quiz.ID,
	})
	require.Equal(t, http.StatusOK, status, string(data))
	return quiz, questions, decodeInto[domain.Participant](t, data)
}

func TestQuizLifecycle(t *testing.T) {
	server := newTestServer(t, Options{})
	quiz, questions, _ := seedQuiz(t, server)

	assert.True(t, quiz.IsActive)
	assert.Nil(t, quiz.QRCode)

	status, data := call(t, server, http.MethodGet, "/api/quizzes/"+itoa(quiz.ID), nil)
	require.Equal(t, http.StatusOK, status)
	full := decodeInto[domain.QuizWithQuestions](t, data)
	require.Len(t, full.Questions, 2)
	assert.Equal(t, questions[0].ID, full.Questions[0].ID)
	assert.Equal(t, 10, full.Questions[0].Points)

	status, data = call(t, server, http.MethodGet, "/api/quizzes", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeInto[[]domain.Quiz](t, data), 1)

	status, _ = call(t, server, http.MethodDelete, "/api/quizzes/"+itoa(quiz.ID), nil)
	assert.Equal(t, http.StatusOK, status)

	status, data = call(t, server, http.MethodGet, "/api/quizzes/"+itoa(quiz.ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
	body := decodeInto[errorResponse](t, data)
	assert.Equal(t, "Quiz not found", body.Message)
}

func TestCreateQuizValidation(t *testing.T) {
	server := newTestServer(t, Options{})

	status, data := call(t, server, http.MethodPost, "/api/quizzes", map[string]interface{}{"timeLimit": 10})
	assert.Equal(t, http.StatusBadRequest, status)
	body := decodeInto[errorResponse](t, data)
	assert.Equal(t, "Invalid quiz data", body.Message)
	assert.Contains(t, body.Error, "title")

	status, _ = call(t, server, http.MethodPost, "/api/questions", map[string]interface{}{
		"quizId": 1, "questionText": "?", "questionType": "essay", "correctAnswer": "x",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestQuestionUpdateAndDelete(t *testing.T) {
	server := newTestServer(t, Options{})
	quiz, questions, _ := seedQuiz(t, server)

	status, data := call(t, server, http.MethodPut, "/api/questions/"+itoa(questions[1].ID), map[string]interface{}{"orderIndex": -1, "points": 20})
	require.Equal(t, http.StatusOK, status, string(data))
	updated := decodeInto[domain.Question](t, data)
	assert.Equal(t, 20, updated.Points)
	assert.Equal(t, "Capital of Japan?", updated.QuestionText)

	status, data = call(t, server, http.MethodGet, "/api/quizzes/"+itoa(quiz.ID)+"/questions", nil)
	require.Equal(t, http.StatusOK, status)
	listed := decodeInto[[]domain.Question](t, data)
	require.Len(t, listed, 2)
	assert.Equal(t, questions[1].ID, listed[0].ID)

	status, _ = call(t, server, http.MethodDelete, "/api/questions/"+itoa(questions[0].ID), nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = call(t, server, http.MethodDelete, "/api/questions/"+itoa(questions[0].ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = call(t, server, http.MethodPut, "/api/questions/999", map[string]interface{}{"points": 5})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestParticipantRegistrationErrors(t *testing.T) {
	server := newTestServer(t, Options{})
	quiz, _, _ := seedQuiz(t, server)

	status, data := call(t, server, http.MethodPost, "/api/participants", map[string]interface{}{
		"name": "Ada again", "email": "ada@example.com", "phone": "555-0101", "quizId": quiz.ID,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, decodeInto[errorResponse](t, data).Error, "already registered")

	status, _ = call(t, server, http.MethodPost, "/api/participants", map[string]interface{}{
		"name": "Bob", "email": "bob@example.com", "phone": "555-0102", "quizId": 999,
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, server, http.MethodPost, "/api/participants", map[string]interface{}{
		"name": "Bob", "email": "not-an-email", "phone": "555-0102", "quizId": quiz.ID,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	inactive := false
	status, data = call(t, server, http.MethodPost, "/api/quizzes", map[string]interface{}{"title": "Closed", "timeLimit": 5, "isActive": inactive})
	require.Equal(t, http.StatusOK, status)
	closed := decodeInto[domain.Quiz](t, data)
	status, _ = call(t, server, http.MethodPost, "/api/participants", map[string]interface{}{
		"name": "Bob", "email": "bob@example.com", "phone": "555-0102", "quizId": closed.ID,
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSubmitAnswerAndLeaderboard(t *testing.T) {
	server := newTestServer(t, Options{})
	quiz, questions, participant := seedQuiz(t, server)

	for _, q := range questions {
		status, data := call(t, server, http.MethodPost, "/api/submit-answer", map[string]interface{}{
			"participantId": participant.ID, "quizId": quiz.ID, "questionId": q.ID, "isCorrect": q.ID == questions[0].ID,
		})
		require.Equal(t, http.StatusOK, status, string(data))
		resp := decodeInto[submitAnswerResponse](t, data)
		assert.True(t, resp.Success)
		assert.Equal(t, 10, resp.Score)
		assert.NotEmpty(t, resp.UpdatedAt)
	}

	status, _ := call(t, server, http.MethodPost, "/api/submit-answer", map[string]interface{}{
		"participantId": participant.ID, "quizId": quiz.ID, "questionId": questions[0].ID,
	})
	assert.Equal(t, http.StatusBadRequest, status, "isCorrect is required")

	status, data := call(t, server, http.MethodGet, "/api/quizzes/"+itoa(quiz.ID)+"/leaderboard", nil)
	require.Equal(t, http.StatusOK, status)
	entries := decodeInto[[]domain.LeaderboardEntry](t, data)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 10, entries[0].Score)

	status, data = call(t, server, http.MethodGet, "/api/participants/"+itoa(participant.ID)+"/submission", nil)
	require.Equal(t, http.StatusOK, status)
	sub := decodeInto[domain.Submission](t, data)
	assert.Len(t, sub.Answers, 2)
	assert.Equal(t, 0, sub.TotalQuestions)
}

func TestFinalizeAcceptsStringEncodedAnswers(t *testing.T) {
	server := newTestServer(t, Options{})
	quiz, questions, participant := seedQuiz(t, server)

	encoded := `{"` + itoa(questions[0].ID) + `":" paris ","` + itoa(questions[1].ID) + `":"Kyoto"}`
	status, data := call(t, server, http.MethodPost, "/api/submissions", map[string]interface{}{
		"participantId": participant.ID, "quizId": quiz.ID, "answers": encoded, "completionTime": 95,
	})
	require.Equal(t, http.StatusOK, status, string(data))
	sub := decodeInto[domain.Submission](t, data)
	assert.Equal(t, 10, sub.Score)
	assert.Equal(t, 2, sub.TotalQuestions)
	assert.Equal(t, 95, sub.CompletionTime)

	status, data = call(t, server, http.MethodPut, "/api/submissions", map[string]interface{}{
		"participantId": participant.ID, "quizId": quiz.ID, "score": 20, "completionTime": 90,
	})
	require.Equal(t, http.StatusOK, status, string(data))
	again := decodeInto[domain.Submission](t, data)
	assert.Equal(t, sub.ID, again.ID)
	assert.Equal(t, 20, again.Score)

	status, data = call(t, server, http.MethodGet, "/api/quizzes/"+itoa(quiz.ID)+"/stats", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.QuizStats{TotalParticipants: 1, AverageScore: 20, HighestScore: 20}, decodeInto[domain.QuizStats](t, data))

	status, _ = call(t, server, http.MethodDelete, "/api/participants/"+itoa(participant.ID)+"/submission", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = call(t, server, http.MethodGet, "/api/participants/"+itoa(participant.ID)+"/submission", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestExportCSV(t *testing.T) {
	server := newTestServer(t, Options{})
	quiz, _, participant := seedQuiz(t, server)

	status, _ := call(t, server, http.MethodPost, "/api/submissions", map[string]interface{}{
		"participantId": participant.ID, "quizId": quiz.ID, "score": 10, "totalQuestions": 2, "completionTime": 30,
	})
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(server.URL + "/api/quizzes/" + itoa(quiz.ID) + "/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="quiz-`+itoa(quiz.ID)+`-results.csv"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "Rank,Name,Email,Score,Completion Time (seconds),Accuracy (%)\n"+
		`1,"Ada","ada@example.com",10,30,50`, string(body))
}

func TestGenerateQRCodeUsesPublicOrigin(t *testing.T) {
	server := newTestServer(t, Options{PublicOrigin: "https://quiz.example.com"})
	quiz, _, _ := seedQuiz(t, server)

	status, data := call(t, server, http.MethodPost, "/api/quizzes/"+itoa(quiz.ID)+"/qr-code", nil)
	require.Equal(t, http.StatusOK, status, string(data))
	result := decodeInto[app.QRCodeResult](t, data)
	assert.True(t, strings.HasPrefix(result.QRCode, "quiz-"+itoa(quiz.ID)+"-"))
	assert.True(t, strings.HasPrefix(result.QRCodeDataURL, "data:image/png;base64,"))
	require.NotNil(t, result.Quiz.QRCode)
	assert.Equal(t, result.QRCode, *result.Quiz.QRCode)

	status, data = call(t, server, http.MethodGet, "/api/quizzes/qr/"+result.QRCode, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, quiz.ID, decodeInto[domain.Quiz](t, data).ID)

	status, _ = call(t, server, http.MethodGet, "/api/quizzes/qr/quiz-0-0", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdminViews(t *testing.T) {
	server := newTestServer(t, Options{})
	quiz, _, participant := seedQuiz(t, server)
	status, _ := call(t, server, http.MethodPost, "/api/submissions", map[string]interface{}{
		"participantId": participant.ID, "quizId": quiz.ID, "score": 20, "completionTime": 30,
	})
	require.Equal(t, http.StatusOK, status)

	status, data := call(t, server, http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, status)
	stats := decodeInto[[]domain.AdminQuizStats](t, data)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].TotalQuestions)
	assert.Equal(t, 20, stats[0].HighestScore)

	status, data = call(t, server, http.MethodGet, "/api/admin/quizzes/"+itoa(quiz.ID)+"/results", nil)
	require.Equal(t, http.StatusOK, status)
	results := decodeInto[domain.QuizResults](t, data)
	require.Len(t, results.Participants, 1)
	assert.Equal(t, 20, results.Participants[0].Score)

	status, _ = call(t, server, http.MethodGet, "/api/admin/quizzes/999/results", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthAndMetrics(t *testing.T) {
	server := newTestServer(t, Options{})

	status, data := call(t, server, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", string(data))

	call(t, server, http.MethodGet, "/api/quizzes", nil)
	status, data = call(t, server, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), `http_requests_total{endpoint="/api/quizzes",method="GET",status="200"} 1`)
}

func TestRequestIDIsEchoed(t *testing.T) {
	server := newTestServer(t, Options{})

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get(requestIDHeader))

	resp, err = http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

func TestLeaderboardStreamPushesUpdates(t *testing.T) {
	server := newTestServer(t, Options{})
	quiz, questions, participant := seedQuiz(t, server)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/quizzes/" + itoa(quiz.ID) + "/leaderboard/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	initial := readUpdate(t, conn)
	assert.Equal(t, quiz.ID, initial.QuizID)
	assert.Empty(t, initial.Entries)

	status, data := call(t, server, http.MethodPost, "/api/submit-answer", map[string]interface{}{
		"participantId": participant.ID, "quizId": quiz.ID, "questionId": questions[0].ID, "isCorrect": true,
	})
	require.Equal(t, http.StatusOK, status, string(data))

	pushed := readUpdate(t, conn)
	require.Len(t, pushed.Entries, 1)
	assert.Equal(t, 10, pushed.Entries[0].Score)
	assert.Equal(t, 1, pushed.Stats.TotalParticipants)
}

func TestLeaderboardStreamUnknownQuiz(t *testing.T) {
	server := newTestServer(t, Options{})

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/quizzes/999/leaderboard/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestParseRawAnswers(t *testing.T) {
	got, err := parseRawAnswers(json.RawMessage(`{"1":"Paris","2":["b","a"],"3":true}`))
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "Paris", 2: `["b","a"]`, 3: "true"}, got)

	got, err = parseRawAnswers(json.RawMessage(`"{\"4\":\"x\"}"`))
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{4: "x"}, got)

	got, err = parseRawAnswers(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseRawAnswers(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseRawAnswers(json.RawMessage(`{"q1":"x"}`))
	assert.True(t, domain.IsValidation(err))

	_, err = parseRawAnswers(json.RawMessage(`[1,2]`))
	assert.True(t, domain.IsValidation(err))
}

func readUpdate(t *testing.T, conn *websocket.Conn) domain.LeaderboardUpdate {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg := decodeInto[outboundMessage[domain.LeaderboardUpdate]](t, data)
	require.Equal(t, "leaderboard", msg.Type)
	return msg.Payload
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
