package http

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"quizboard/internal/app"
	"quizboard/internal/metrics"
)

// Options configure the HTTP surface.
type Options struct {
	// PublicOrigin prefixes join URLs; empty means the request's scheme and host.
	PublicOrigin string
	// RefreshInterval is the fallback push period of the live leaderboard stream.
	RefreshInterval time.Duration
}

// Handler serves the REST and websocket API of the quiz service.
type Handler struct {
	service  *app.QuizService
	logger   *zap.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
	opts     Options
	upgrader websocket.Upgrader
}

func NewHandler(service *app.QuizService, logger *zap.Logger, m *metrics.Metrics, opts Options) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 5 * time.Second
	}
	return &Handler{
		service:  service,
		logger:   logger,
		metrics:  m,
		validate: newValidator(),
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Router wires every route. Numeric path parameters are constrained so that
// /quizzes/qr/{qrCode} never collides with /quizzes/{id}.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID, accessLog(h.logger), observe(h.metrics))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/quizzes", h.createQuiz).Methods(http.MethodPost)
	api.HandleFunc("/quizzes", h.listQuizzes).Methods(http.MethodGet)
	api.HandleFunc("/quizzes/qr/{qrCode}", h.getQuizByQRCode).Methods(http.MethodGet)
	api.HandleFunc("/quizzes/{id:[0-9]+}", h.getQuiz).Methods(http.MethodGet)
	api.HandleFunc("/quizzes/{id:[0-9]+}", h.deleteQuiz).Methods(http.MethodDelete)
	api.HandleFunc("/quizzes/{id:[0-9]+}/qr-code", h.generateQRCode).Methods(http.MethodPost)
	api.HandleFunc("/quizzes/{quizId:[0-9]+}/questions", h.listQuestions).Methods(http.MethodGet)

	api.HandleFunc("/questions", h.createQuestion).Methods(http.MethodPost)
	api.HandleFunc("/questions/{id:[0-9]+}", h.updateQuestion).Methods(http.MethodPut)
	api.HandleFunc("/questions/{id:[0-9]+}", h.deleteQuestion).Methods(http.MethodDelete)

	api.HandleFunc("/participants", h.registerParticipant).Methods(http.MethodPost)
	api.HandleFunc("/participants/{id:[0-9]+}", h.deleteParticipant).Methods(http.MethodDelete)
	api.HandleFunc("/participants/{participantId:[0-9]+}/submission", h.getSubmission).Methods(http.MethodGet)
	api.HandleFunc("/participants/{participantId:[0-9]+}/submission", h.resetSubmission).Methods(http.MethodDelete)

	api.HandleFunc("/submissions", h.finalizeSubmission).Methods(http.MethodPost, http.MethodPut)
	api.HandleFunc("/submit-answer", h.submitAnswer).Methods(http.MethodPost)

	api.HandleFunc("/quizzes/{quizId:[0-9]+}/leaderboard", h.leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/quizzes/{quizId:[0-9]+}/leaderboard/ws", h.streamLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/quizzes/{quizId:[0-9]+}/stats", h.stats).Methods(http.MethodGet)
	api.HandleFunc("/quizzes/{quizId:[0-9]+}/export", h.export).Methods(http.MethodGet)

	api.HandleFunc("/admin/stats", h.adminStats).Methods(http.MethodGet)
	api.HandleFunc("/admin/quizzes/{quizId:[0-9]+}/results", h.quizResults).Methods(http.MethodGet)

	return r
}
