package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"safepass-compliance/internal/app"
	"safepass-compliance/internal/domain"
)

// API exposes the quiz service over JSON.
type API struct {
	service *app.QuizService
	auth    *Authenticator
	ws      *WSHandler
	logger  *zap.Logger
}

func NewAPI(service *app.QuizService, auth *Authenticator, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service: service,
		auth:    auth,
		ws:      NewWSHandler(service, logger),
		logger:  logger,
	}
}

// Routes builds the router. Everything except /healthz requires a bearer token.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, a.requestLogger, middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(a.auth.Middleware)

		v1.Route("/quiz", func(qr chi.Router) {
			qr.Post("/start", a.startQuiz)
			qr.Get("/", a.currentQuiz)
			qr.Delete("/", a.abandonQuiz)
			qr.Post("/answers", a.answer)
			qr.Post("/submit", a.submit)
		})
		v1.Route("/me", func(mr chi.Router) {
			mr.Get("/status", a.status)
			mr.Put("/profile", a.putProfile)
			mr.Get("/attempts", a.attempts)
			mr.Get("/compliance", a.compliance)
		})
		v1.Get("/leaderboard", a.leaderboard)
		v1.Get("/leaderboard/ws", a.ws.ServeWS)
	})
	return r
}

func (a *API) startQuiz(w http.ResponseWriter, r *http.Request) {
	instance, resumed, err := a.service.Start(r.Context(), DriverID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	code := http.StatusCreated
	if resumed {
		code = http.StatusOK
	}
	writeJSON(w, code, newQuizView(instance, resumed))
}

func (a *API) currentQuiz(w http.ResponseWriter, r *http.Request) {
	instance, err := a.service.Current(r.Context(), DriverID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizView(instance, true))
}

func (a *API) abandonQuiz(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Abandon(r.Context(), DriverID(r.Context())); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SelectedOptionIndex == nil {
		writeError(w, http.StatusBadRequest, "selectedOptionIndex required")
		return
	}
	outcome, err := a.service.Answer(r.Context(), DriverID(r.Context()), *req.SelectedOptionIndex)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.Submit(r.Context(), DriverID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	status, err := a.service.Status(r.Context(), DriverID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) putProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	profile, err := a.service.RegisterProfile(r.Context(), domain.DriverProfile{
		ID:         DriverID(r.Context()),
		Name:       req.Name,
		EmployeeID: req.EmployeeID,
		Region:     domain.Region(req.Region),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) attempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := a.service.History(r.Context(), DriverID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (a *API) compliance(w http.ResponseWriter, r *http.Request) {
	records, report, err := a.service.Compliance(r.Context(), DriverID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if report.Tampered {
		a.logger.Error("compliance integrity check failed",
			zap.String("driver_id", DriverID(r.Context())),
			zap.Error(report.Err()),
		)
	}
	writeJSON(w, http.StatusOK, newComplianceView(records, report))
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	region, err := a.regionParam(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}
	lb, err := a.service.Leaderboard(r.Context(), region, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// regionParam reads ?region= and falls back to the caller's own region.
func (a *API) regionParam(r *http.Request) (domain.Region, error) {
	if raw := r.URL.Query().Get("region"); raw != "" {
		return domain.ParseRegion(raw), nil
	}
	status, err := a.service.Status(r.Context(), DriverID(r.Context()))
	if err != nil {
		return "", err
	}
	return status.Profile.Region, nil
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("driver_id", DriverID(r.Context())),
			zap.Error(err),
		)
		writeError(w, code, http.StatusText(code))
		return
	}
	writeError(w, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDriver),
		errors.Is(err, domain.ErrInvalidAnswerIndex),
		errors.Is(err, domain.ErrUnknownRegion),
		errors.Is(err, domain.ErrInvalidQuestion):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuizAlreadyComplete),
		errors.Is(err, domain.ErrQuizIncomplete),
		errors.Is(err, domain.ErrDuplicateSubmission):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoQuestionsAvailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorPayload{Message: msg})
}
