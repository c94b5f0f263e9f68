package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"feedback-portal/internal/domain"
	httpinfra "feedback-portal/internal/infra/http"
	"feedback-portal/internal/usecase/dashboard"
	"feedback-portal/internal/usecase/session"
)

const maxBodyBytes = 1 << 20

// Sessions описывает операции входа и выхода.
type Sessions interface {
	Register(ctx context.Context, reg domain.Registration) (domain.Role, error)
	Login(ctx context.Context, creds domain.Credentials) (domain.Session, error)
	Resolve(ctx context.Context, id string) (domain.Session, error)
	Logout(ctx context.Context, id string) error
}

// Submissions принимает отзывы.
type Submissions interface {
	Submit(ctx context.Context, sess *domain.Session, sub domain.FeedbackSubmission) (domain.FeedbackSubmission, error)
}

// Dashboard строит представление дашборда тренера.
type Dashboard interface {
	View(ctx context.Context, sess domain.Session, state domain.ViewState) (domain.DashboardView, error)
	Reload(ctx context.Context, sess domain.Session) error
}

// Server обслуживает JSON API портала.
type Server struct {
	sessions     Sessions
	submissions  Submissions
	dashboard    Dashboard
	log          zerolog.Logger
	cookieName   string
	cookieSecure bool
}

// Option настраивает Server.
type Option func(*Server)

// WithLogger задаёт логгер.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithCookie задаёт имя cookie сессии и флаг Secure.
func WithCookie(name string, secure bool) Option {
	return func(s *Server) {
		s.cookieName = name
		s.cookieSecure = secure
	}
}

// New создаёт API сервер.
func New(sessions Sessions, submissions Submissions, dash Dashboard, opts ...Option) *Server {
	s := &Server{
		sessions:    sessions,
		submissions: submissions,
		dashboard:   dash,
		log:         zerolog.Nop(),
		cookieName:  "feedback_session",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type registerResponse struct {
	Message   string      `json:"message"`
	Role      domain.Role `json:"role"`
	LoginPath string      `json:"loginPath"`
}

type sessionResponse struct {
	Session   string         `json:"session,omitempty"`
	User      domain.Account `json:"user"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Redirect  string         `json:"redirect,omitempty"`
}

type submitResponse struct {
	Status      string `json:"status"`
	SubmittedAt string `json:"submittedAt"`
	Redirect    string `json:"redirect"`
}

type fetchErrorResponse struct {
	State domain.LoadState `json:"state"`
	Error string           `json:"error"`
}

type violationsResponse struct {
	Errors domain.Violations `json:"errors"`
}

// Mount регистрирует маршруты API.
func (s *Server) Mount(r chi.Router) {
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(httpinfra.SessionMiddleware(s.sessions, s.cookieName))

		api.Post("/auth/register", s.handleRegister)
		api.Post("/auth/login", s.handleLogin)
		api.Post("/auth/logout", s.handleLogout)
		api.Get("/auth/me", s.handleMe)

		api.Post("/feedback", s.handleFeedback)

		api.Group(func(trainer chi.Router) {
			trainer.Use(httpinfra.RequireRole(domain.RoleTrainer))
			trainer.Get("/dashboard", s.handleDashboard)
			trainer.Post("/dashboard/reload", s.handleReload)
		})
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if !decode(w, r, &reg) {
		return
	}
	role, err := s.sessions.Register(r.Context(), reg)
	if err != nil {
		s.writeServiceError(w, r, err, "Error while creating account.")
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, registerResponse{
		Message:   "Account created successfully!",
		Role:      role,
		LoginPath: role.LoginPath(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if !decode(w, r, &creds) {
		return
	}
	sess, err := s.sessions.Login(r.Context(), creds)
	if err != nil {
		if errors.Is(err, domain.ErrRoleMismatch) {
			role, _ := domain.ParseRole(string(creds.Role))
			httpinfra.WriteError(w, http.StatusForbidden, errors.New(session.MismatchMessage(role)))
			return
		}
		s.writeServiceError(w, r, err, "Login failed. Please try again.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httpinfra.WriteJSON(w, http.StatusOK, sessionResponse{
		Session:   sess.ID,
		User:      sess.Account,
		ExpiresAt: sess.ExpiresAt,
		Redirect:  landingPath(sess.Account.Role),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := httpinfra.SessionID(r, s.cookieName)
	if err := s.sessions.Logout(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, "Something went wrong. Try again later.")
		return
	}
	if id != "" {
		if err := s.dashboard.Reload(r.Context(), domain.Session{ID: id}); err != nil {
			s.log.Warn().Err(err).Msg("httpapi: не удалось сбросить снимок дашборда при выходе")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpinfra.SessionFrom(r.Context())
	if !ok {
		httpinfra.WriteError(w, http.StatusUnauthorized, domain.ErrSessionNotFound)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, sessionResponse{User: sess.Account, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var sub domain.FeedbackSubmission
	if !decode(w, r, &sub) {
		return
	}
	var sessPtr *domain.Session
	if sess, ok := httpinfra.SessionFrom(r.Context()); ok {
		sessPtr = &sess
	}
	sent, err := s.submissions.Submit(r.Context(), sessPtr, sub)
	if err != nil {
		s.writeServiceError(w, r, err, "Submission failed: Unknown error")
		return
	}
	httpinfra.WriteJSON(w, http.StatusCreated, submitResponse{
		Status:      "ok",
		SubmittedAt: sent.SubmittedAt,
		Redirect:    "/thank-you",
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, _ := httpinfra.SessionFrom(r.Context())
	q := r.URL.Query()
	state := domain.ParseViewState(q.Get("rating"), q.Get("q"), q.Get("sort"))
	s.writeView(w, r, sess, state)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	sess, _ := httpinfra.SessionFrom(r.Context())
	if err := s.dashboard.Reload(r.Context(), sess); err != nil {
		s.writeServiceError(w, r, err, dashboard.FetchFailedMessage)
		return
	}
	q := r.URL.Query()
	state := domain.ParseViewState(q.Get("rating"), q.Get("q"), q.Get("sort"))
	s.writeView(w, r, sess, state)
}

func (s *Server) writeView(w http.ResponseWriter, r *http.Request, sess domain.Session, state domain.ViewState) {
	view, err := s.dashboard.View(r.Context(), sess, state)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: не удалось загрузить отзывы")
		httpinfra.WriteJSON(w, http.StatusBadGateway, fetchErrorResponse{State: domain.LoadStateError, Error: dashboard.FetchFailedMessage})
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, view)
}

// writeServiceError переводит ошибку сервиса в HTTP ответ.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		vErr  *domain.ValidationError
		upErr *domain.UpstreamError
	)
	switch {
	case errors.As(err, &vErr):
		httpinfra.WriteJSON(w, http.StatusUnprocessableEntity, violationsResponse{Errors: vErr.Violations})
	case errors.As(err, &upErr):
		status := http.StatusBadGateway
		if upErr.Status >= 400 && upErr.Status < 500 {
			status = upErr.Status
		}
		msg := upErr.Message
		if msg == "" {
			msg = fallback
		}
		s.log.Warn().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: ошибка внешнего API")
		httpinfra.WriteError(w, status, errors.New(msg))
	case errors.Is(err, domain.ErrSessionNotFound):
		httpinfra.WriteError(w, http.StatusUnauthorized, domain.ErrSessionNotFound)
	default:
		s.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: внутренняя ошибка")
		httpinfra.WriteError(w, http.StatusInternalServerError, errors.New(fallback))
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}
	return true
}

func landingPath(role domain.Role) string {
	if role == domain.RoleTrainer {
		return "/dashboard"
	}
	return "/feedback"
}
