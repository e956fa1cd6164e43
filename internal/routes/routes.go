package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"gitlab.com/wheresmygrants/grantvotes/internal/db"
	"gitlab.com/wheresmygrants/grantvotes/internal/models"
	"gitlab.com/wheresmygrants/grantvotes/internal/render"
)

type Routes struct {
	envConfig     *models.EnvConfig
	votes         models.VoteRepository
	subscriptions models.SubscriptionRepository
	requests      models.ResearcherRequestRepository
	notifService  models.NotificationService
	tmpls         *render.Templates
	logger        zerolog.Logger
}

func NewRouter(config *models.EnvConfig, database *db.SharedDB, logger zerolog.Logger, notifService models.NotificationService, tmpls *render.Templates) chi.Router {
	routes := &Routes{
		envConfig:     config,
		votes:         database.Votes(),
		subscriptions: database.Subscriptions(),
		requests:      database.ResearcherRequests(),
		notifService:  notifService,
		tmpls:         tmpls,
		logger:        logger,
	}
	return routes.buildRouter()
}

func (routes *Routes) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(1 * time.Minute))
	r.Use(hlog.NewHandler(routes.logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Dur("duration", duration).
			Msg("Request served")
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   routes.envConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	routes.VotesRouter(r)
	routes.SubscriptionsRouter(r)
	routes.ResearcherRequestsRouter(r)

	return r
}

// AppError is a handler failure that knows its own HTTP shape.
type AppError interface {
	error
	Respond(w http.ResponseWriter)
}

type ErrBadRequest struct {
	Cause      error
	Motivation string
}

func (e *ErrBadRequest) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Motivation
}
func (e *ErrBadRequest) Respond(w http.ResponseWriter) {
	motivation := e.Motivation
	if motivation == "" && e.Cause != nil {
		motivation = e.Cause.Error()
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Error: motivation})
}

type ErrNotFound struct {
	Cause error
	Thing string
}

func (e *ErrNotFound) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Thing + " not found"
}
func (e *ErrNotFound) Respond(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: e.Thing + " not found"})
}

type ErrInternal struct {
	Cause   error
	Message string
}

func (e *ErrInternal) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}
func (e *ErrInternal) Respond(w http.ResponseWriter) {
	// The cause stays in the logs.
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
}

func (routes *Routes) AppHandler(handler func(w http.ResponseWriter, r *http.Request) AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aerr := handler(w, r)
		if aerr == nil {
			return
		}
		hlog.FromRequest(r).Error().
			Str("request_id", middleware.GetReqID(r.Context())).
			Err(aerr).
			Msg("Request failed")
		aerr.Respond(w)
	}
}

// appErrorFrom maps domain sentinel errors onto the HTTP taxonomy.
func appErrorFrom(err error) AppError {
	switch {
	case errors.Is(err, models.ErrInvalidIdentifier),
		errors.Is(err, models.ErrInvalidAction),
		errors.Is(err, models.ErrInvalidLimit),
		errors.Is(err, models.ErrInvalidEmail):
		return &ErrBadRequest{Cause: err}
	case errors.Is(err, models.ErrVoteNotFound):
		return &ErrNotFound{Cause: err, Thing: "Vote"}
	case errors.Is(err, models.ErrRequestNotFound):
		return &ErrNotFound{Cause: err, Thing: "Researcher request"}
	default:
		return &ErrInternal{Cause: err}
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type statusBody struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func parseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
