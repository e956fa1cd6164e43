package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/hlog"
	"gitlab.com/wheresmygrants/grantvotes/internal/export"
	"gitlab.com/wheresmygrants/grantvotes/internal/models"
)

func (routes *Routes) VotesRouter(r chi.Router) {
	// Write routes are rate limited per client IP.
	limited := r.With(httprate.Limit(
		routes.envConfig.VotesPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "Rate limit exceeded"})
		}),
	))
	limited.Post("/vote", routes.AppHandler(routes.PostVote))
	limited.Delete("/vote/{grantID}/{researcherID}", routes.AppHandler(routes.DeleteVote))

	r.Get("/vote/{grantID}/{researcherID}", routes.AppHandler(routes.GetVote))
	r.Get("/votes/{grantID}", routes.AppHandler(routes.GetGrantVotes))
	r.Get("/votes/researcher/{researcherID}", routes.AppHandler(routes.GetResearcherVotes))
	r.Get("/votes/top", routes.AppHandler(routes.GetTopGrants))
	r.Get("/votes/ratio/{grantID}", routes.AppHandler(routes.GetRatio))
	r.Get("/votes/trend/{grantID}", routes.AppHandler(routes.GetTrend))
	r.Get("/votes/export/json", routes.AppHandler(routes.ExportJSON))
	r.Get("/votes/export/csv", routes.AppHandler(routes.ExportCSV))
	r.Get("/researcher/{researcherID}/summary", routes.AppHandler(routes.GetResearcherSummary))
	r.Get("/health", routes.AppHandler(routes.GetHealth))
}

func grantIDParam(r *http.Request) (string, error) {
	return models.ValidateIdentifier(chi.URLParam(r, "grantID"), models.KindGrant)
}
func researcherIDParam(r *http.Request) (string, error) {
	return models.ValidateIdentifier(chi.URLParam(r, "researcherID"), models.KindResearcher)
}

func (routes *Routes) PostVote(w http.ResponseWriter, r *http.Request) AppError {
	var body struct {
		GrantID      string            `json:"grant_id"`
		ResearcherID string            `json:"researcher_id"`
		Action       models.VoteAction `json:"action"`
	}
	if err := parseJSONBody(r, &body); err != nil {
		return &ErrBadRequest{Cause: err, Motivation: "Invalid JSON body"}
	}
	grantID, err := models.ValidateIdentifier(body.GrantID, models.KindGrant)
	if err != nil {
		return appErrorFrom(err)
	}
	researcherID, err := models.ValidateIdentifier(body.ResearcherID, models.KindResearcher)
	if err != nil {
		return appErrorFrom(err)
	}

	err = routes.votes.Upsert(r.Context(), grantID, researcherID, body.Action)
	if err != nil {
		return appErrorFrom(err)
	}
	writeJSON(w, http.StatusOK, statusBody{Status: "success"})
	return nil
}

func (routes *Routes) DeleteVote(w http.ResponseWriter, r *http.Request) AppError {
	grantID, err := grantIDParam(r)
	if err != nil {
		return appErrorFrom(err)
	}
	researcherID, err := researcherIDParam(r)
	if err != nil {
		return appErrorFrom(err)
	}

	err = routes.votes.Delete(r.Context(), grantID, researcherID)
	if err != nil {
		return appErrorFrom(err)
	}
	writeJSON(w, http.StatusOK, statusBody{Status: "deleted"})
	return nil
}

func (routes *Routes) GetVote(w http.ResponseWriter, r *http.Request) AppError {
	grantID, err := grantIDParam(r)
	if err != nil {
		return appErrorFrom(err)
	}
	researcherID, err := researcherIDParam(r)
	if err != nil {
		return appErrorFrom(err)
	}

	vote, err := routes.votes.Get(r.Context(), grantID, researcherID)
	if err != nil {
		return appErrorFrom(err)
	}

	data := struct {
		GrantID      string             `json:"grant_id"`
		ResearcherID string             `json:"researcher_id"`
		Action       *models.VoteAction `json:"action"`
	}{
		GrantID:      grantID,
		ResearcherID: researcherID,
	}
	if vote != nil {
		data.Action = &vote.Action
	}
	writeJSON(w, http.StatusOK, data)
	return nil
}

func (routes *Routes) GetGrantVotes(w http.ResponseWriter, r *http.Request) AppError {
	grantID, err := grantIDParam(r)
	if err != nil {
		return appErrorFrom(err)
	}
	counts, err := routes.votes.CountsByGrant(r.Context(), grantID)
	if err != nil {
		return appErrorFrom(err)
	}
	writeJSON(w, http.StatusOK, counts)
	return nil
}

func (routes *Routes) GetResearcherVotes(w http.ResponseWriter, r *http.Request) AppError {
	researcherID, err := researcherIDParam(r)
	if err != nil {
		return appErrorFrom(err)
	}
	votes, err := routes.votes.ListByResearcher(r.Context(), researcherID)
	if err != nil {
		return appErrorFrom(err)
	}
	writeJSON(w, http.StatusOK, votes)
	return nil
}

func (routes *Routes) GetTopGrants(w http.ResponseWriter, r *http.Request) AppError {
	limit := 10
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			return &ErrBadRequest{Cause: models.ErrInvalidLimit}
		}
		limit = n
	}
	grants, err := routes.votes.TopGrants(r.Context(), limit)
	if err != nil {
		return appErrorFrom(err)
	}
	writeJSON(w, http.StatusOK, grants)
	return nil
}

func (routes *Routes) GetRatio(w http.ResponseWriter, r *http.Request) AppError {
	grantID, err := grantIDParam(r)
	if err != nil {
		return appErrorFrom(err)
	}
	counts, err := routes.votes.CountsByGrant(r.Context(), grantID)
	if err != nil {
		return appErrorFrom(err)
	}
	writeJSON(w, http.StatusOK, counts.Ratio())
	return nil
}

func (routes *Routes) GetTrend(w http.ResponseWriter, r *http.Request) AppError {
	grantID, err := grantIDParam(r)
	if err != nil {
		return appErrorFrom(err)
	}
	trend, err := routes.votes.Trend(r.Context(), grantID)
	if err != nil {
		return appErrorFrom(err)
	}
	writeJSON(w, http.StatusOK, trend)
	return nil
}

func (routes *Routes) GetResearcherSummary(w http.ResponseWriter, r *http.Request) AppError {
	researcherID, err := researcherIDParam(r)
	if err != nil {
		return appErrorFrom(err)
	}
	summary, err := routes.votes.ResearcherSummary(r.Context(), researcherID)
	if err != nil {
		return appErrorFrom(err)
	}
	writeJSON(w, http.StatusOK, summary)
	return nil
}

func (routes *Routes) GetHealth(w http.ResponseWriter, r *http.Request) AppError {
	snapshot, err := routes.votes.Health(r.Context())
	if err != nil {
		return appErrorFrom(err)
	}
	writeJSON(w, http.StatusOK, snapshot)
	return nil
}

func (routes *Routes) ExportJSON(w http.ResponseWriter, r *http.Request) AppError {
	w.Header().Set("Content-Type", "application/json")
	err := export.WriteJSON(r.Context(), w, routes.votes)
	if err != nil {
		// The stream already started; nothing left to do but log.
		hlog.FromRequest(r).Error().Err(err).Msg("JSON export aborted")
	}
	return nil
}

func (routes *Routes) ExportCSV(w http.ResponseWriter, r *http.Request) AppError {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="votes.csv"`)
	err := export.WriteCSV(r.Context(), w, routes.votes)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("CSV export aborted")
	}
	return nil
}
