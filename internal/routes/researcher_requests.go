package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"gitlab.com/wheresmygrants/grantvotes/internal/email"
	"gitlab.com/wheresmygrants/grantvotes/internal/models"
	"gitlab.com/wheresmygrants/grantvotes/internal/utils"
)

func (routes *Routes) ResearcherRequestsRouter(r chi.Router) {
	r.Post("/researcher-request", routes.AppHandler(routes.PostResearcherRequest))
	r.Get("/researcher-requests", routes.AppHandler(routes.GetResearcherRequests))
	r.Delete("/researcher-request/{openalexID}", routes.AppHandler(routes.DeleteResearcherRequest))
}

func (routes *Routes) PostResearcherRequest(w http.ResponseWriter, r *http.Request) AppError {
	var body struct {
		OpenalexID     string `json:"openalex_id"`
		DisplayName    string `json:"display_name"`
		Institution    string `json:"institution"`
		WorksCount     int    `json:"works_count"`
		RequesterEmail string `json:"requester_email"`
	}
	if err := parseJSONBody(r, &body); err != nil {
		return &ErrBadRequest{Cause: err, Motivation: "Invalid JSON body"}
	}
	openalexID, err := models.ValidateIdentifier(body.OpenalexID, models.KindGrant)
	if err != nil {
		return appErrorFrom(err)
	}
	if body.DisplayName == "" {
		return &ErrBadRequest{Motivation: "display_name is required"}
	}
	if body.RequesterEmail != "" && !utils.ValidateEmail(body.RequesterEmail) {
		return appErrorFrom(models.ErrInvalidEmail)
	}

	req := &models.ResearcherRequest{
		OpenalexID:     openalexID,
		DisplayName:    body.DisplayName,
		Institution:    body.Institution,
		WorksCount:     body.WorksCount,
		RequesterEmail: body.RequesterEmail,
	}
	created, err := routes.requests.Create(r.Context(), req)
	if err != nil {
		return appErrorFrom(err)
	}
	if !created {
		writeJSON(w, http.StatusOK, statusBody{Status: "already_requested"})
		return nil
	}

	subject, mailBody := email.ResearcherRequestMessage(
		req.DisplayName, req.OpenalexID, req.RequesterEmail,
		routes.dashboardStats(r.Context()))
	routes.notifService.Send(subject, mailBody)

	writeJSON(w, http.StatusOK, statusBody{Status: "requested"})
	return nil
}

func (routes *Routes) GetResearcherRequests(w http.ResponseWriter, r *http.Request) AppError {
	reqs, err := routes.requests.List(r.Context())
	if err != nil {
		return appErrorFrom(err)
	}
	writeJSON(w, http.StatusOK, reqs)
	return nil
}

func (routes *Routes) DeleteResearcherRequest(w http.ResponseWriter, r *http.Request) AppError {
	openalexID, err := models.ValidateIdentifier(chi.URLParam(r, "openalexID"), models.KindGrant)
	if err != nil {
		return appErrorFrom(err)
	}
	err = routes.requests.Delete(r.Context(), openalexID)
	if err != nil {
		return appErrorFrom(err)
	}
	writeJSON(w, http.StatusOK, statusBody{Status: "deleted"})
	return nil
}
