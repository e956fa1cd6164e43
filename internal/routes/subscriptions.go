package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gitlab.com/wheresmygrants/grantvotes/internal/email"
	"gitlab.com/wheresmygrants/grantvotes/internal/models"
	"gitlab.com/wheresmygrants/grantvotes/internal/utils"
)

func (routes *Routes) SubscriptionsRouter(r chi.Router) {
	r.Post("/subscribe", routes.AppHandler(routes.PostSubscribe))
	r.Get("/subscribe/status/{researcherName}", routes.AppHandler(routes.GetSubscriptionStatus))
	r.Post("/unsubscribe", routes.AppHandler(routes.PostUnsubscribe))
	r.Get("/unsubscribe/{researcherName}", routes.GetUnsubscribePage)
}

type subscriptionBody struct {
	ResearcherName string `json:"researcher_name"`
	Email          string `json:"email"`
}

func (routes *Routes) parseSubscription(r *http.Request) (name, addr string, aerr AppError) {
	var body subscriptionBody
	if err := parseJSONBody(r, &body); err != nil {
		return "", "", &ErrBadRequest{Cause: err, Motivation: "Invalid JSON body"}
	}
	name, err := models.ValidateIdentifier(body.ResearcherName, models.KindResearcher)
	if err != nil {
		return "", "", appErrorFrom(err)
	}
	if !utils.ValidateEmail(body.Email) {
		return "", "", appErrorFrom(models.ErrInvalidEmail)
	}
	return name, body.Email, nil
}

func (routes *Routes) PostSubscribe(w http.ResponseWriter, r *http.Request) AppError {
	name, addr, aerr := routes.parseSubscription(r)
	if aerr != nil {
		return aerr
	}

	created, err := routes.subscriptions.Create(r.Context(), name, addr)
	if err != nil {
		return appErrorFrom(err)
	}
	if !created {
		writeJSON(w, http.StatusOK, statusBody{Status: "already_subscribed"})
		return nil
	}

	subject, body := email.SubscriptionMessage(name, addr, routes.dashboardStats(r.Context()))
	routes.notifService.Send(subject, body)

	writeJSON(w, http.StatusOK, statusBody{Status: "subscribed"})
	return nil
}

func (routes *Routes) GetSubscriptionStatus(w http.ResponseWriter, r *http.Request) AppError {
	name, err := models.ValidateIdentifier(chi.URLParam(r, "researcherName"), models.KindResearcher)
	if err != nil {
		return appErrorFrom(err)
	}
	addr := r.URL.Query().Get("email")
	if !utils.ValidateEmail(addr) {
		return appErrorFrom(models.ErrInvalidEmail)
	}

	subscribed, err := routes.subscriptions.Exists(r.Context(), name, addr)
	if err != nil {
		return appErrorFrom(err)
	}
	writeJSON(w, http.StatusOK, struct {
		ResearcherName string `json:"researcher_name"`
		Email          string `json:"email"`
		Subscribed     bool   `json:"subscribed"`
	}{
		ResearcherName: name,
		Email:          utils.MaskEmail(addr),
		Subscribed:     subscribed,
	})
	return nil
}

func (routes *Routes) PostUnsubscribe(w http.ResponseWriter, r *http.Request) AppError {
	name, addr, aerr := routes.parseSubscription(r)
	if aerr != nil {
		return aerr
	}

	deleted, err := routes.subscriptions.Delete(r.Context(), name, addr)
	if err != nil {
		return appErrorFrom(err)
	}
	status := "unsubscribed"
	if !deleted {
		status = "not_subscribed"
	}
	writeJSON(w, http.StatusOK, statusBody{Status: status})
	return nil
}

// GetUnsubscribePage serves the HTML confirmation linked from
// notification emails. It is the one non-JSON route.
func (routes *Routes) GetUnsubscribePage(w http.ResponseWriter, r *http.Request) {
	name, err := models.ValidateIdentifier(chi.URLParam(r, "researcherName"), models.KindResearcher)
	if err != nil {
		http.Error(w, "Invalid researcher name", http.StatusBadRequest)
		return
	}
	addr := r.URL.Query().Get("email")
	if !utils.ValidateEmail(addr) {
		http.Error(w, "Invalid email", http.StatusBadRequest)
		return
	}

	deleted, err := routes.subscriptions.Delete(r.Context(), name, addr)
	if err != nil {
		routes.logger.Error().Err(err).Msg("Unsubscribe page failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	routes.tmpls.RenderHTML(w, "unsubscribe", struct {
		ResearcherName string
		Email          string
		Deleted        bool
	}{
		ResearcherName: name,
		Email:          addr,
		Deleted:        deleted,
	})
}

// dashboardStats gathers the counts shown in notification emails.
// Notifications are best effort, so failures only log and the summary
// carries whatever was read successfully.
func (routes *Routes) dashboardStats(ctx context.Context) email.DashboardStats {
	stats := email.DashboardStats{}
	var err error
	if stats.SubscriptionCount, err = routes.subscriptions.Count(ctx); err != nil {
		routes.logger.Warn().Err(err).Msg("Counting subscriptions for dashboard failed")
	}
	if stats.RequestCount, err = routes.requests.Count(ctx); err != nil {
		routes.logger.Warn().Err(err).Msg("Counting researcher requests for dashboard failed")
	}
	if stats.RecentSubscriptions, err = routes.subscriptions.Recent(ctx, 5); err != nil {
		routes.logger.Warn().Err(err).Msg("Listing recent subscriptions for dashboard failed")
	}
	if stats.RecentRequests, err = routes.requests.Recent(ctx, 5); err != nil {
		routes.logger.Warn().Err(err).Msg("Listing recent researcher requests for dashboard failed")
	}
	return stats
}
