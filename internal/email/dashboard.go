package email

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/wheresmygrants/grantvotes/internal/models"
)

// DashboardStats is the snapshot embedded in every notification body.
type DashboardStats struct {
	SubscriptionCount   int
	RequestCount        int
	RecentSubscriptions []models.Subscription
	RecentRequests      []models.ResearcherRequest
}

func BuildDashboardSummary(stats DashboardStats) string {
	divider := strings.Repeat("=", 50)
	summary := []string{
		divider,
		"DASHBOARD SUMMARY",
		divider,
		fmt.Sprintf("\nPending Researcher Requests: %d", stats.RequestCount),
		fmt.Sprintf("Total Subscriptions: %d", stats.SubscriptionCount),
	}

	if len(stats.RecentRequests) > 0 {
		summary = append(summary, "\n--- Recent Researcher Requests ---")
		for _, r := range stats.RecentRequests {
			summary = append(summary, fmt.Sprintf("  - %s (%s)", r.DisplayName, r.OpenalexID))
		}
	}
	if len(stats.RecentSubscriptions) > 0 {
		summary = append(summary, "\n--- Recent Subscriptions ---")
		for _, s := range stats.RecentSubscriptions {
			summary = append(summary, fmt.Sprintf("  - %s: %s", s.ResearcherName, s.Email))
		}
	}

	summary = append(summary, "\n"+divider)
	return strings.Join(summary, "\n")
}

func SubscriptionMessage(researcherName, subscriberEmail string, stats DashboardStats) (subject, body string) {
	subject = fmt.Sprintf("[WMG] New Subscription: %s", researcherName)
	body = fmt.Sprintf(`NEW SUBSCRIPTION

Researcher: %s
Subscriber: %s
Time: %s

%s
`, researcherName, subscriberEmail, time.Now().Format("2006-01-02 15:04:05"), BuildDashboardSummary(stats))
	return subject, body
}

func ResearcherRequestMessage(displayName, openalexID, requesterEmail string, stats DashboardStats) (subject, body string) {
	if requesterEmail == "" {
		requesterEmail = "Anonymous"
	}
	subject = fmt.Sprintf("[WMG] New Researcher Request: %s", displayName)
	body = fmt.Sprintf(`NEW RESEARCHER REQUEST

Researcher: %s
OpenAlex ID: %s
Requested by: %s
Time: %s

%s
`, displayName, openalexID, requesterEmail, time.Now().Format("2006-01-02 15:04:05"), BuildDashboardSummary(stats))
	return subject, body
}
