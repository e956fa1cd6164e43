package models

import (
	"context"
)

// VoteRepository is the storage contract for the vote ledger and the
// aggregate views computed from it.
type VoteRepository interface {
	Upsert(ctx context.Context, grantID, researcherID string, action VoteAction) error
	Delete(ctx context.Context, grantID, researcherID string) error
	Get(ctx context.Context, grantID, researcherID string) (*Vote, error)
	Scan(ctx context.Context, filter VoteFilter, fn func(Vote) error) error
	ListByResearcher(ctx context.Context, researcherID string) ([]Vote, error)
	CountsByGrant(ctx context.Context, grantID string) (GrantCounts, error)
	TopGrants(ctx context.Context, limit int) ([]GrantCounts, error)
	ResearcherSummary(ctx context.Context, researcherID string) (ResearcherSummary, error)
	Trend(ctx context.Context, grantID string) ([]TrendPoint, error)
	Health(ctx context.Context) (HealthSnapshot, error)
}

type SubscriptionRepository interface {
	Create(ctx context.Context, researcherName, email string) (created bool, err error)
	Exists(ctx context.Context, researcherName, email string) (bool, error)
	Delete(ctx context.Context, researcherName, email string) (deleted bool, err error)
	Count(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]Subscription, error)
}

type ResearcherRequestRepository interface {
	Create(ctx context.Context, req *ResearcherRequest) (created bool, err error)
	List(ctx context.Context) ([]ResearcherRequest, error)
	Delete(ctx context.Context, openalexID string) error
	Count(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]ResearcherRequest, error)
}

// NotificationService delivers best-effort admin notifications. Send must
// never block the caller; delivery failures are logged, not returned.
type NotificationService interface {
	Send(subject, body string)
}
