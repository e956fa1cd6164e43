package models

import "time"

type VoteAction string

const (
	ActionLike    VoteAction = "like"
	ActionDislike VoteAction = "dislike"
)

func (a VoteAction) Valid() bool {
	return a == ActionLike || a == ActionDislike
}

// Vote is one row of the ledger, keyed by (GrantID, ResearcherID).
type Vote struct {
	GrantID      string     `json:"grant_id"`
	ResearcherID string     `json:"researcher_id"`
	Action       VoteAction `json:"action"`
	Timestamp    time.Time  `json:"timestamp"`
}

// VoteFilter narrows a ledger scan. The zero value means the full ledger.
type VoteFilter struct {
	GrantID      string
	ResearcherID string
}

type GrantCounts struct {
	GrantID  string `json:"grant_id"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
}

type GrantRatio struct {
	GrantID           string  `json:"grant_id"`
	Likes             int     `json:"likes"`
	Dislikes          int     `json:"dislikes"`
	LikePercentage    float64 `json:"like_percentage"`
	DislikePercentage float64 `json:"dislike_percentage"`
}

// Ratio derives percentages from the raw counts. A grant with no votes
// yields 0.0 for both percentages.
func (c GrantCounts) Ratio() GrantRatio {
	ratio := GrantRatio{
		GrantID:  c.GrantID,
		Likes:    c.Likes,
		Dislikes: c.Dislikes,
	}
	total := c.Likes + c.Dislikes
	if total > 0 {
		ratio.LikePercentage = float64(c.Likes) / float64(total) * 100
		ratio.DislikePercentage = float64(c.Dislikes) / float64(total) * 100
	}
	return ratio
}

type ResearcherSummary struct {
	TotalVotes  int    `json:"total_votes"`
	Likes       int    `json:"likes"`
	Dislikes    int    `json:"dislikes"`
	RecentVotes []Vote `json:"recent_votes"`
}

type TrendPoint struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type HealthSnapshot struct {
	TotalVotes        int        `json:"total_votes"`
	UniqueGrants      int        `json:"unique_grants"`
	UniqueResearchers int        `json:"unique_researchers"`
	TopGrant          *string    `json:"top_grant"`
	LastVoteTimestamp *time.Time `json:"last_vote_timestamp"`
}
