package db

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"gitlab.com/wheresmygrants/grantvotes/internal/models"
)

func (l *VoteLedger) CountsByGrant(ctx context.Context, grantID string) (models.GrantCounts, error) {
	sql, args, _ := psql.
		Select("action", "COUNT(*)").
		From("votes").
		Where(sq.Eq{"grant_id": grantID}).
		GroupBy("action").
		ToSql()

	counts := models.GrantCounts{GrantID: grantID}
	rows, err := l.sharedDB.Query(ctx, sql, args...)
	if err != nil {
		return counts, err
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		var count int
		err := rows.Scan(&action, &count)
		if err != nil {
			return counts, err
		}
		if action == string(models.ActionLike) {
			counts.Likes = count
		} else {
			counts.Dislikes = count
		}
	}
	return counts, rows.Err()
}

// TopGrants ranks grants by like count, descending. Ties break on
// grant_id ascending so the order is stable across runs.
func (l *VoteLedger) TopGrants(ctx context.Context, limit int) ([]models.GrantCounts, error) {
	if limit < 1 {
		return nil, models.ErrInvalidLimit
	}
	sql, args, _ := psql.
		Select(
			"grant_id",
			"COUNT(*) FILTER (WHERE action = 'like') AS likes",
			"COUNT(*) FILTER (WHERE action = 'dislike') AS dislikes",
		).
		From("votes").
		GroupBy("grant_id").
		OrderBy("likes DESC", "grant_id ASC").
		Limit(uint64(limit)).
		ToSql()

	grants := []models.GrantCounts{}
	err := pgxscan.Select(ctx, l.sharedDB, &grants, sql, args...)
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (l *VoteLedger) ResearcherSummary(ctx context.Context, researcherID string) (models.ResearcherSummary, error) {
	summary := models.ResearcherSummary{RecentVotes: []models.Vote{}}

	sql, args, _ := psql.
		Select("action", "COUNT(*)").
		From("votes").
		Where(sq.Eq{"researcher_id": researcherID}).
		GroupBy("action").
		ToSql()

	rows, err := l.sharedDB.Query(ctx, sql, args...)
	if err != nil {
		return summary, err
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return summary, err
		}
		if action == string(models.ActionLike) {
			summary.Likes = count
		} else {
			summary.Dislikes = count
		}
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}
	summary.TotalVotes = summary.Likes + summary.Dislikes

	sql, args, _ = psql.
		Select("grant_id", "researcher_id", "action", "timestamp").
		From("votes").
		Where(sq.Eq{"researcher_id": researcherID}).
		OrderBy("timestamp DESC").
		Limit(10).
		ToSql()

	err = pgxscan.Select(ctx, l.sharedDB, &summary.RecentVotes, sql, args...)
	if err != nil {
		return summary, err
	}
	return summary, nil
}

// Trend groups a grant's votes by UTC calendar day, ascending.
func (l *VoteLedger) Trend(ctx context.Context, grantID string) ([]models.TrendPoint, error) {
	sql, args, _ := psql.
		Select(
			"to_char(timestamp AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day",
			"COUNT(*) AS count",
		).
		From("votes").
		Where(sq.Eq{"grant_id": grantID}).
		GroupBy("day").
		OrderBy("day ASC").
		ToSql()

	trend := []models.TrendPoint{}
	err := pgxscan.Select(ctx, l.sharedDB, &trend, sql, args...)
	if err != nil {
		return nil, err
	}
	return trend, nil
}

func (l *VoteLedger) Health(ctx context.Context) (models.HealthSnapshot, error) {
	snapshot := models.HealthSnapshot{}
	row := l.sharedDB.QueryRow(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT grant_id), COUNT(DISTINCT researcher_id), MAX(timestamp) FROM votes")
	err := row.Scan(
		&snapshot.TotalVotes,
		&snapshot.UniqueGrants,
		&snapshot.UniqueResearchers,
		&snapshot.LastVoteTimestamp,
	)
	if err != nil {
		return snapshot, err
	}

	top, err := l.TopGrants(ctx, 1)
	if err != nil {
		return snapshot, err
	}
	if len(top) > 0 {
		snapshot.TopGrant = &top[0].GrantID
	}
	return snapshot, nil
}
