package db

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"gitlab.com/wheresmygrants/grantvotes/internal/models"
)

// VoteLedger holds the authoritative set of vote rows, one per
// (grant_id, researcher_id) pair. Uniqueness rides on the composite
// primary key: concurrent upserts on the same pair serialize in the
// store and the last committer wins.
type VoteLedger struct {
	sharedDB DBTX
}

func (l *VoteLedger) Upsert(ctx context.Context, grantID, researcherID string, action models.VoteAction) error {
	if !action.Valid() {
		return models.ErrInvalidAction
	}
	sql, args, _ := psql.
		Insert("votes").
		Columns("grant_id", "researcher_id", "action", "timestamp").
		Values(grantID, researcherID, string(action), time.Now().UTC()).
		Suffix("ON CONFLICT (grant_id, researcher_id) DO UPDATE SET action = EXCLUDED.action, timestamp = EXCLUDED.timestamp").
		ToSql()

	_, err := l.sharedDB.Exec(ctx, sql, args...)
	return err
}

func (l *VoteLedger) Delete(ctx context.Context, grantID, researcherID string) error {
	sql, args, _ := psql.
		Delete("votes").
		Where(sq.Eq{"grant_id": grantID, "researcher_id": researcherID}).
		ToSql()

	tag, err := l.sharedDB.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrVoteNotFound
	}
	return nil
}

func (l *VoteLedger) Get(ctx context.Context, grantID, researcherID string) (*models.Vote, error) {
	sql, args, _ := psql.
		Select("grant_id", "researcher_id", "action", "timestamp").
		From("votes").
		Where(sq.Eq{"grant_id": grantID, "researcher_id": researcherID}).
		ToSql()

	var vote models.Vote
	err := pgxscan.Get(ctx, l.sharedDB, &vote, sql, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// Scan iterates the ledger one row at a time in (grant_id, researcher_id)
// order, so callers stream arbitrarily large result sets with bounded
// memory.
func (l *VoteLedger) Scan(ctx context.Context, filter models.VoteFilter, fn func(models.Vote) error) error {
	q := psql.
		Select("grant_id", "researcher_id", "action", "timestamp").
		From("votes").
		OrderBy("grant_id", "researcher_id")
	if filter.GrantID != "" {
		q = q.Where(sq.Eq{"grant_id": filter.GrantID})
	}
	if filter.ResearcherID != "" {
		q = q.Where(sq.Eq{"researcher_id": filter.ResearcherID})
	}
	sql, args, _ := q.ToSql()

	rows, err := l.sharedDB.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var vote models.Vote
		err := rows.Scan(&vote.GrantID, &vote.ResearcherID, &vote.Action, &vote.Timestamp)
		if err != nil {
			return err
		}
		if err := fn(vote); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (l *VoteLedger) ListByResearcher(ctx context.Context, researcherID string) ([]models.Vote, error) {
	sql, args, _ := psql.
		Select("grant_id", "researcher_id", "action", "timestamp").
		From("votes").
		Where(sq.Eq{"researcher_id": researcherID}).
		OrderBy("timestamp DESC").
		ToSql()

	votes := []models.Vote{}
	err := pgxscan.Select(ctx, l.sharedDB, &votes, sql, args...)
	if err != nil {
		return nil, err
	}
	return votes, nil
}
