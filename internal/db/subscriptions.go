package db

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"gitlab.com/wheresmygrants/grantvotes/internal/models"
)

// SubscriptionStore keeps one row per (researcher_name, email) pair.
type SubscriptionStore struct {
	sharedDB DBTX
}

// Create inserts the pair and reports whether a new row was created.
// A duplicate pair is not an error: the unique constraint swallows the
// insert and created comes back false.
func (s *SubscriptionStore) Create(ctx context.Context, researcherName, email string) (bool, error) {
	sql, args, _ := psql.
		Insert("subscriptions").
		Columns("researcher_name", "email").
		Values(researcherName, email).
		Suffix("ON CONFLICT (researcher_name, email) DO NOTHING").
		ToSql()

	tag, err := s.sharedDB.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *SubscriptionStore) Exists(ctx context.Context, researcherName, email string) (bool, error) {
	var exists bool
	err := pgxscan.Get(ctx, s.sharedDB, &exists,
		"SELECT exists(SELECT 1 FROM subscriptions WHERE researcher_name = $1 AND email = $2)",
		researcherName, email)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *SubscriptionStore) Delete(ctx context.Context, researcherName, email string) (bool, error) {
	sql, args, _ := psql.
		Delete("subscriptions").
		Where(sq.Eq{"researcher_name": researcherName, "email": email}).
		ToSql()

	tag, err := s.sharedDB.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *SubscriptionStore) Count(ctx context.Context) (int, error) {
	count := 0
	row := s.sharedDB.QueryRow(ctx, "SELECT COUNT(*) FROM subscriptions")
	err := row.Scan(&count)
	return count, err
}

func (s *SubscriptionStore) Recent(ctx context.Context, limit int) ([]models.Subscription, error) {
	sql, args, _ := psql.
		Select("id", "researcher_name", "email", "created_at").
		From("subscriptions").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()

	subs := []models.Subscription{}
	err := pgxscan.Select(ctx, s.sharedDB, &subs, sql, args...)
	if err != nil {
		return nil, err
	}
	return subs, nil
}
