package db

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"gitlab.com/wheresmygrants/grantvotes/internal/models"
)

// ResearcherRequestStore keeps catalog addition requests, unique per
// OpenAlex id.
type ResearcherRequestStore struct {
	sharedDB DBTX
}

func (s *ResearcherRequestStore) Create(ctx context.Context, req *models.ResearcherRequest) (bool, error) {
	sql, args, _ := psql.
		Insert("researcher_requests").
		Columns("openalex_id", "display_name", "institution", "works_count", "requester_email").
		Values(req.OpenalexID, req.DisplayName, req.Institution, req.WorksCount, req.RequesterEmail).
		Suffix("ON CONFLICT (openalex_id) DO NOTHING RETURNING id, created_at").
		ToSql()

	err := pgxscan.Get(ctx, s.sharedDB, req, sql, args...)
	if pgxscan.NotFound(err) {
		// Conflict: a request for this id already exists.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *ResearcherRequestStore) List(ctx context.Context) ([]models.ResearcherRequest, error) {
	sql, args, _ := psql.
		Select("id", "openalex_id", "display_name", "institution", "works_count", "requester_email", "created_at").
		From("researcher_requests").
		OrderBy("created_at DESC").
		ToSql()

	reqs := []models.ResearcherRequest{}
	err := pgxscan.Select(ctx, s.sharedDB, &reqs, sql, args...)
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *ResearcherRequestStore) Delete(ctx context.Context, openalexID string) error {
	sql, args, _ := psql.
		Delete("researcher_requests").
		Where(sq.Eq{"openalex_id": openalexID}).
		ToSql()

	tag, err := s.sharedDB.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrRequestNotFound
	}
	return nil
}

func (s *ResearcherRequestStore) Count(ctx context.Context) (int, error) {
	count := 0
	row := s.sharedDB.QueryRow(ctx, "SELECT COUNT(*) FROM researcher_requests")
	err := row.Scan(&count)
	return count, err
}

func (s *ResearcherRequestStore) Recent(ctx context.Context, limit int) ([]models.ResearcherRequest, error) {
	sql, args, _ := psql.
		Select("id", "openalex_id", "display_name", "institution", "works_count", "requester_email", "created_at").
		From("researcher_requests").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()

	reqs := []models.ResearcherRequest{}
	err := pgxscan.Select(ctx, s.sharedDB, &reqs, sql, args...)
	if err != nil {
		return nil, err
	}
	return reqs, nil
}
