// Package export renders the full vote ledger as a JSON array or a CSV
// document. Rows are written as they come off the ledger scan, so memory
// use is bounded by one row, not by the ledger size.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"gitlab.com/wheresmygrants/grantvotes/internal/models"
)

// VoteSource is the slice of the ledger the streamer needs.
type VoteSource interface {
	Scan(ctx context.Context, filter models.VoteFilter, fn func(models.Vote) error) error
}

var CSVHeader = []string{"grant_id", "researcher_id", "action", "timestamp"}

// WriteJSON streams the ledger as a single JSON array. An empty ledger
// produces "[]".
func WriteJSON(ctx context.Context, w io.Writer, src VoteSource) error {
	if _, err := w.Write([]byte{'['}); err != nil {
		return err
	}
	first := true
	err := src.Scan(ctx, models.VoteFilter{}, func(vote models.Vote) error {
		if !first {
			if _, err := w.Write([]byte{','}); err != nil {
				return err
			}
		}
		first = false
		vote.Timestamp = vote.Timestamp.UTC()
		buf, err := json.Marshal(vote)
		if err != nil {
			return err
		}
		_, err = w.Write(buf)
		return err
	})
	if err != nil {
		return err
	}
	_, err = w.Write([]byte{']'})
	return err
}

// WriteCSV streams the ledger as a CSV document with a header row. An
// empty ledger produces the header only.
func WriteCSV(ctx context.Context, w io.Writer, src VoteSource) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	err := src.Scan(ctx, models.VoteFilter{}, func(vote models.Vote) error {
		return cw.Write([]string{
			vote.GrantID,
			vote.ResearcherID,
			string(vote.Action),
			vote.Timestamp.UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
