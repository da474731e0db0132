package classification

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"detailinfra/internal/csvio"
	"detailinfra/internal/events"
)

// ImportResult counts the outcome of a bulk import. Errors describes each
// rejected row.
type ImportResult struct {
	Inserted int      `json:"inserted"`
	Queued   int      `json:"queued"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

func (r ImportResult) Message() string {
	return fmt.Sprintf("%d inserted, %d queued, %d rejected", r.Inserted, r.Queued, r.Rejected)
}

// Progress is called after each record with the number handled so far.
type Progress func(done, total int)

// Import reads a CSV file and inserts each valid row, queueing rows the
// remote store refuses. A bad header rejects the whole file.
func (s *Service) Import(ctx context.Context, actor Actor, r io.Reader, progress Progress) (ImportResult, error) {
	if !actor.IsAdmin() {
		return ImportResult{}, ErrAdminOnly
	}
	recs, err := csvio.Parse(r)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ImportRecords(ctx, actor, recs, progress)
}

func (s *Service) ImportRecords(ctx context.Context, actor Actor, recs []csvio.Record, progress Progress) (ImportResult, error) {
	if !actor.IsAdmin() {
		return ImportResult{}, ErrAdminOnly
	}
	var res ImportResult
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row, err := rec.ToRow()
		if err != nil {
			res.Rejected++
			res.Errors = append(res.Errors, err.Error())
		} else {
			out, err := s.persist(ctx, actor, row, s.remote.Insert)
			switch {
			case err != nil:
				return res, err
			case out.Queued:
				res.Queued++
			default:
				res.Inserted++
			}
		}
		if progress != nil {
			progress(i+1, len(recs))
		}
	}
	s.log.Info("classification import complete",
		zap.String("actor", actor.Name),
		zap.Int("inserted", res.Inserted),
		zap.Int("queued", res.Queued),
		zap.Int("rejected", res.Rejected))
	s.publish(ctx, events.SubjectImported, events.Imported{
		Inserted: res.Inserted,
		Queued:   res.Queued,
		Rejected: res.Rejected,
		Actor:    actor.Name,
		Message:  "Import complete: " + res.Message(),
		At:       s.now().UTC(),
	})
	return res, nil
}

// Export writes the merged view as CSV, sorted by make then model.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	rows, err := s.List(ctx, Filter{})
	if err != nil {
		return err
	}
	return csvio.Write(w, rows)
}

func (s *Service) Template(w io.Writer) error {
	return csvio.WriteTemplate(w)
}
