package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Queryer is satisfied by *sql.DB and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Postgres yields one entry per row of a query returning
// (path, body, updated_at). The query should order its rows so builds are
// reproducible.
type Postgres struct {
	db    Queryer
	query string
}

func NewPostgres(db Queryer, query string) *Postgres {
	return &Postgres{db: db, query: query}
}

func (p *Postgres) Walk(ctx context.Context, fn func(Entry) error) error {
	rows, err := p.db.QueryContext(ctx, p.query)
	if err != nil {
		return fmt.Errorf("%w: querying documents: %v", apperrors.ErrSourceUnreadable, err)
	}
	defer rows.Close()

	row := 0
	for rows.Next() {
		var (
			path    string
			body    sql.NullString
			updated sql.NullTime
		)
		if err := rows.Scan(&path, &body, &updated); err != nil {
			if cbErr := fn(Entry{ID: fmt.Sprintf("row-%d", row), Open: failing(err)}); cbErr != nil {
				return cbErr
			}
			row++
			continue
		}
		text := body.String
		e := Entry{
			ID:       path,
			Modified: updated.Time,
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader(text)), nil
			},
		}
		if err := fn(e); err != nil {
			return err
		}
		row++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: reading documents: %v", apperrors.ErrSourceUnreadable, err)
	}
	return nil
}
