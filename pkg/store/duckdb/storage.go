// Package duckdb owns the embedded run-history database: connector setup,
// schema bootstrap, and the context transaction plumbing stores share.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const runsSchema = `
	CREATE TABLE IF NOT EXISTS runs (
		id VARCHAR NOT NULL,
		mode VARCHAR NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NULL,
		total INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		rows_written_total INTEGER NOT NULL,
		PRIMARY KEY (id)
	);
`

const templateRunsSchema = `
	CREATE TABLE IF NOT EXISTS template_runs (
		run_id VARCHAR NOT NULL,
		template VARCHAR NOT NULL,
		status VARCHAR NOT NULL,
		stage VARCHAR NOT NULL,
		rows_written INTEGER NOT NULL,
		range_start TIMESTAMP NULL,
		range_end TIMESTAMP NULL,
		error VARCHAR NULL,
		PRIMARY KEY (run_id, template)
	);
`

var bootQueries = []string{
	runsSchema,
	templateRunsSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}

type txKey struct{}

// WithTransaction makes tx the transaction every store call under ctx joins.
func WithTransaction(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTransaction returns the transaction carried by ctx, or nil.
func GetTransaction(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}
