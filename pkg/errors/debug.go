package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/multierr"
)

// ErrorDump is the log-only view of an error: its code, unwrap chain and any
// postgres diagnostics. Never rendered to clients.
type ErrorDump struct {
	Code         Code     `json:"code,omitempty"`
	Chain        []string `json:"chain,omitempty"`
	PGCode       string   `json:"pg_code,omitempty"`
	PGConstraint string   `json:"pg_constraint,omitempty"`
	PGTable      string   `json:"pg_table,omitempty"`
	PGDetail     string   `json:"pg_detail,omitempty"`
}

func Dump(err error) ErrorDump {
	var d ErrorDump
	if err == nil {
		return d
	}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	// multierr aggregates (cron batches) are flattened so each cause shows up.
	for _, cause := range multierr.Errors(err) {
		for e := cause; e != nil; e = errors.Unwrap(e) {
			d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
		}
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode, d.PGConstraint, d.PGTable, d.PGDetail = pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.Detail
	case errors.As(err, &pqErr):
		d.PGCode, d.PGConstraint, d.PGTable, d.PGDetail = string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Detail
	}
	return d
}
