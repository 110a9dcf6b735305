package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into structured log fields: the top message, the
// typed code when present, the wrap chain, and Postgres driver detail when a
// constraint on orders or payment methods rejected the write.
func LogFields(err error) map[string]any {
	if err == nil {
		return nil
	}

	fields := map[string]any{"error": err.Error()}
	if te := As(err); te != nil {
		fields["error_code"] = string(te.Code())
	}

	var chain []string
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	if len(chain) > 0 {
		fields["error_chain"] = chain
	}

	if code, constraint, detail, ok := pgErrorParts(err); ok {
		fields["pg_code"] = code
		if constraint != "" {
			fields["pg_constraint"] = constraint
		}
		if detail != "" {
			fields["pg_detail"] = detail
		}
	}

	return fields
}

// pgErrorParts covers both Postgres drivers in the module: pgx for the
// runtime pool and lib/pq for connection-string parsing paths.
func pgErrorParts(err error) (code, constraint, detail string, ok bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, pgxErr.Detail, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, pqErr.Detail, true
	}
	return "", "", "", false
}
