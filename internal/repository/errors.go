package repository

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/tripplan/tripplan-api/internal/apperr"
)

// Postgres SQLSTATE codes the repositories care about.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateError maps driver errors onto apperr kinds. notFoundMsg is used for
// sql.ErrNoRows, failMsg for everything else.
func translateError(err error, notFoundMsg, failMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, err, notFoundMsg)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, errors.Wrapf(err, "constraint %s", pqErr.Constraint), "resource already exists")
		case pgForeignKeyViolation:
			return apperr.Wrap(apperr.KindBadRequest, err, "referenced record does not exist")
		}
	}
	return apperr.Wrap(apperr.KindInternal, err, failMsg)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
