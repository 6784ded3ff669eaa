package postgres

import (
	"github.com/cockroachdb/errors"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-show-reservation/internal/domain/apperr"
)

// PostgreSQL のエラーコード
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// classify は再試行可能なエラーを競合として印付けし、それ以外には文脈を付ける
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	switch pqCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return errors.Mark(errors.Wrap(err, msg), apperr.ErrConflict)
	}
	return errors.Wrap(err, msg)
}
