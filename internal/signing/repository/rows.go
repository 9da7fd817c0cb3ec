package repository

import (
	"database/sql"

	apperrors "github.com/allisson/esign/internal/errors"
	signingDomain "github.com/allisson/esign/internal/signing/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// bumpVersion finishes a compare-and-swap update: zero affected rows means the version
// moved underneath the caller.
func bumpVersion(result sql.Result, request *signingDomain.SigningRequest) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read updated rows")
	}
	if affected == 0 {
		return signingDomain.ErrConcurrentModification
	}
	request.Version++
	return nil
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read deleted rows")
	}
	if affected == 0 {
		return signingDomain.ErrRequestNotFound
	}
	return nil
}
