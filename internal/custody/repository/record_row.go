// Package repository provides PostgreSQL and MySQL implementations of the key custody store.
package repository

import (
	"database/sql"
	"errors"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	custodyDomain "github.com/allisson/esign/internal/custody/domain"
	"github.com/allisson/esign/internal/database"
	apperrors "github.com/allisson/esign/internal/errors"
)

const recordColumns = `id, kind, owner_id, file_name, ciphertext, iv, salt, auth_tag,
	key_ciphertext, key_iv, key_salt, key_auth_tag, certificate, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// recordRow mirrors one custody_records row before the blobs are rebuilt.
type recordRow struct {
	kind        string
	fileName    string
	ciphertext  []byte
	iv          string
	salt        string
	authTag     string
	keyCipher   []byte
	keyIV       sql.NullString
	keySalt     sql.NullString
	keyAuthTag  sql.NullString
	certificate []byte
	record      custodyDomain.Record
}

// scanRecord scans a row using idDest/ownerDest for the driver specific UUID columns.
func scanRecord(
	scanner rowScanner,
	idDest, ownerDest any,
	decodeIDs func(*custodyDomain.Record) error,
) (*custodyDomain.Record, error) {
	var row recordRow

	err := scanner.Scan(
		idDest,
		&row.kind,
		ownerDest,
		&row.fileName,
		&row.ciphertext,
		&row.iv,
		&row.salt,
		&row.authTag,
		&row.keyCipher,
		&row.keyIV,
		&row.keySalt,
		&row.keyAuthTag,
		&row.certificate,
		&row.record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, custodyDomain.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan custody record")
	}

	record := row.record
	if err := decodeIDs(&record); err != nil {
		return nil, err
	}
	record.Kind = custodyDomain.Kind(row.kind)
	record.FileName = row.fileName
	record.Certificate = row.certificate

	record.Blob, err = cryptoDomain.NewEncryptedBlobFromHex(row.ciphertext, row.iv, row.salt, row.authTag)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load custody blob")
	}

	if row.keyCipher != nil {
		record.WrappedKey, err = cryptoDomain.NewEncryptedBlobFromHex(
			row.keyCipher,
			row.keyIV.String,
			row.keySalt.String,
			row.keyAuthTag.String,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to load wrapped document key")
		}
	}

	return &record, nil
}

// wrappedKeyArgs returns the four nullable key columns.
func wrappedKeyArgs(record *custodyDomain.Record) (any, any, any, any) {
	if record.WrappedKey == nil {
		return nil, nil, nil, nil
	}
	return record.WrappedKey.Ciphertext,
		record.WrappedKey.IVHex(),
		record.WrappedKey.SaltHex(),
		record.WrappedKey.AuthTagHex()
}

// mapInsertError classifies driver errors from an insert.
func mapInsertError(record *custodyDomain.Record, err error) error {
	if database.IsUniqueViolation(err) {
		if record.Kind.Singleton() {
			return custodyDomain.ErrSingletonExists
		}
		return apperrors.Wrap(apperrors.ErrConflict, "custody record already exists")
	}
	return apperrors.Wrap(err, "failed to create custody record")
}

// checkDeleted turns a zero-row delete into ErrRecordNotFound.
func checkDeleted(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read deleted rows")
	}
	if affected == 0 {
		return custodyDomain.ErrRecordNotFound
	}
	return nil
}
