package httputil

import (
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/esign/internal/errors"
)

// ReadFormFile reads a multipart file field, refusing files larger than maxBytes.
// Missing or oversized files are reported as ErrInvalidInput.
func ReadFormFile(c *gin.Context, field string, maxBytes int64) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, "", apperrors.Wrapf(apperrors.ErrInvalidInput, "missing file field %q", field)
	}
	if header.Size > maxBytes {
		return nil, "", apperrors.Wrapf(apperrors.ErrInvalidInput, "file %q exceeds %d bytes", field, maxBytes)
	}

	f, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", apperrors.Wrapf(apperrors.ErrInvalidInput, "file %q exceeds %d bytes", field, maxBytes)
	}
	if len(data) == 0 {
		return nil, "", apperrors.Wrapf(apperrors.ErrInvalidInput, "file %q is empty", field)
	}

	return data, header.Filename, nil
}
