package domain

import (
	"fmt"

	"github.com/allisson/esign/internal/errors"
)

// maxStderr bounds the tool output kept in a ToolError.
const maxStderr = 512

var (
	// ErrToolFailed is the sentinel every ToolError unwraps to.
	ErrToolFailed = errors.New("pki tool failed")

	// ErrToolTimeout indicates the tool did not finish within the configured timeout.
	ErrToolTimeout = errors.Wrap(errors.ErrUnavailable, "pki tool timed out")

	// ErrInvalidSubject indicates a subject attribute failed validation.
	ErrInvalidSubject = errors.Wrap(errors.ErrInvalidInput, "invalid certificate subject")

	// ErrInvalidPassword indicates a bundle password the tool cannot accept (empty or multi-line).
	ErrInvalidPassword = errors.Wrap(errors.ErrInvalidInput, "invalid bundle password")

	// ErrInvalidKeySize indicates an unsupported RSA modulus size.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")
)

// ToolError describes a failed tool invocation: a non-zero exit or a missing output file.
type ToolError struct {
	Op       string
	ExitCode int
	Stderr   string
}

// NewToolError builds a ToolError, truncating stderr.
func NewToolError(op string, exitCode int, stderr []byte) *ToolError {
	if len(stderr) > maxStderr {
		stderr = stderr[:maxStderr]
	}
	return &ToolError{Op: op, ExitCode: exitCode, Stderr: string(stderr)}
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("pki tool %s failed with exit code %d", e.Op, e.ExitCode)
	}
	return fmt.Sprintf("pki tool %s failed with exit code %d: %s", e.Op, e.ExitCode, e.Stderr)
}

// Unwrap returns ErrToolFailed.
func (e *ToolError) Unwrap() error {
	return ErrToolFailed
}
