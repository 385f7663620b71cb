package miniagents

import (
	"errors"
	"fmt"
)

// Sentinel errors for top-level Run lifecycle misuse, following the
// teacher's sentinel-var-plus-Wrap*Error convention.
var (
	ErrAlreadyRunning = errors.New("miniagents: already running")
	ErrNotRunning     = errors.New("miniagents: not running")
)

// WrapRunError wraps err with operation-specific context about the Run
// lifecycle, or nil if err is nil.
func WrapRunError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("miniagents: run %s: %w", op, err)
}
