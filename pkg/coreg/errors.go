package coreg

import(
	"fmt"

	"github.com/pkg/errors"
)

var(
	// ErrConfig means the run was rejected before any work was done.
	ErrConfig = errors.New("bad configuration")

	// ErrInvariant means a geometry check failed that padding and tiling
	// should have guaranteed; a bug, not bad input.
	ErrInvariant = errors.New("internal invariant violated")
)

func configErrorf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, a...))
}

func invariantError(err error, what string) error {
	return fmt.Errorf("%w: %s: %w", ErrInvariant, what, err)
}
