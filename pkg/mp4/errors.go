package mp4

import (
	"errors"
	"fmt"
)

var (
	// ErrNotEnoughData reports that the buffer does not yet hold enough
	// bytes to settle a box header or body. It is not a stream error: the
	// caller should append more input and retry from the same position.
	ErrNotEnoughData = errors.New("mp4: not enough data")

	// ErrMalformed reports an internally inconsistent box structure. It is
	// unrecoverable for the affected box tree; callers must stop parsing
	// the stream rather than attempt to resynchronise past it.
	ErrMalformed = errors.New("mp4: malformed box")
)

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
}
