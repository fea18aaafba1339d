package treapx

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidVersion is returned when a version id was never published.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrOutOfRange matches every *BoundsError.
	ErrOutOfRange = errors.New("index out of range")
)

// BoundsError reports a position or range that does not fit the sequence of a version.
// Lo and Hi are the requested 1-based positions; for point operations they are equal.
type BoundsError struct {
	Op      string
	Version VersionID
	Lo, Hi  int
	Len     int
}

func (e *BoundsError) Error() string {
	if e.Lo == e.Hi {
		return fmt.Sprintf("%s: position %d out of range for version %d of length %d", e.Op, e.Lo, e.Version, e.Len)
	}
	return fmt.Sprintf("%s: range [%d, %d] out of range for version %d of length %d", e.Op, e.Lo, e.Hi, e.Version, e.Len)
}

func (e *BoundsError) Is(target error) bool {
	return target == ErrOutOfRange
}
