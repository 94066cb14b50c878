package firmware

import (
	"errors"
	"fmt"
)

// ErrHeaderNotFound is returned by Locate when no self-consistent header
// exists anywhere in the buffer.
var ErrHeaderNotFound = errors.New("firmware: header not found")

// TruncatedError reports a read past the end of the input buffer. Offset is
// where the missing bytes were expected.
type TruncatedError struct {
	Offset int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("firmware: truncated input at offset %#x", e.Offset)
}

// UnknownMagicError reports an unparseable magic at a segment boundary.
type UnknownMagicError struct {
	Magic  [4]byte
	Offset int
}

func (e *UnknownMagicError) Error() string {
	return fmt.Sprintf("firmware: unknown segment magic %q at offset %#x", e.Magic, e.Offset)
}

// BadSignatureMagicError reports a terminal record whose magic is neither
// accepted signature variant.
type BadSignatureMagicError struct {
	Magic  [4]byte
	Offset int
}

func (e *BadSignatureMagicError) Error() string {
	return fmt.Sprintf("firmware: bad signature magic %q at offset %#x", e.Magic, e.Offset)
}
