package api

import (
	"errors"

	"github.com/labstack/echo/v5"

	"github.com/rvbcrs/unifi-firmware-tool/pkg/firmware"
)

// APIError is the error body for every non-2xx response.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func writeErr(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": APIError{Type: errType, Message: msg},
	})
}

// decodeErrType maps codec errors onto stable wire identifiers.
func decodeErrType(err error) string {
	var (
		trunc    *firmware.TruncatedError
		magic    *firmware.UnknownMagicError
		sigMagic *firmware.BadSignatureMagicError
	)
	switch {
	case errors.Is(err, firmware.ErrHeaderNotFound):
		return "header_not_found"
	case errors.As(err, &trunc):
		return "truncated_input"
	case errors.As(err, &magic):
		return "unknown_segment_magic"
	case errors.As(err, &sigMagic):
		return "bad_signature_magic"
	default:
		return "decode_error"
	}
}
