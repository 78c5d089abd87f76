package editor

import (
	"errors"

	"gieditor/internal/bulk"
	"gieditor/internal/clipboard"
	"gieditor/internal/params"
	"gieditor/internal/sysex"
	"gieditor/internal/transport"
)

// Describe renders err as a short message naming its kind.
func Describe(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, params.ErrNotFound):
		return "No such parameter"
	case errors.Is(err, params.ErrBlacklisted):
		return "Blacklisted"
	case errors.Is(err, transport.ErrTimeout):
		return "Timeout"
	case errors.Is(err, transport.ErrChecksum):
		return "Checksum mismatch"
	case errors.Is(err, transport.ErrMalformed), errors.Is(err, bulk.ErrMalformed):
		return "Malformed reply"
	case errors.Is(err, clipboard.ErrIncompatibleClass):
		return "Class is incompatible"
	case errors.Is(err, clipboard.ErrVerificationFailed):
		return "Verification failed"
	case errors.Is(err, clipboard.ErrNothingToPaste):
		return "Nothing to paste"
	case errors.Is(err, transport.ErrClosed):
		return "Transport closed"
	case errors.Is(err, sysex.ErrTooLarge):
		return "Message too large"
	}
	return err.Error()
}
