package engine

import (
	"errors"
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Status Codes
// --------------------------------------------------------------------------

type StatusCode uint64

const (
	StatusOK StatusCode = iota
	StatusNotFound
	StatusCorruption
	StatusIOError
	StatusInvalidArgument
	StatusNotSupported
	StatusInternal
)

func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "OK"
	case StatusNotFound:
		return "NotFound"
	case StatusCorruption:
		return "Corruption"
	case StatusIOError:
		return "IOError"
	case StatusInvalidArgument:
		return "InvalidArgument"
	case StatusNotSupported:
		return "NotSupported"
	case StatusInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Status
// --------------------------------------------------------------------------

// Status is the error type returned by engine adapters. It classifies a
// failure so callers can react to corruption and I/O errors without string
// matching against engine-specific messages.
type Status struct {
	Code StatusCode
	Text string
}

// NewStatus creates a status with the given classification and message.
func NewStatus(code StatusCode, text string) *Status {
	return &Status{Code: code, Text: text}
}

// NewStatusf creates a status with a formatted message.
func NewStatusf(code StatusCode, format string, args ...interface{}) *Status {
	return &Status{Code: code, Text: fmt.Sprintf(format, args...)}
}

func (s *Status) Error() string {
	return fmt.Sprintf("%s: %s", s.Code, s.Text)
}

// IsCorruption reports whether the status describes structural corruption
// of the underlying store.
func (s *Status) IsCorruption() bool {
	return s.Code == StatusCorruption || ContainsCorruptionMarker(s.Text)
}

// IsIOError reports whether the status describes a filesystem level
// failure.
func (s *Status) IsIOError() bool {
	return s.Code == StatusIOError
}

// IsNotFound reports whether the status describes an absent key.
func (s *Status) IsNotFound() bool {
	return s.Code == StatusNotFound
}

// --------------------------------------------------------------------------
// Error Helpers
// --------------------------------------------------------------------------

// corruptionMarkers are the substrings engines are known to emit, in log
// lines and error text, when they detect structural corruption.
var corruptionMarkers = []string{
	"corrupt",
	"checksum",
	"truncate",
	"manifest",
	"bad magic",
}

// ContainsCorruptionMarker reports whether a log line or status text
// carries one of the substrings engines emit on structural corruption.
// Matching is case-insensitive.
func ContainsCorruptionMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range corruptionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsCorruption reports whether err carries a corruption classification.
func IsCorruption(err error) bool {
	var s *Status
	return errors.As(err, &s) && s.IsCorruption()
}

// IsIOError reports whether err carries an I/O error classification.
func IsIOError(err error) bool {
	var s *Status
	return errors.As(err, &s) && s.IsIOError()
}

// IsNotFound reports whether err carries a not-found classification.
func IsNotFound(err error) bool {
	var s *Status
	return errors.As(err, &s) && s.IsNotFound()
}
