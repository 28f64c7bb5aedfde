package domain

import (
	"errors"
	"fmt"
)

// Validation failures for whitelist submissions
var (
	ErrEmptyMAC     = errors.New("enter a MAC address")
	ErrInvalidMAC   = errors.New("invalid MAC format, use AA:BB:CC:DD:EE:FF")
	ErrDuplicateMAC = errors.New("MAC address is already whitelisted")
)

// Source names used in SourceFetchError
const (
	SourceDetections = "detections"
	SourceWhitelist  = "whitelist"
)

// ValidationError is a rejected whitelist submission. The pipeline is not
// touched when one is returned.
type ValidationError struct {
	MAC string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("whitelist %q: %v", e.MAC, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SourceFetchError reports a failed query against one of the external sources.
// The cycle continues with an empty result for that source.
type SourceFetchError struct {
	Source string
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a whitelist validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
