package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrBusRequired      = sterrors.New("beamline: bus is required")
	ErrLoggerRequired   = sterrors.New("beamline: logger is required")
	ErrConfigRequired   = sterrors.New("beamline: configuration is required")
	ErrClientRequired   = sterrors.New("beamline: broker client is required")
	ErrBeamRequired     = sterrors.New("beamline: beam is required")
	ErrBridgeClosed     = sterrors.New("beamline: bridge is closed")
	ErrBridgeStandalone = sterrors.New("beamline: bridge is in standalone mode")
	ErrMixedBeams       = sterrors.New("beamline: wavelet photons must share one beam")
)

// ConfigValidationError wraps configuration validation failures so callers can
// distinguish them from runtime errors.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("beamline: invalid configuration: %v", e.Err)
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError wraps err in a ConfigValidationError. A nil err
// returns nil so callers can pass through validation results unconditionally.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
