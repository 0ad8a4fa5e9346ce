package output

import (
	"errors"
	"fmt"
)

// Error taxonomy for control-domain operations. Callers compare with
// errors.Is; DriverCallFailed additionally carries the name of the failing
// driver call via DriverCallError for logging.
var (
	// ErrDriverUnavailable is returned by Open when enumeration, loading,
	// instantiation or driver Init fails.
	ErrDriverUnavailable = errors.New("output: driver unavailable")
	// ErrFormatUnsupported is returned when a decoder format is neither PCM
	// nor DSD, or the driver rejects the requested IO format.
	ErrFormatUnsupported = errors.New("output: format unsupported")
	// ErrRateUnsupported is returned when the driver's canSampleRate check
	// rejects the requested sample rate.
	ErrRateUnsupported = errors.New("output: sample rate unsupported")
	// ErrResourceExhausted is returned by SetupForDecoder when no output
	// channel is usable (the driver reports none, or the decoder has zero
	// channels).
	ErrResourceExhausted = errors.New("output: resource exhausted")
	// ErrDriverCallFailed is returned when a specific driver call returns an
	// error. See DriverCallError for the offending call.
	ErrDriverCallFailed = errors.New("output: driver call failed")
	// ErrStateViolation is returned when an operation is invoked in a state
	// where its precondition does not hold.
	ErrStateViolation = errors.New("output: invalid state for operation")
)

// DriverCallError wraps ErrDriverCallFailed with the offending call name,
// for logging. Controller never fills in Status, because driver.Driver
// methods report failures as errors rather than status codes, so Status is
// 0 in every DriverCallError the controller returns; the driver's own error
// text follows it in the wrapped message.
type DriverCallError struct {
	Call   string
	Status int
}

func (e *DriverCallError) Error() string {
	return fmt.Sprintf("output: driver call %s failed with status %d", e.Call, e.Status)
}

func (e *DriverCallError) Unwrap() error { return ErrDriverCallFailed }
