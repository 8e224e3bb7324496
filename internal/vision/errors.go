package vision

import (
	"errors"
	"fmt"

	"github.com/eleven-am/presence-coach/internal/camera"
)

// NotReadyError is returned when a capture is attempted without an active device.
type NotReadyError struct {
	Err error
}

func (e *NotReadyError) Error() string {
	if e.Err != nil {
		return "no active device to capture from: " + e.Err.Error()
	}
	return "no active device to capture from"
}

func (e *NotReadyError) Unwrap() error {
	return e.Err
}

// InferenceError covers transport failures, timeouts, non-success statuses and
// error bodies from the inference endpoint. Status is zero when no response arrived.
type InferenceError struct {
	Status  int
	Message string
	Err     error
}

func (e *InferenceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("inference failed (status %d): %s", e.Status, e.Message)
	}
	return "inference failed: " + e.Message
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed inference response: %s: %v", e.Reason, e.Err)
	}
	return "malformed inference response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ErrorKind names the failure class of err for notices and metrics.
func ErrorKind(err error) string {
	var notReady *NotReadyError
	var inference *InferenceError
	var malformed *MalformedResponseError
	var acquisition *camera.AcquisitionError

	switch {
	case errors.As(err, &acquisition):
		return "device_acquisition"
	case errors.As(err, &notReady):
		return "not_ready"
	case errors.As(err, &inference):
		return "inference"
	case errors.As(err, &malformed):
		return "malformed_response"
	default:
		return "internal"
	}
}
