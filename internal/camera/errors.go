package camera

import "errors"

// AcquisitionMessage is the user-facing text for any failure to open the camera.
const AcquisitionMessage = "unable to access camera / permission denied"

var (
	ErrInactive     = errors.New("camera session is not active")
	ErrNoVideoTrack = errors.New("no video track available")
	ErrNoFrame      = errors.New("no frame received yet")
)

type AcquisitionError struct {
	Err error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return AcquisitionMessage + ": " + e.Err.Error()
	}
	return AcquisitionMessage
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}
