package camera

import (
	"context"
	"image"
)

type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
	StateFailed   State = "failed"
)

type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

// Constraints are preferences, not requirements. Sources pick the closest mode they offer.
type Constraints struct {
	Width      int
	Height     int
	FacingMode FacingMode
}

func DefaultConstraints() Constraints {
	return Constraints{
		Width:      1280,
		Height:     720,
		FacingMode: FacingUser,
	}
}

// Source acquires video-only camera streams. sessionID identifies the coaching
// session the stream belongs to; sources that own a single device ignore it.
type Source interface {
	Open(ctx context.Context, sessionID string, c Constraints) (Stream, error)
}

// Stream is a live video handle. Close releases every underlying track and
// must be safe to call more than once.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}
