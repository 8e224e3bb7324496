package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/eleven-am/presence-coach/internal/camera"
	"golang.org/x/image/draw"
)

const (
	DefaultQuality = 80
	dataURLPrefix  = "data:image/jpeg;base64,"
)

var errEmptyFrame = errors.New("frame has no pixels")

type Encoder struct {
	quality int
}

func NewEncoder(quality int) *Encoder {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Encoder{quality: quality}
}

// Capture reads the current frame from src and encodes it as a JPEG data URL
// at the frame's native size.
func (e *Encoder) Capture(ctx context.Context, src FrameSource) (*CapturedFrame, error) {
	if src == nil || src.State() != camera.StateActive {
		return nil, &NotReadyError{}
	}

	img, err := src.Frame(ctx)
	if err != nil {
		return nil, &NotReadyError{Err: err}
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, &NotReadyError{Err: errEmptyFrame}
	}

	surface := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(surface, surface.Bounds(), img, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, surface, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &CapturedFrame{
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Payload: dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// DecodePayload reverses the data URL produced by Capture.
func DecodePayload(payload string) ([]byte, error) {
	if len(payload) < len(dataURLPrefix) || payload[:len(dataURLPrefix)] != dataURLPrefix {
		return nil, fmt.Errorf("payload is not a jpeg data url")
	}
	return base64.StdEncoding.DecodeString(payload[len(dataURLPrefix):])
}
