package realtime

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/pion/webrtc/v4"
	"golang.org/x/image/vp8"
)

var errNotKeyFrame = errors.New("not a key frame")

type VideoDecoder interface {
	Decode(data []byte, mimeType string) (image.Image, error)
}

// VP8Decoder decodes VP8 key frames. Inter frames are rejected with errNotKeyFrame.
type VP8Decoder struct{}

func NewVP8Decoder() *VP8Decoder {
	return &VP8Decoder{}
}

func (d *VP8Decoder) Decode(data []byte, mimeType string) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame data")
	}

	if mimeType != webrtc.MimeTypeVP8 {
		return nil, fmt.Errorf("unsupported codec: %s (only VP8 supported)", mimeType)
	}

	if !isVP8KeyFrame(data) {
		return nil, errNotKeyFrame
	}

	decoder := vp8.NewDecoder()
	decoder.Init(bytes.NewReader(data), len(data))

	fh, err := decoder.DecodeFrameHeader()
	if err != nil {
		return nil, fmt.Errorf("decode frame header: %w", err)
	}

	if fh.Width == 0 || fh.Height == 0 {
		return nil, fmt.Errorf("invalid frame dimensions: %dx%d", fh.Width, fh.Height)
	}

	img, err := decoder.DecodeFrame()
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	return img, nil
}

func isVP8KeyFrame(data []byte) bool {
	return len(data) > 0 && data[0]&0x01 == 0
}
