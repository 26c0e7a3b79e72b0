// Package frame decodes VM display frames and owns the fixed-size display
// canvas. Each inbound payload is a complete still image; decoding never
// feeds a queue; a decoded frame replaces the canvas wholesale.
package frame

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// Logical canvas dimensions. The server may send any resolution; every frame
// is scaled to fill this surface.
const (
	CanvasWidth  = 1920
	CanvasHeight = 1080
)

// Decoder turns an encoded frame payload into a raster sized for the canvas.
type Decoder struct {
	width  int
	height int
}

// NewDecoder returns a decoder targeting the standard canvas size.
func NewDecoder() *Decoder {
	return &Decoder{width: CanvasWidth, height: CanvasHeight}
}

// Decode parses a JPEG or PNG payload and scales it to the canvas size.
// A corrupt payload returns an error; callers log and drop the frame.
func (d *Decoder) Decode(payload []byte) (*image.NRGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	if b := img.Bounds(); b.Dx() == d.width && b.Dy() == d.height {
		return imaging.Clone(img), nil
	}
	return imaging.Resize(img, d.width, d.height, imaging.Linear), nil
}
