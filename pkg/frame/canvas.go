package frame

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
)

// Canvas is the single mutable display surface. Paints replace the whole
// buffer under a mutex, so concurrent painters race but never interleave:
// whichever paints last wins and the buffer is never partial.
type Canvas struct {
	mu     sync.Mutex
	width  int
	height int
	buf    *image.NRGBA
	gen    uint64
}

// NewCanvas returns a black canvas of the given logical size.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		width:  width,
		height: height,
		buf:    image.NewNRGBA(image.Rect(0, 0, width, height)),
	}
}

// Paint replaces the canvas contents with img, rescaling if the caller
// supplied a different size, and bumps the generation counter.
func (c *Canvas) Paint(img *image.NRGBA) {
	if img == nil {
		return
	}
	if b := img.Bounds(); b.Dx() != c.width || b.Dy() != c.height {
		img = imaging.Resize(img, c.width, c.height, imaging.Linear)
	}

	c.mu.Lock()
	c.buf = img
	c.gen++
	c.mu.Unlock()
}

// Generation returns the number of paints so far; projectors compare it to
// detect a changed display without diffing pixels.
func (c *Canvas) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Snapshot returns the current buffer. The returned image must be treated as
// read-only; a subsequent Paint swaps the buffer rather than mutating it.
func (c *Canvas) Snapshot() *image.NRGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf
}
