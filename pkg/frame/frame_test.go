package frame

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"sync"
	"testing"
)

// encodeTestJPEG produces a solid-color JPEG of the given size.
func encodeTestJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeScalesToCanvasSize(t *testing.T) {
	// The sender's resolution is its own business; output is always 1920x1080.
	payload := encodeTestJPEG(t, 640, 360, color.RGBA{R: 200, A: 255})

	img, err := NewDecoder().Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != CanvasWidth || b.Dy() != CanvasHeight {
		t.Errorf("decoded size %dx%d, want %dx%d", b.Dx(), b.Dy(), CanvasWidth, CanvasHeight)
	}
}

func TestDecodeNativeSizePassthrough(t *testing.T) {
	payload := encodeTestJPEG(t, CanvasWidth, CanvasHeight, color.RGBA{G: 120, A: 255})

	img, err := NewDecoder().Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != CanvasWidth || b.Dy() != CanvasHeight {
		t.Errorf("decoded size %dx%d, want %dx%d", b.Dx(), b.Dy(), CanvasWidth, CanvasHeight)
	}
}

func TestDecodeCorruptPayload(t *testing.T) {
	for _, payload := range [][]byte{
		nil,
		{},
		[]byte("definitely not an image"),
		{0xff, 0xd8, 0x00, 0x01}, // truncated JPEG magic
	} {
		if _, err := NewDecoder().Decode(payload); err == nil {
			t.Errorf("expected decode error for %d-byte payload", len(payload))
		}
	}
}

func TestCanvasPaintReplacesWholesale(t *testing.T) {
	c := NewCanvas(CanvasWidth, CanvasHeight)
	if c.Generation() != 0 {
		t.Fatalf("fresh canvas generation = %d", c.Generation())
	}

	red := image.NewNRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))
	for i := 0; i < len(red.Pix); i += 4 {
		red.Pix[i] = 255
		red.Pix[i+3] = 255
	}
	c.Paint(red)

	if c.Generation() != 1 {
		t.Errorf("generation = %d after one paint", c.Generation())
	}
	if got := c.Snapshot().NRGBAAt(10, 10); got.R != 255 || got.G != 0 {
		t.Errorf("pixel = %v, want red", got)
	}
}

func TestCanvasPaintRescalesMismatchedSizes(t *testing.T) {
	c := NewCanvas(CanvasWidth, CanvasHeight)
	small := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	c.Paint(small)

	if b := c.Snapshot().Bounds(); b.Dx() != CanvasWidth || b.Dy() != CanvasHeight {
		t.Errorf("canvas buffer resized to %dx%d", b.Dx(), b.Dy())
	}
}

func TestCanvasConcurrentPaints(t *testing.T) {
	c := NewCanvas(64, 64)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Paint(image.NewNRGBA(image.Rect(0, 0, 64, 64)))
		}()
	}
	wg.Wait()

	if c.Generation() != 16 {
		t.Errorf("generation = %d after 16 paints", c.Generation())
	}
}

func TestRenderHalfBlocks(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	out := RenderHalfBlocks(img, 4, 2)

	if lines := strings.Split(out, "\n"); len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(lines))
	}
	if got := strings.Count(out, "▀"); got != 8 {
		t.Errorf("expected 8 cells, got %d", got)
	}
	if RenderHalfBlocks(nil, 4, 2) != "" {
		t.Error("nil image should render empty")
	}
	if RenderHalfBlocks(img, 0, 0) != "" {
		t.Error("zero-size viewport should render empty")
	}
}
