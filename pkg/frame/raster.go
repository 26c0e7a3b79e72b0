package frame

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// RenderHalfBlocks downsamples img to a cols x rows cell grid and renders it
// as truecolor half-block characters, two pixels per terminal cell (the upper
// pixel as foreground over the lower as background). The pixel buffer itself
// is never resized by display; this is a view of it.
func RenderHalfBlocks(img *image.NRGBA, cols, rows int) string {
	if img == nil || cols < 1 || rows < 1 {
		return ""
	}

	small := imaging.Resize(img, cols, rows*2, imaging.Box)

	var sb strings.Builder
	sb.Grow(cols * rows * 24)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			top := small.NRGBAAt(x, y*2)
			bot := small.NRGBAAt(x, y*2+1)
			fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bot.R, bot.G, bot.B)
		}
		sb.WriteString("\x1b[0m")
		if y < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
