package overlay

import (
	"math"

	"github.com/hpungsan/grabtext/internal/capture"
)

// ToPixels converts a pointer position reported by the toolkit in
// device-independent units into a screen pixel. scale is the canvas scale
// factor and origin the pixel position of the overlay's top-left corner on
// the virtual desktop.
func ToPixels(x, y, scale float32, origin capture.Point) capture.Point {
	if scale <= 0 {
		scale = 1
	}
	return capture.Point{
		X: origin.X + int(math.Round(float64(x*scale))),
		Y: origin.Y + int(math.Round(float64(y*scale))),
	}
}
