// Package screen reads pixels from the display.
package screen

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/hpungsan/grabtext/internal/capture"
)

// Grabber reads the pixels under a screen rectangle.
type Grabber interface {
	Grab(box capture.Box) (image.Image, error)
}

// Display grabs from the real screen via the platform capture API.
type Display struct{}

// NewDisplay returns a Grabber backed by the OS display.
func NewDisplay() *Display {
	return &Display{}
}

// Grab captures box from the virtual desktop (all displays). The box is in
// screen pixels, not device-independent units.
func (d *Display) Grab(box capture.Box) (image.Image, error) {
	box = box.Normalize()
	if box.Empty() {
		return nil, fmt.Errorf("empty region %s", box)
	}
	if screenshot.NumActiveDisplays() == 0 {
		return nil, fmt.Errorf("no active display")
	}
	img, err := screenshot.CaptureRect(box.Rect())
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", box, err)
	}
	return img, nil
}

// PrimaryBounds returns the pixel rectangle of the main display, where the
// selection overlay opens.
func PrimaryBounds() image.Rectangle {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}
	}
	return screenshot.GetDisplayBounds(0)
}
