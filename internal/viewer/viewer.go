// Package viewer prepares a capture for the read-only detail view: the
// artifact scaled to a bounded viewport next to the full extracted text.
package viewer

import (
	stderrors "errors"
	"fmt"
	"image"
	"io/fs"

	"github.com/disintegration/imaging"

	"github.com/hpungsan/grabtext/internal/errors"
)

// Viewport bounds for the scaled artifact.
const (
	MaxWidth  = 400
	MaxHeight = 400
)

// Detail is one opened capture. Each Open returns a fresh value that shares
// nothing with the list it came from.
type Detail struct {
	Path string
	Text string

	// Image is the artifact scaled to fit MaxWidth x MaxHeight with its
	// aspect ratio kept. Images already inside the viewport are not
	// enlarged.
	Image image.Image

	// Original is the artifact's size before scaling.
	Original image.Point
}

// Open loads the artifact at path and pairs it with text.
func Open(path, text string) (*Detail, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewInternal(fmt.Errorf("open artifact: %w", err))
	}

	return &Detail{
		Path:     path,
		Text:     text,
		Image:    Fit(img),
		Original: img.Bounds().Size(),
	}, nil
}

// Fit scales img down to the viewport with Lanczos resampling.
func Fit(img image.Image) image.Image {
	return imaging.Fit(img, MaxWidth, MaxHeight, imaging.Lanczos)
}
