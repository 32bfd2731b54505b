package capture

import (
	"fmt"
	"image"
	"strconv"
	"time"
)

// Result is one persisted capture: an image artifact paired with the text
// recognized in it. Results are immutable once the store assigns an ID.
type Result struct {
	// ID is assigned by the store, unique and monotonically increasing
	ID int64 `json:"id"`

	// CreatedAt is the Unix timestamp taken at capture time
	CreatedAt int64 `json:"created_at"`

	// ImagePath is the path of the saved PNG artifact
	ImagePath string `json:"image_path"`

	// ExtractedText is the backend's output; empty when recognition failed
	ExtractedText string `json:"extracted_text"`
}

// Time returns CreatedAt as a local time.Time.
func (r Result) Time() time.Time {
	return time.Unix(r.CreatedAt, 0)
}

// FormatID renders an ID the way it appears in URLs and messages.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseID parses an ID from a URL or argument. IDs are positive.
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Point is a position in screen pixel coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Box is a screen rectangle given by two corners, (X1,Y1) top-left and
// (X2,Y2) bottom-right, exclusive on the far edges.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// BoxFromPoints returns the box spanned by two arbitrary corners, normalized
// so that X1 <= X2 and Y1 <= Y2.
func BoxFromPoints(a, b Point) Box {
	return Box{
		X1: min(a.X, b.X),
		Y1: min(a.Y, b.Y),
		X2: max(a.X, b.X),
		Y2: max(a.Y, b.Y),
	}
}

// Normalize returns the box with corners reordered so X1 <= X2 and Y1 <= Y2.
func (b Box) Normalize() Box {
	return BoxFromPoints(Point{b.X1, b.Y1}, Point{b.X2, b.Y2})
}

// Width returns X2 - X1. It is negative for an unnormalized box.
func (b Box) Width() int {
	return b.X2 - b.X1
}

// Height returns Y2 - Y1. It is negative for an unnormalized box.
func (b Box) Height() int {
	return b.Y2 - b.Y1
}

// Empty reports whether the box has no area. Empty boxes are never captured.
func (b Box) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// String formats the box as "x1,y1-x2,y2 (WxH)".
func (b Box) String() string {
	return fmt.Sprintf("%d,%d-%d,%d (%dx%d)", b.X1, b.Y1, b.X2, b.Y2, b.Width(), b.Height())
}
