// Shared data types for the portrait stages
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// BoundingBox is a detected face region in pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoxFromRect converts a detector rectangle into a BoundingBox
func BoxFromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.X, b.Y, b.Width, b.Height)
}

// AlphaMask holds per-pixel foreground confidence in [0,1] as a CV32FC3 Mat.
// Higher values mean more foreground and are used directly as blend weights.
type AlphaMask struct {
	gocv.Mat
}

// NewUniformAlphaMask creates a mask with the same weight everywhere
func NewUniformAlphaMask(rows, cols int, value float64) AlphaMask {
	return AlphaMask{
		Mat: gocv.NewMatWithSizeFromScalar(gocv.NewScalar(value, value, value, 0), rows, cols, gocv.MatTypeCV32FC3),
	}
}

// Range returns the smallest and largest weight over all channels.
func (m AlphaMask) Range() (float64, float64) {
	channels := gocv.Split(m.Mat)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	lo, hi := 1.0, 0.0
	for _, c := range channels {
		minVal, maxVal, _, _ := gocv.MinMaxLoc(c)
		lo = min(lo, float64(minVal))
		hi = max(hi, float64(maxVal))
	}
	return lo, hi
}
