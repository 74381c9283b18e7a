// Image validation shared by every pipeline entry point
package core

import (
	"fmt"

	"gocv.io/x/gocv"
)

// maxDimension bounds accepted images to keep memory use predictable
const maxDimension = 16384

// ImageInfo describes an image handed to or produced by the pipeline
type ImageInfo struct {
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	Channels int          `json:"channels"`
	Type     gocv.MatType `json:"-"`
}

func Describe(mat gocv.Mat) ImageInfo {
	if mat.Empty() {
		return ImageInfo{}
	}
	return ImageInfo{
		Width:    mat.Cols(),
		Height:   mat.Rows(),
		Channels: mat.Channels(),
		Type:     mat.Type(),
	}
}

// ValidateImage checks that mat is a usable 8-bit BGR image
func ValidateImage(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("image is empty")
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", mat.Cols(), mat.Rows())
	}

	if mat.Cols() > maxDimension || mat.Rows() > maxDimension {
		return fmt.Errorf("image too large: %dx%d (max: %d)", mat.Cols(), mat.Rows(), maxDimension)
	}

	if mat.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("unsupported image type %v with %d channels, want 8-bit BGR", mat.Type(), mat.Channels())
	}

	return nil
}
