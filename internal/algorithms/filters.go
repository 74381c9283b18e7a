// Filter helpers shared by the portrait stages
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// gaussianBlur applies an isotropic Gaussian with sigma derived from the kernel size
func gaussianBlur(input gocv.Mat, kernelSize int) gocv.Mat {
	// Ensure kernel size is odd
	if kernelSize%2 == 0 {
		kernelSize++
	}

	output := gocv.NewMat()
	gocv.GaussianBlur(input, &output, image.Pt(kernelSize, kernelSize), 0, 0, gocv.BorderDefault)
	return output
}

// ensureGrayscale returns input itself when it is already single channel.
// Callers close the result only when its Ptr differs from input.
func ensureGrayscale(input gocv.Mat) gocv.Mat {
	if input.Channels() == 1 {
		return input
	}
	gray := gocv.NewMat()
	gocv.CvtColor(input, &gray, gocv.ColorBGRToGray)
	return gray
}

// requireColor checks the 8-bit BGR precondition every stage relies on
func requireColor(input gocv.Mat) error {
	if input.Empty() {
		return fmt.Errorf("input image is empty")
	}
	if input.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("expected 8-bit 3-channel image, got type %v", input.Type())
	}
	return nil
}

// requireSameSize checks that two Mats cover the same pixel grid
func requireSameSize(a, b gocv.Mat) error {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return fmt.Errorf("dimension mismatch: %dx%d vs %dx%d", a.Cols(), a.Rows(), b.Cols(), b.Rows())
	}
	return nil
}
