// Depth-of-field compositing
package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Composite blends img over a heavily blurred copy of itself using mask
// as the foreground weight.
func Composite(img gocv.Mat, mask AlphaMask, params BokehParams) (gocv.Mat, error) {
	if err := requireColor(img); err != nil {
		return gocv.NewMat(), err
	}

	blurred := gaussianBlur(img, params.Kernel)
	defer blurred.Close()

	return Blend(img, blurred, mask)
}

// Blend computes foreground*mask + background*(1-mask) and quantises the
// result back to 8 bits with saturation.
func Blend(foreground, background gocv.Mat, mask AlphaMask) (gocv.Mat, error) {
	if err := requireSameSize(foreground, background); err != nil {
		return gocv.NewMat(), err
	}
	if err := requireSameSize(foreground, mask.Mat); err != nil {
		return gocv.NewMat(), fmt.Errorf("mask: %w", err)
	}
	if mask.Type() != gocv.MatTypeCV32FC3 {
		return gocv.NewMat(), fmt.Errorf("mask must be CV32FC3, got %v", mask.Type())
	}

	rows, cols := foreground.Rows(), foreground.Cols()

	fg := gocv.NewMat()
	defer fg.Close()
	foreground.ConvertTo(&fg, gocv.MatTypeCV32FC3)

	bg := gocv.NewMat()
	defer bg.Close()
	background.ConvertTo(&bg, gocv.MatTypeCV32FC3)

	ones := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 1, 1, 0), rows, cols, gocv.MatTypeCV32FC3)
	defer ones.Close()

	inverse := gocv.NewMat()
	defer inverse.Close()
	gocv.Subtract(ones, mask.Mat, &inverse)

	fgPart := gocv.NewMat()
	defer fgPart.Close()
	gocv.Multiply(fg, mask.Mat, &fgPart)

	bgPart := gocv.NewMat()
	defer bgPart.Close()
	gocv.Multiply(bg, inverse, &bgPart)

	sum := gocv.NewMat()
	defer sum.Close()
	gocv.Add(fgPart, bgPart, &sum)

	output := gocv.NewMat()
	sum.ConvertTo(&output, gocv.MatTypeCV8UC3)
	return output, nil
}
