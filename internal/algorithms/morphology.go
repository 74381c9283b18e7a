// Morphological cleanup of binary foreground maps
package algorithms

import (
	"image"

	"gocv.io/x/gocv"
)

// cleanMask removes isolated foreground speckles and fills small holes in a
// 0/1 map: an opening followed by a closing with an elliptical element.
// kernelSize below 3 returns a copy.
func cleanMask(binary gocv.Mat, kernelSize int) gocv.Mat {
	if kernelSize < 3 {
		return binary.Clone()
	}
	if kernelSize%2 == 0 {
		kernelSize++
	}

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()

	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(binary, &opened, gocv.MorphOpen, kernel)

	output := gocv.NewMat()
	gocv.MorphologyEx(opened, &output, gocv.MorphClose, kernel)

	return output
}
