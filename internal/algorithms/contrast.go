// Local contrast enhancement on luminance only
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// EnhanceContrast equalises the L channel of the Lab representation tile by
// tile with clipping, leaving the colour channels untouched.
func EnhanceContrast(img gocv.Mat, params ContrastParams) (gocv.Mat, error) {
	if err := requireColor(img); err != nil {
		return gocv.NewMat(), err
	}

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(img, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if len(channels) != 3 {
		return gocv.NewMat(), fmt.Errorf("expected 3 Lab channels, got %d", len(channels))
	}

	clahe := gocv.NewCLAHEWithParams(params.ClipLimit, image.Pt(params.TileGrid, params.TileGrid))
	defer clahe.Close()

	lightness := gocv.NewMat()
	clahe.Apply(channels[0], &lightness)
	channels[0].Close()
	channels[0] = lightness

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)

	output := gocv.NewMat()
	gocv.CvtColor(merged, &output, gocv.ColorLabToBGR)
	return output, nil
}
