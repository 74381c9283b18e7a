// Adaptive gamma from luminance statistics
package algorithms

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

// MeanLuminance averages the grayscale derivative of img, in [0,255].
func MeanLuminance(img gocv.Mat) float64 {
	gray := ensureGrayscale(img)
	defer func() {
		if gray.Ptr() != img.Ptr() {
			gray.Close()
		}
	}()
	return gray.Mean().Val1
}

// GammaForLuminance interpolates linearly between the dark and bright
// anchors, holds the anchor value outside them, and bounds the result to
// [MinGamma, MaxGamma]. Dark images get gamma > 1 and are brightened.
func GammaForLuminance(mean float64, params ToneParams) float64 {
	var gamma float64
	switch {
	case mean <= params.DarkLuminance:
		gamma = params.DarkGamma
	case mean >= params.BrightLuminance:
		gamma = params.BrightGamma
	default:
		t := (mean - params.DarkLuminance) / (params.BrightLuminance - params.DarkLuminance)
		gamma = params.DarkGamma + t*(params.BrightGamma-params.DarkGamma)
	}
	return math.Min(math.Max(gamma, params.MinGamma), params.MaxGamma)
}

// GammaLUT maps i to 255*(i/255)^(1/gamma), truncated to 8 bits.
func GammaLUT(gamma float64) [256]uint8 {
	var lut [256]uint8
	inv := 1 / gamma
	for i := range lut {
		lut[i] = uint8(math.Pow(float64(i)/255, inv) * 255)
	}
	return lut
}

// NormalizeTone remaps every channel through the gamma derived from img's
// mean luminance and returns the gamma alongside the new image.
func NormalizeTone(img gocv.Mat, params ToneParams) (gocv.Mat, float64, error) {
	if err := requireColor(img); err != nil {
		return gocv.NewMat(), 0, err
	}

	gamma := GammaForLuminance(MeanLuminance(img), params)
	table := GammaLUT(gamma)

	lut, err := gocv.NewMatFromBytes(1, len(table), gocv.MatTypeCV8U, table[:])
	if err != nil {
		return gocv.NewMat(), 0, fmt.Errorf("failed to build gamma table: %w", err)
	}
	defer lut.Close()

	output := gocv.NewMat()
	gocv.LUT(img, lut, &output)
	return output, gamma, nil
}
