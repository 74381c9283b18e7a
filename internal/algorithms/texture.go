// Texture enhancement: denoise, smooth, then re-sharpen
package algorithms

import (
	"image"

	"gocv.io/x/gocv"
)

// EnhanceTexture denoises, applies an edge-preserving smooth, then sharpens.
// Sharpening must come last.
func EnhanceTexture(img gocv.Mat, params TextureParams) (gocv.Mat, error) {
	if err := requireColor(img); err != nil {
		return gocv.NewMat(), err
	}

	denoised := gocv.NewMat()
	defer denoised.Close()
	gocv.FastNlMeansDenoisingColoredWithParams(img, &denoised, params.H, params.HColor, params.TemplateWindow, params.SearchWindow)

	smooth := gocv.NewMat()
	defer smooth.Close()
	gocv.BilateralFilter(denoised, &smooth, params.BilateralDiameter, params.SigmaColor, params.SigmaSpace)

	return Sharpen(smooth, params.SharpenSigma, params.SharpenAmount), nil
}

// Sharpen applies an unsharp mask: amount*img + (1-amount)*blur(img),
// saturated to the 8-bit range.
func Sharpen(img gocv.Mat, sigma, amount float64) gocv.Mat {
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(img, &blurred, image.Pt(0, 0), sigma, sigma, gocv.BorderDefault)

	sharp := gocv.NewMat()
	gocv.AddWeighted(img, amount, blurred, 1-amount, 0, &sharp)
	return sharp
}
