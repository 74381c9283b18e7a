// Concrete implementations of quality metrics
package metrics

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// PSNR implements Peak Signal-to-Noise Ratio on the luminance channel
type PSNR struct{}

func NewPSNR() *PSNR {
	return &PSNR{}
}

func (p *PSNR) Calculate(original, processed gocv.Mat) (float64, error) {
	a, b, err := grayPair(original, processed)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	mse := sum / float64(len(a))

	_, top := p.GetRange()
	if mse == 0 {
		return top, nil
	}
	return math.Min(10*math.Log10(255*255/mse), top), nil
}

func (p *PSNR) GetName() string {
	return "PSNR"
}

func (p *PSNR) GetDescription() string {
	return "Peak Signal-to-Noise Ratio between stage input and output"
}

func (p *PSNR) GetRange() (float64, float64) {
	return 0, 100
}

func (p *PSNR) IsHigherBetter() bool {
	return true
}

// SSIM implements a single-window Structural Similarity Index
type SSIM struct{}

func NewSSIM() *SSIM {
	return &SSIM{}
}

func (s *SSIM) Calculate(original, processed gocv.Mat) (float64, error) {
	a, b, err := grayPair(original, processed)
	if err != nil {
		return 0, err
	}

	const (
		c1 = (0.01 * 255) * (0.01 * 255)
		c2 = (0.03 * 255) * (0.03 * 255)
	)

	muA, muB := stat.Mean(a, nil), stat.Mean(b, nil)
	varA, varB := stat.Variance(a, nil), stat.Variance(b, nil)
	cov := stat.Covariance(a, b, nil)

	num := (2*muA*muB + c1) * (2*cov + c2)
	den := (muA*muA + muB*muB + c1) * (varA + varB + c2)
	return num / den, nil
}

func (s *SSIM) GetName() string {
	return "SSIM"
}

func (s *SSIM) GetDescription() string {
	return "Structural similarity between stage input and output"
}

func (s *SSIM) GetRange() (float64, float64) {
	return -1, 1
}

func (s *SSIM) IsHigherBetter() bool {
	return true
}

// SharpnessGain compares the variance of the Laplacian after and before
type SharpnessGain struct{}

func NewSharpnessGain() *SharpnessGain {
	return &SharpnessGain{}
}

func (s *SharpnessGain) Calculate(original, processed gocv.Mat) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}

	before, err := Sharpness(original)
	if err != nil {
		return 0, err
	}
	after, err := Sharpness(processed)
	if err != nil {
		return 0, err
	}
	if before == 0 {
		return 1, nil
	}
	return after / before, nil
}

func (s *SharpnessGain) GetName() string {
	return "Sharpness Gain"
}

func (s *SharpnessGain) GetDescription() string {
	return "Ratio of Laplacian variance after and before the stage"
}

func (s *SharpnessGain) GetRange() (float64, float64) {
	return 0, 10
}

func (s *SharpnessGain) IsHigherBetter() bool {
	return true
}

// ContrastGain compares luminance standard deviation after and before
type ContrastGain struct{}

func NewContrastGain() *ContrastGain {
	return &ContrastGain{}
}

func (c *ContrastGain) Calculate(original, processed gocv.Mat) (float64, error) {
	a, b, err := grayPair(original, processed)
	if err != nil {
		return 0, err
	}
	before := stat.StdDev(a, nil)
	if before == 0 {
		return 1, nil
	}
	return stat.StdDev(b, nil) / before, nil
}

func (c *ContrastGain) GetName() string {
	return "Contrast Gain"
}

func (c *ContrastGain) GetDescription() string {
	return "Ratio of luminance standard deviation after and before the stage"
}

func (c *ContrastGain) GetRange() (float64, float64) {
	return 0, 10
}

func (c *ContrastGain) IsHigherBetter() bool {
	return true
}

// LuminanceShift is the change in mean luminance
type LuminanceShift struct{}

func NewLuminanceShift() *LuminanceShift {
	return &LuminanceShift{}
}

func (l *LuminanceShift) Calculate(original, processed gocv.Mat) (float64, error) {
	a, b, err := grayPair(original, processed)
	if err != nil {
		return 0, err
	}
	return stat.Mean(b, nil) - stat.Mean(a, nil), nil
}

func (l *LuminanceShift) GetName() string {
	return "Luminance Shift"
}

func (l *LuminanceShift) GetDescription() string {
	return "Change in mean luminance across the stage"
}

func (l *LuminanceShift) GetRange() (float64, float64) {
	return -255, 255
}

func (l *LuminanceShift) IsHigherBetter() bool {
	return false
}

// Sharpness is the variance of the Laplacian of the luminance channel
func Sharpness(input gocv.Mat) (float64, error) {
	gray := ensureGrayscale(input)
	defer func() {
		if gray.Ptr() != input.Ptr() {
			gray.Close()
		}
	}()

	laplacian := gocv.NewMat()
	defer laplacian.Close()
	gocv.Laplacian(gray, &laplacian, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	values, err := laplacian.DataPtrFloat64()
	if err != nil {
		return 0, fmt.Errorf("failed to read laplacian: %w", err)
	}
	return stat.Variance(values, nil), nil
}

func checkPair(original, processed gocv.Mat) error {
	if original.Empty() || processed.Empty() {
		return fmt.Errorf("empty images")
	}
	if original.Rows() != processed.Rows() || original.Cols() != processed.Cols() {
		return fmt.Errorf("image dimensions mismatch")
	}
	return nil
}

func grayPair(original, processed gocv.Mat) ([]float64, []float64, error) {
	if err := checkPair(original, processed); err != nil {
		return nil, nil, err
	}
	return grayValues(original), grayValues(processed), nil
}

func grayValues(input gocv.Mat) []float64 {
	gray := ensureGrayscale(input)
	defer func() {
		if gray.Ptr() != input.Ptr() {
			gray.Close()
		}
	}()

	data := gray.ToBytes()
	values := make([]float64, len(data))
	for i, v := range data {
		values[i] = float64(v)
	}
	return values
}

func ensureGrayscale(input gocv.Mat) gocv.Mat {
	if input.Channels() == 1 {
		return input
	}
	gray := gocv.NewMat()
	gocv.CvtColor(input, &gray, gocv.ColorBGRToGray)
	return gray
}
