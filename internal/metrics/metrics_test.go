package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func gradient(t *testing.T, rows, cols int, offset int) gocv.Mat {
	t.Helper()
	data := make([]byte, rows*cols*3)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := byte((x*255/cols + offset) % 256)
			i := (y*cols + x) * 3
			data[i], data[i+1], data[i+2] = v, v, v
		}
	}
	mat, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)
	t.Cleanup(func() { mat.Close() })
	return mat
}

func TestIdenticalImages(t *testing.T) {
	img := gradient(t, 32, 64, 0)
	e := NewEvaluator()

	psnr, err := e.Calculate("psnr", img, img)
	require.NoError(t, err)
	assert.Equal(t, 100.0, psnr)

	ssim, err := e.Calculate("ssim", img, img)
	require.NoError(t, err)
	assert.InDelta(t, 1, ssim, 1e-9)

	shift, err := e.Calculate("luminance_shift", img, img)
	require.NoError(t, err)
	assert.InDelta(t, 0, shift, 1e-9)

	gain, err := e.Calculate("contrast_gain", img, img)
	require.NoError(t, err)
	assert.InDelta(t, 1, gain, 1e-9)
}

func TestLuminanceShift(t *testing.T) {
	dark := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(50, 50, 50, 0), 10, 10, gocv.MatTypeCV8UC3)
	defer dark.Close()
	bright := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(80, 80, 80, 0), 10, 10, gocv.MatTypeCV8UC3)
	defer bright.Close()

	shift, err := NewLuminanceShift().Calculate(dark, bright)
	require.NoError(t, err)
	assert.InDelta(t, 30, shift, 0.5)

	psnr, err := NewPSNR().Calculate(dark, bright)
	require.NoError(t, err)
	assert.InDelta(t, 10*math.Log10(255*255/900.0), psnr, 0.1)
}

func TestDimensionMismatch(t *testing.T) {
	a := gradient(t, 10, 10, 0)
	b := gradient(t, 12, 10, 0)

	_, err := NewSSIM().Calculate(a, b)
	assert.Error(t, err)

	assert.Empty(t, NewEvaluator().CalculateAll(a, b))
}

func TestEvaluateStepSelectsStageMetrics(t *testing.T) {
	a := gradient(t, 16, 16, 0)
	b := gradient(t, 16, 16, 10)

	got := NewEvaluator().EvaluateStep(a, b, "tone_mapped")
	assert.Len(t, got, 2)
	assert.Contains(t, got, "luminance_shift")
	assert.Contains(t, got, "contrast_gain")

	assert.Nil(t, NewEvaluator().EvaluateStep(gocv.NewMat(), b, "textured"))
}

func TestLuminance(t *testing.T) {
	flat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(120, 120, 120, 0), 8, 8, gocv.MatTypeCV8UC3)
	defer flat.Close()

	stats, err := Luminance(flat)
	require.NoError(t, err)
	assert.InDelta(t, 120, stats.Mean, 0.5)
	assert.InDelta(t, 0, stats.StdDev, 1e-9)
	assert.InDelta(t, 0, stats.Entropy, 1e-9)

	// Two equally likely levels carry one bit
	half := gradient(t, 4, 2, 0)
	stats, err = Luminance(half)
	require.NoError(t, err)
	assert.InDelta(t, 1, stats.Entropy, 1e-9)
}

func TestSharpnessFlatImage(t *testing.T) {
	flat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 8, 8, gocv.MatTypeCV8UC3)
	defer flat.Close()

	s, err := Sharpness(flat)
	require.NoError(t, err)
	assert.InDelta(t, 0, s, 1e-9)

	gain, err := NewSharpnessGain().Calculate(flat, flat)
	require.NoError(t, err)
	assert.Equal(t, 1.0, gain)
}
