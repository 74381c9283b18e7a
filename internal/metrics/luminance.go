package metrics

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// LuminanceStats summarises the grayscale distribution of an image.
type LuminanceStats struct {
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Entropy float64 `json:"entropy_bits"`
}

// Luminance computes mean, standard deviation and Shannon entropy (bits)
// of the image's grayscale histogram.
func Luminance(input gocv.Mat) (LuminanceStats, error) {
	if input.Empty() {
		return LuminanceStats{}, fmt.Errorf("empty image")
	}

	values := grayValues(input)

	hist := make([]float64, 256)
	for _, v := range values {
		hist[int(v)]++
	}
	n := float64(len(values))
	for i := range hist {
		hist[i] /= n
	}

	mean, std := stat.MeanStdDev(values, nil)
	return LuminanceStats{
		Mean:    mean,
		StdDev:  std,
		Entropy: stat.Entropy(hist) / math.Ln2,
	}, nil
}
