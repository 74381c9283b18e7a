package algorithms

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// fakeDetector returns canned faces and records what it was given
type fakeDetector struct {
	faces    []image.Rectangle
	calls    int
	channels int
	params   DetectParams
}

func (f *fakeDetector) DetectMultiScale(gray gocv.Mat, params DetectParams) []image.Rectangle {
	f.calls++
	f.channels = gray.Channels()
	f.params = params
	return f.faces
}

func solidImage(t *testing.T, rows, cols int, b, g, r float64) gocv.Mat {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { img.Close() })
	return img
}

// portraitImage draws a bright elliptical "head" over a darker torso and a
// graded backdrop, with deterministic noise, around the given base level.
func portraitImage(t *testing.T, rows, cols int, base float64) gocv.Mat {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	data := make([]byte, rows*cols*3)

	cx, cy := float64(cols)/2, float64(rows)*0.4
	rx, ry := float64(cols)*0.12, float64(rows)*0.2

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			dx, dy := (float64(x)-cx)/rx, (float64(y)-cy)/ry
			var b, g, r float64
			switch {
			case dx*dx+dy*dy <= 1:
				b, g, r = base+10, base+30, base+55
			case y > int(cy+ry) && math.Abs(float64(x)-cx) < rx*2.2:
				b, g, r = base-35, base-40, base-30
			default:
				shade := 25 * float64(x) / float64(cols)
				b, g, r = base-10+shade, base-5+shade, base-20+shade
			}
			noise := rng.NormFloat64() * 4
			i := (y*cols + x) * 3
			data[i] = clampByte(b + noise)
			data[i+1] = clampByte(g + noise)
			data[i+2] = clampByte(r + noise)
		}
	}

	img, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })
	return img
}

func clampByte(v float64) byte {
	return byte(math.Max(0, math.Min(255, math.Round(v))))
}

// maxAbsDiff is the largest per-byte difference between two same-sized Mats
func maxAbsDiff(t *testing.T, a, b gocv.Mat) int {
	t.Helper()
	require.Equal(t, a.Rows(), b.Rows())
	require.Equal(t, a.Cols(), b.Cols())
	require.Equal(t, a.Channels(), b.Channels())

	ab, bb := a.ToBytes(), b.ToBytes()
	worst := 0
	for i := range ab {
		d := int(ab[i]) - int(bb[i])
		if d < 0 {
			d = -d
		}
		worst = max(worst, d)
	}
	return worst
}

func requireSameShape(t *testing.T, want, got gocv.Mat) {
	t.Helper()
	require.False(t, got.Empty())
	require.Equal(t, want.Rows(), got.Rows(), "height changed")
	require.Equal(t, want.Cols(), got.Cols(), "width changed")
	require.Equal(t, want.Channels(), got.Channels(), "channel count changed")
}

func gocvGrayToBGR(t *testing.T, gray gocv.Mat) gocv.Mat {
	t.Helper()
	bgr := gocv.NewMat()
	gocv.CvtColor(gray, &bgr, gocv.ColorGrayToBGR)
	t.Cleanup(func() { bgr.Close() })
	return bgr
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func stdDev(data []byte) float64 {
	var sum, sq float64
	for _, v := range data {
		sum += float64(v)
		sq += float64(v) * float64(v)
	}
	n := float64(len(data))
	mean := sum / n
	return math.Sqrt(sq/n - mean*mean)
}
