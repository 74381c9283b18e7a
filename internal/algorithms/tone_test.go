package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGammaForLuminance(t *testing.T) {
	params := DefaultToneParams()
	tests := []struct {
		name string
		mean float64
		want float64
	}{
		{"black", 0, 1.6},
		{"dark anchor", 50, 1.6},
		{"midpoint", 125, 1.25},
		{"typical portrait", 120, 1.6 - 0.7*70.0/150.0},
		{"bright anchor", 200, 0.9},
		{"white", 255, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, GammaForLuminance(tt.mean, params), 1e-9)
		})
	}
}

func TestGammaForLuminanceBounds(t *testing.T) {
	params := DefaultToneParams()
	for mean := 0.0; mean <= 255; mean += 0.5 {
		gamma := GammaForLuminance(mean, params)
		assert.GreaterOrEqual(t, gamma, 0.85)
		assert.LessOrEqual(t, gamma, 1.6)
	}

	// Anchors outside the bound are clamped
	wide := params
	wide.DarkGamma = 3
	wide.BrightGamma = 0.2
	assert.Equal(t, 1.6, GammaForLuminance(10, wide))
	assert.Equal(t, 0.85, GammaForLuminance(240, wide))
}

func TestGammaLUT(t *testing.T) {
	identity := GammaLUT(1)
	for i, v := range identity {
		assert.Equal(t, uint8(i), v)
	}

	brighten := GammaLUT(1.6)
	assert.Equal(t, uint8(0), brighten[0])
	assert.Equal(t, uint8(255), brighten[255])
	assert.Greater(t, brighten[128], uint8(128))

	darken := GammaLUT(0.9)
	assert.Less(t, darken[128], uint8(128))
}

func TestNormalizeTone(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		gamma float64
	}{
		{"dark image brightened", 30, 1.6},
		{"bright image compressed", 220, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := solidImage(t, 20, 30, tt.level, tt.level, tt.level)

			out, gamma, err := NormalizeTone(img, DefaultToneParams())
			require.NoError(t, err)
			defer out.Close()

			requireSameShape(t, img, out)
			assert.InDelta(t, tt.gamma, gamma, 1e-9)

			want := GammaLUT(tt.gamma)[int(tt.level)]
			px := out.GetVecbAt(10, 10)
			assert.Equal(t, []uint8{want, want, want}, []uint8{px[0], px[1], px[2]})
		})
	}
}

func TestMeanLuminance(t *testing.T) {
	img := solidImage(t, 10, 10, 120, 120, 120)
	assert.InDelta(t, 120, MeanLuminance(img), 0.5)
}
