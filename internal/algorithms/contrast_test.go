package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhanceContrastPreservesDimensions(t *testing.T) {
	img := portraitImage(t, 96, 128, 100)

	out, err := EnhanceContrast(img, DefaultContrastParams())
	require.NoError(t, err)
	defer out.Close()

	requireSameShape(t, img, out)
}

func TestEnhanceContrastKeepsNeutralGrayNeutral(t *testing.T) {
	img := portraitImage(t, 64, 64, 110)
	gray := ensureGrayscale(img)
	defer gray.Close()

	neutral := gocvGrayToBGR(t, gray)

	out, err := EnhanceContrast(neutral, DefaultContrastParams())
	require.NoError(t, err)
	defer out.Close()

	data := out.ToBytes()
	for i := 0; i < len(data); i += 3 {
		b, g, r := int(data[i]), int(data[i+1]), int(data[i+2])
		require.LessOrEqual(t, absInt(b-g), 3, "pixel %d tinted", i/3)
		require.LessOrEqual(t, absInt(g-r), 3, "pixel %d tinted", i/3)
	}
}

func TestEnhanceContrastRaisesLocalContrast(t *testing.T) {
	img := portraitImage(t, 128, 128, 120)

	out, err := EnhanceContrast(img, DefaultContrastParams())
	require.NoError(t, err)
	defer out.Close()

	before := ensureGrayscale(img)
	defer before.Close()
	after := ensureGrayscale(out)
	defer after.Close()

	assert.Greater(t, stdDev(after.ToBytes()), stdDev(before.ToBytes()))
}
