// Foreground segmentation seeded from a face box
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GrabCut pixel labels
const (
	labelBackground         = 0
	labelForeground         = 1
	labelProbableBackground = 2
	labelProbableForeground = 3
)

// GrabCut fits 5-component colour models, so both the seed and the
// area outside it need at least that many pixels.
const gmmComponents = 5

// SeedRect derives the GrabCut initialisation rectangle for a frame of
// width x height. Without a face the frame inset on every side is used.
// With a face the box is grown by one face width/height up and left and
// doubled in size, clamped to the frame. The result is never smaller than 1x1.
func SeedRect(face *BoundingBox, width, height, inset int) image.Rectangle {
	var x, y, w, h int
	if face == nil {
		x, y = inset, inset
		w, h = width-2*inset, height-2*inset
	} else {
		x = max(face.X-face.Width, 0)
		y = max(face.Y-face.Height, 0)
		w = min(2*face.Width, width-face.X)
		h = min(2*face.Height, height-face.Y)
	}
	return clampRect(x, y, w, h, width, height)
}

func clampRect(x, y, w, h, width, height int) image.Rectangle {
	x = min(max(x, 0), width-1)
	y = min(max(y, 0), height-1)
	w = min(max(w, 1), width-x)
	h = min(max(h, 1), height-y)
	return image.Rect(x, y, x+w, y+h)
}

// Segmentation is the output of the foreground segmenter.
type Segmentation struct {
	Mask AlphaMask
	Seed image.Rectangle
	// Refined is false when the seed was too degenerate for GrabCut and
	// was used as the mask directly.
	Refined bool
}

func (s *Segmentation) Close() {
	s.Mask.Close()
}

// Segment produces a feathered 3-channel foreground mask for img.
func Segment(img gocv.Mat, face *BoundingBox, params SegmentParams) (*Segmentation, error) {
	if err := requireColor(img); err != nil {
		return nil, err
	}

	rows, cols := img.Rows(), img.Cols()
	seed := SeedRect(face, cols, rows, params.Inset)

	var binary []byte
	refined := canRefine(seed, cols, rows)
	if refined {
		labels, err := grabCutLabels(img, seed, params.Iterations)
		if err != nil {
			return nil, err
		}
		binary = foregroundFromLabels(labels)
	} else {
		binary = foregroundFromRect(seed, cols, rows)
	}

	mask, err := featherMask(binary, rows, cols, params.FeatherKernel, params.CleanupKernel)
	if err != nil {
		return nil, err
	}

	return &Segmentation{Mask: mask, Seed: seed, Refined: refined}, nil
}

func canRefine(seed image.Rectangle, width, height int) bool {
	inside := seed.Dx() * seed.Dy()
	outside := width*height - inside
	return inside >= gmmComponents && outside >= gmmComponents
}

func grabCutLabels(img gocv.Mat, seed image.Rectangle, iterations int) ([]byte, error) {
	mask := gocv.NewMat()
	defer mask.Close()
	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	gocv.GrabCut(img, &mask, seed, &bgdModel, &fgdModel, iterations, gocv.GCInitWithRect)
	if mask.Empty() || mask.Rows() != img.Rows() || mask.Cols() != img.Cols() {
		return nil, fmt.Errorf("grabcut produced no label map")
	}
	return mask.ToBytes(), nil
}

// foregroundFromLabels collapses definite and probable foreground to 1
func foregroundFromLabels(labels []byte) []byte {
	binary := make([]byte, len(labels))
	for i, label := range labels {
		if label == labelForeground || label == labelProbableForeground {
			binary[i] = 1
		}
	}
	return binary
}

func foregroundFromRect(seed image.Rectangle, width, height int) []byte {
	binary := make([]byte, width*height)
	for y := seed.Min.Y; y < seed.Max.Y; y++ {
		row := y * width
		for x := seed.Min.X; x < seed.Max.X; x++ {
			binary[row+x] = 1
		}
	}
	return binary
}

// featherMask optionally cleans a 0/1 map, blurs it into soft edges and
// replicates it to 3 channels
func featherMask(binary []byte, rows, cols, kernel, cleanup int) (AlphaMask, error) {
	raw, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8U, binary)
	if err != nil {
		return AlphaMask{}, fmt.Errorf("failed to build binary mask: %w", err)
	}
	defer raw.Close()

	hard := cleanMask(raw, cleanup)
	defer hard.Close()

	weights := gocv.NewMat()
	defer weights.Close()
	hard.ConvertTo(&weights, gocv.MatTypeCV32F)

	soft := gaussianBlur(weights, kernel)
	defer soft.Close()

	// Keep float rounding in the blur from pushing weights past 1
	clamped := gocv.NewMat()
	defer clamped.Close()
	gocv.Threshold(soft, &clamped, 1, 1, gocv.ThresholdTrunc)

	alpha := gocv.NewMat()
	gocv.Merge([]gocv.Mat{clamped, clamped, clamped}, &alpha)
	return AlphaMask{Mat: alpha}, nil
}
