package core

import (
	"context"
	"errors"
	"image"
	"io"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"studio-portrait/internal/algorithms"
)

type fakeDetector struct {
	faces []image.Rectangle
	calls int
}

func (f *fakeDetector) DetectMultiScale(gray gocv.Mat, params algorithms.DetectParams) []image.Rectangle {
	f.calls++
	return f.faces
}

// memorySource serves images from a map and counts loads
type memorySource struct {
	images map[string]gocv.Mat
	loads  int
}

func (m *memorySource) Load(ctx context.Context, handle string) (gocv.Mat, error) {
	m.loads++
	img, ok := m.images[handle]
	if !ok {
		return gocv.NewMat(), errors.New("no such image")
	}
	return img.Clone(), nil
}

type memorySink struct {
	saved map[string]ImageInfo
}

func (m *memorySink) Save(ctx context.Context, handle string, mat gocv.Mat) error {
	if m.saved == nil {
		m.saved = make(map[string]ImageInfo)
	}
	m.saved[handle] = Describe(mat)
	return nil
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func noisyPortrait(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	data := make([]byte, rows*cols*3)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			level := 90 + 60*float64(x)/float64(cols)
			if x > cols/3 && x < 2*cols/3 && y > rows/5 {
				level += 40
			}
			for c := 0; c < 3; c++ {
				v := level + rng.NormFloat64()*5
				if v < 0 {
					v = 0
				}
				if v > 255 {
					v = 255
				}
				data[(y*cols+x)*3+c] = byte(v)
			}
		}
	}
	img, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })
	return img
}

func newTestPipeline(t *testing.T, detector algorithms.Detector, opts Options) *Pipeline {
	t.Helper()
	p, err := NewPipeline(detector, opts, quietLogger())
	require.NoError(t, err)
	return p
}

func TestNewPipelineRequiresDetector(t *testing.T) {
	p, err := NewPipeline(nil, DefaultOptions(), quietLogger())
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrDetectorUnavailable)
}

func TestGenerateEndToEnd(t *testing.T) {
	img := noisyPortrait(t, 480, 640)
	before := img.Clone()
	defer before.Close()

	detector := &fakeDetector{faces: []image.Rectangle{image.Rect(260, 120, 380, 240)}}
	p := newTestPipeline(t, detector, DefaultOptions())

	result, err := p.Generate(img)
	require.NoError(t, err)
	defer result.Close()

	assert.Equal(t, 1, detector.calls)
	assert.Equal(t, 640, result.Image.Cols())
	assert.Equal(t, 480, result.Image.Rows())
	assert.Equal(t, gocv.MatTypeCV8UC3, result.Image.Type())

	assert.Greater(t, result.Gamma, 0.9)
	assert.Less(t, result.Gamma, 1.6)

	require.True(t, result.FaceFound())
	assert.Equal(t, algorithms.BoundingBox{X: 260, Y: 120, Width: 120, Height: 120}, *result.Face)
	assert.Equal(t, StageDone, result.Stage)

	require.Len(t, result.Trace, 6)
	for i, record := range result.Trace {
		assert.Equal(t, Stage(i+1), record.Stage)
		assert.Nil(t, record.Metrics)
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(img, before, &diff)
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)
	assert.Zero(t, gocv.CountNonZero(gray), "input must not be modified")
}

func TestGenerateWithoutFaceUsesInsetFrame(t *testing.T) {
	img := noisyPortrait(t, 480, 640)
	p := newTestPipeline(t, &fakeDetector{}, DefaultOptions())

	result, err := p.Generate(img)
	require.NoError(t, err)
	defer result.Close()

	assert.False(t, result.FaceFound())
	assert.Equal(t, image.Rect(10, 10, 630, 470), result.Seed)
	assert.Equal(t, 640, result.Image.Cols())
	assert.Equal(t, 480, result.Image.Rows())
}

func TestGenerateCollectsMetrics(t *testing.T) {
	img := noisyPortrait(t, 240, 320)
	opts := DefaultOptions()
	opts.CollectMetrics = true
	p := newTestPipeline(t, &fakeDetector{}, opts)

	result, err := p.Generate(img)
	require.NoError(t, err)
	defer result.Close()

	byStage := make(map[Stage]StageRecord)
	for _, record := range result.Trace {
		byStage[record.Stage] = record
	}
	assert.Nil(t, byStage[StageSegmented].Metrics)
	assert.Contains(t, byStage[StageComposited].Metrics, "psnr")
	assert.Contains(t, byStage[StageToneMapped].Metrics, "luminance_shift")
	assert.Contains(t, byStage[StageContrastEnhanced].Metrics, "contrast_gain")
	assert.InDelta(t, 128, byStage[StageDone].Metrics["mean_luminance"], 127)
	assert.Greater(t, byStage[StageDone].Metrics["entropy_bits"], 0.0)
}

func TestGenerateRejectsInvalidImage(t *testing.T) {
	p := newTestPipeline(t, &fakeDetector{}, DefaultOptions())

	empty := gocv.NewMat()
	defer empty.Close()
	_, err := p.Generate(empty)
	assert.ErrorIs(t, err, ErrInvalidImage)

	gray := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC1)
	defer gray.Close()
	_, err = p.Generate(gray)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestGenerateFromSourceFatalLoad(t *testing.T) {
	detector := &fakeDetector{}
	p := newTestPipeline(t, detector, DefaultOptions())
	source := &memorySource{images: map[string]gocv.Mat{}}

	result, err := p.GenerateFromSource(context.Background(), source, "missing.jpg")
	assert.Nil(t, result)
	require.ErrorIs(t, err, ErrFatalLoad)
	assert.Contains(t, err.Error(), "missing.jpg")
	assert.Equal(t, 1, source.loads)
	assert.Zero(t, detector.calls, "no stage may run after a failed load")
}

func TestGenerateFromSourceRejectsUndecodable(t *testing.T) {
	detector := &fakeDetector{}
	p := newTestPipeline(t, detector, DefaultOptions())

	gray := gocv.NewMatWithSize(16, 16, gocv.MatTypeCV8UC1)
	defer gray.Close()
	source := &memorySource{images: map[string]gocv.Mat{"gray.png": gray}}

	_, err := p.GenerateFromSource(context.Background(), source, "gray.png")
	assert.ErrorIs(t, err, ErrFatalLoad)
	assert.Zero(t, detector.calls)
}

func TestProcessSavesResult(t *testing.T) {
	img := noisyPortrait(t, 120, 160)
	source := &memorySource{images: map[string]gocv.Mat{"in.jpg": img}}
	sink := &memorySink{}
	p := newTestPipeline(t, &fakeDetector{}, DefaultOptions())

	result, err := p.Process(context.Background(), source, sink, "in.jpg", "out.jpg")
	require.NoError(t, err)
	defer result.Close()

	require.Contains(t, sink.saved, "out.jpg")
	assert.Equal(t, ImageInfo{Width: 160, Height: 120, Channels: 3, Type: gocv.MatTypeCV8UC3}, sink.saved["out.jpg"])
}

func TestStageOrder(t *testing.T) {
	names := []string{"loaded", "segmented", "composited", "textured", "tone_mapped", "contrast_enhanced", "done"}

	stage := StageLoaded
	for i, name := range names {
		assert.Equal(t, name, stage.String())
		if i < len(names)-1 {
			assert.Equal(t, stage+1, stage.Next())
		}
		stage = stage.Next()
	}

	assert.Equal(t, StageDone, StageDone.Next())
	assert.Equal(t, "unknown", Stage(42).String())

	text, err := StageToneMapped.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "tone_mapped", string(text))
}

func TestValidateImage(t *testing.T) {
	ok := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer ok.Close()
	assert.NoError(t, ValidateImage(ok))
	assert.Equal(t, ImageInfo{Width: 4, Height: 4, Channels: 3, Type: gocv.MatTypeCV8UC3}, Describe(ok))

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Error(t, ValidateImage(empty))
	assert.Equal(t, ImageInfo{}, Describe(empty))

	float := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV32FC3)
	defer float.Close()
	assert.Error(t, ValidateImage(float))
}
