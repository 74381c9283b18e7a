// Studio portrait pipeline: segmentation, defocus, texture, tone, contrast
package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"studio-portrait/internal/algorithms"
	"studio-portrait/internal/metrics"
)

// ImageSource loads an image by handle. Failures are reported as ErrFatalLoad.
type ImageSource interface {
	Load(ctx context.Context, handle string) (gocv.Mat, error)
}

// ImageSink writes a finished image to a handle.
type ImageSink interface {
	Save(ctx context.Context, handle string, mat gocv.Mat) error
}

// Options carries the tunables of every stage
type Options struct {
	Detect   algorithms.DetectParams
	Segment  algorithms.SegmentParams
	Bokeh    algorithms.BokehParams
	Texture  algorithms.TextureParams
	Tone     algorithms.ToneParams
	Contrast algorithms.ContrastParams

	// CollectMetrics attaches before/after quality metrics to each stage record
	CollectMetrics bool
}

func DefaultOptions() Options {
	return Options{
		Detect:   algorithms.DefaultDetectParams(),
		Segment:  algorithms.DefaultSegmentParams(),
		Bokeh:    algorithms.DefaultBokehParams(),
		Texture:  algorithms.DefaultTextureParams(),
		Tone:     algorithms.DefaultToneParams(),
		Contrast: algorithms.DefaultContrastParams(),
	}
}

// StageRecord is one forward transition of a run
type StageRecord struct {
	Stage    Stage              `json:"stage"`
	Duration time.Duration      `json:"duration"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

// Result is the final image plus what was observed while producing it.
// The caller owns Image and must Close the result.
type Result struct {
	Image    gocv.Mat
	Gamma    float64
	Face     *algorithms.BoundingBox
	Seed     image.Rectangle
	Refined  bool
	Stage    Stage
	Trace    []StageRecord
	Duration time.Duration
}

func (r *Result) FaceFound() bool {
	return r.Face != nil
}

func (r *Result) Close() {
	if r != nil {
		r.Image.Close()
	}
}

// Pipeline runs the fixed stage chain. One Pipeline may serve many
// concurrent runs; each run owns its own buffers.
type Pipeline struct {
	locator     *algorithms.FaceLocator
	opts        Options
	metricsEval *metrics.Evaluator
	logger      logrus.FieldLogger
}

// NewPipeline wires a pipeline around an already initialised detector.
func NewPipeline(detector algorithms.Detector, opts Options, logger logrus.FieldLogger) (*Pipeline, error) {
	if detector == nil {
		return nil, fmt.Errorf("%w: no detector configured", ErrDetectorUnavailable)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Pipeline{
		locator:     algorithms.NewFaceLocator(detector, opts.Detect),
		opts:        opts,
		metricsEval: metrics.NewEvaluator(),
		logger:      logger,
	}, nil
}

// GenerateFromSource loads handle and runs the pipeline on it. A load
// failure aborts before any stage executes.
func (p *Pipeline) GenerateFromSource(ctx context.Context, source ImageSource, handle string) (*Result, error) {
	img, err := source.Load(ctx, handle)
	if err != nil {
		if !errors.Is(err, ErrFatalLoad) {
			err = fmt.Errorf("%w: %s: %v", ErrFatalLoad, handle, err)
		}
		p.logger.WithField("handle", handle).WithError(err).Error("PIPELINE: Load failed")
		return nil, err
	}
	defer img.Close()

	if err := ValidateImage(img); err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrFatalLoad, handle, err)
		p.logger.WithField("handle", handle).WithError(err).Error("PIPELINE: Loaded image rejected")
		return nil, err
	}

	return p.Generate(img)
}

// Process loads input, runs the pipeline and writes the result to output.
func (p *Pipeline) Process(ctx context.Context, source ImageSource, sink ImageSink, input, output string) (*Result, error) {
	result, err := p.GenerateFromSource(ctx, source, input)
	if err != nil {
		return nil, err
	}

	if err := sink.Save(ctx, output, result.Image); err != nil {
		result.Close()
		return nil, fmt.Errorf("failed to save %s: %w", output, err)
	}
	return result, nil
}

// Generate runs every stage on img, which is left untouched.
func (p *Pipeline) Generate(img gocv.Mat) (*Result, error) {
	if err := ValidateImage(img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	started := time.Now()
	result := &Result{Stage: StageLoaded}
	run := &stageTracker{
		pipeline: p,
		result:   result,
		mark:     started,
		log:      p.logger.WithFields(logrus.Fields{"width": img.Cols(), "height": img.Rows()}),
	}
	run.log.Debug("PIPELINE: Run started")

	face, err := p.locator.Locate(img)
	if err != nil {
		return nil, fmt.Errorf("face location failed: %w", err)
	}
	segmentation, err := algorithms.Segment(img, face, p.opts.Segment)
	if err != nil {
		return nil, fmt.Errorf("segmentation failed: %w", err)
	}
	defer segmentation.Close()

	result.Face = face
	result.Seed = segmentation.Seed
	result.Refined = segmentation.Refined
	run.advance(nil, nil, logrus.Fields{
		"face_found": face != nil,
		"seed":       segmentation.Seed.String(),
		"refined":    segmentation.Refined,
	})

	composited, err := algorithms.Composite(img, segmentation.Mask, p.opts.Bokeh)
	if err != nil {
		return nil, fmt.Errorf("compositing failed: %w", err)
	}
	defer composited.Close()
	run.advance(&img, &composited, nil)

	textured, err := algorithms.EnhanceTexture(composited, p.opts.Texture)
	if err != nil {
		return nil, fmt.Errorf("texture enhancement failed: %w", err)
	}
	defer textured.Close()
	run.advance(&composited, &textured, nil)

	toned, gamma, err := algorithms.NormalizeTone(textured, p.opts.Tone)
	if err != nil {
		return nil, fmt.Errorf("tone normalisation failed: %w", err)
	}
	defer toned.Close()
	result.Gamma = gamma
	run.advance(&textured, &toned, logrus.Fields{"gamma": gamma})

	final, err := algorithms.EnhanceContrast(toned, p.opts.Contrast)
	if err != nil {
		return nil, fmt.Errorf("contrast enhancement failed: %w", err)
	}
	run.advance(&toned, &final, nil)

	result.Image = final
	result.Duration = time.Since(started)
	run.finish(final, logrus.Fields{"total_ms": result.Duration.Milliseconds()})

	return result, nil
}

// stageTracker moves a run through its states in order and records each step
type stageTracker struct {
	pipeline *Pipeline
	result   *Result
	mark     time.Time
	log      logrus.FieldLogger
}

func (t *stageTracker) advance(before, after *gocv.Mat, fields logrus.Fields) {
	next := t.result.Stage.Next()
	record := StageRecord{Stage: next, Duration: time.Since(t.mark)}

	if t.pipeline.opts.CollectMetrics && before != nil && after != nil {
		record.Metrics = t.pipeline.metricsEval.EvaluateStep(*before, *after, next.String())
	}

	t.result.Trace = append(t.result.Trace, record)
	t.result.Stage = next
	t.mark = time.Now()

	entry := t.log.WithFields(logrus.Fields{
		"stage":       next.String(),
		"duration_ms": record.Duration.Milliseconds(),
	})
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	for name, value := range record.Metrics {
		entry = entry.WithField(name, value)
	}
	entry.Info("PIPELINE: Stage completed")
}

// finish records the terminal transition, summarising the output image when
// metrics are enabled
func (t *stageTracker) finish(final gocv.Mat, fields logrus.Fields) {
	t.advance(nil, nil, fields)
	if !t.pipeline.opts.CollectMetrics {
		return
	}

	stats, err := metrics.Luminance(final)
	if err != nil {
		t.log.WithError(err).Warn("PIPELINE: Output statistics unavailable")
		return
	}
	record := &t.result.Trace[len(t.result.Trace)-1]
	record.Metrics = map[string]float64{
		"mean_luminance": stats.Mean,
		"luminance_std":  stats.StdDev,
		"entropy_bits":   stats.Entropy,
	}
}
