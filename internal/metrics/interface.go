// Quality metrics recorded between pipeline stages
package metrics

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"
)

// Metric defines the interface for quality metrics
type Metric interface {
	// Calculate compares a stage input with its output
	Calculate(original, processed gocv.Mat) (float64, error)

	GetName() string

	GetDescription() string

	// GetRange returns the practical value range (min, max)
	GetRange() (float64, float64)

	IsHigherBetter() bool
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator creates an evaluator with the default metrics registered
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}
	e.RegisterDefaultMetrics()
	return e
}

func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("psnr", NewPSNR())
	e.Register("ssim", NewSSIM())
	e.Register("sharpness_gain", NewSharpnessGain())
	e.Register("contrast_gain", NewContrastGain())
	e.Register("luminance_shift", NewLuminanceShift())
}

func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Names returns the registered metric names in sorted order
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Evaluator) Calculate(name string, original, processed gocv.Mat) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}
	return metric.Calculate(original, processed)
}

// CalculateAll calculates every registered metric, skipping ones that fail
func (e *Evaluator) CalculateAll(original, processed gocv.Mat) map[string]float64 {
	results := make(map[string]float64, len(e.metrics))
	for name, metric := range e.metrics {
		if value, err := metric.Calculate(original, processed); err == nil {
			results[name] = value
		}
	}
	return results
}

// EvaluateStep calculates the metrics relevant to one pipeline stage
func (e *Evaluator) EvaluateStep(before, after gocv.Mat, stage string) map[string]float64 {
	if before.Empty() || after.Empty() {
		return nil
	}

	var names []string
	switch stage {
	case "composited":
		names = []string{"psnr", "ssim", "sharpness_gain"}
	case "textured":
		names = []string{"psnr", "ssim", "sharpness_gain"}
	case "tone_mapped":
		names = []string{"luminance_shift", "contrast_gain"}
	case "contrast_enhanced":
		names = []string{"contrast_gain", "ssim"}
	default:
		names = e.Names()
	}

	results := make(map[string]float64, len(names))
	for _, name := range names {
		if value, err := e.Calculate(name, before, after); err == nil {
			results[name] = value
		}
	}
	return results
}
