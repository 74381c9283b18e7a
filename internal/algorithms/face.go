// Face location over an external detection capability
package algorithms

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultCascadeFile is the frontal face Haar cascade shipped with OpenCV.
const DefaultCascadeFile = "haarcascade_frontalface_default.xml"

// ErrDetectorUnavailable means the face detector could not be initialised.
// It is distinct from finding zero faces, which is a normal outcome.
var ErrDetectorUnavailable = errors.New("face detector unavailable")

var cascadeSearchDirs = []string{
	".",
	"./models/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv4/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
}

// Detector is the face detection capability consumed by FaceLocator.
// It receives a grayscale image and returns candidate regions, possibly none.
type Detector interface {
	DetectMultiScale(gray gocv.Mat, params DetectParams) []image.Rectangle
}

// CascadeDetector runs an OpenCV Haar cascade. A single instance may be
// shared between concurrent pipelines; detection calls are serialised.
type CascadeDetector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	path       string
}

// NewCascadeDetector loads the cascade at path. An empty path searches the
// usual OpenCV install locations for DefaultCascadeFile.
func NewCascadeDetector(path string) (*CascadeDetector, error) {
	candidates := cascadeCandidates(path)
	classifier := gocv.NewCascadeClassifier()

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if classifier.Load(candidate) {
			return &CascadeDetector{classifier: classifier, path: candidate}, nil
		}
	}

	classifier.Close()
	return nil, fmt.Errorf("%w: no loadable cascade in %v", ErrDetectorUnavailable, candidates)
}

func cascadeCandidates(path string) []string {
	if path != "" {
		return []string{path}
	}
	candidates := make([]string, 0, len(cascadeSearchDirs))
	for _, dir := range cascadeSearchDirs {
		candidates = append(candidates, filepath.Join(dir, DefaultCascadeFile))
	}
	return candidates
}

// Path returns the cascade file that was loaded
func (d *CascadeDetector) Path() string {
	return d.path
}

func (d *CascadeDetector) DetectMultiScale(gray gocv.Mat, params DetectParams) []image.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()

	minSize := image.Pt(params.MinSize, params.MinSize)
	return d.classifier.DetectMultiScaleWithParams(gray, params.ScaleFactor, params.MinNeighbors, 0, minSize, image.Pt(0, 0))
}

func (d *CascadeDetector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.classifier.Close()
}

// FaceLocator finds the single largest face in an image.
type FaceLocator struct {
	detector Detector
	params   DetectParams
}

func NewFaceLocator(detector Detector, params DetectParams) *FaceLocator {
	return &FaceLocator{
		detector: detector,
		params:   params,
	}
}

// Locate returns the largest detected face or nil when there is none.
// The input image is not modified.
func (fl *FaceLocator) Locate(img gocv.Mat) (*BoundingBox, error) {
	if fl.detector == nil {
		return nil, ErrDetectorUnavailable
	}
	if img.Empty() {
		return nil, fmt.Errorf("input image is empty")
	}

	gray := ensureGrayscale(img)
	defer func() {
		if gray.Ptr() != img.Ptr() {
			gray.Close()
		}
	}()

	faces := fl.detector.DetectMultiScale(gray, fl.params)
	return LargestFace(faces, img.Cols(), img.Rows()), nil
}

// LargestFace picks the candidate with the greatest area. Ties keep the
// first candidate. Candidates are clipped to the frame first.
func LargestFace(faces []image.Rectangle, width, height int) *BoundingBox {
	frame := image.Rect(0, 0, width, height)

	var best *BoundingBox
	for _, face := range faces {
		clipped := face.Intersect(frame)
		if clipped.Empty() {
			continue
		}
		box := BoxFromRect(clipped)
		if best == nil || box.Area() > best.Area() {
			best = &box
		}
	}
	return best
}
