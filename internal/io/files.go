// Local filesystem image source and sink
package io

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"studio-portrait/internal/core"
)

var supportedFormats = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp"}

// FileStore reads and writes images on the local filesystem
type FileStore struct {
	logger logrus.FieldLogger
}

func NewFileStore(logger logrus.FieldLogger) *FileStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FileStore{
		logger: logger,
	}
}

// Load reads path as an 8-bit BGR image. Every failure wraps core.ErrFatalLoad.
func (fs *FileStore) Load(ctx context.Context, path string) (gocv.Mat, error) {
	fs.logger.WithField("path", path).Debug("Loading image")

	if !IsSupportedFormat(path) {
		return gocv.NewMat(), fmt.Errorf("%w: unsupported image format: %s", core.ErrFatalLoad, path)
	}

	if _, err := os.Stat(path); err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", core.ErrFatalLoad, err)
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("%w: failed to decode image: %s", core.ErrFatalLoad, path)
	}

	fs.logger.WithFields(logrus.Fields{
		"path":     path,
		"width":    mat.Cols(),
		"height":   mat.Rows(),
		"channels": mat.Channels(),
	}).Info("Image loaded successfully")

	return mat, nil
}

// Save writes mat to path, creating parent directories as needed. The
// encoding follows the extension.
func (fs *FileStore) Save(ctx context.Context, path string, mat gocv.Mat) error {
	fs.logger.WithField("path", path).Debug("Saving image")

	if mat.Empty() {
		return fmt.Errorf("cannot save empty image")
	}

	if !IsSupportedFormat(path) {
		return fmt.Errorf("unsupported image format: %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to save image: %s", path)
	}

	fs.logger.WithFields(logrus.Fields{
		"path":   path,
		"width":  mat.Cols(),
		"height": mat.Rows(),
	}).Info("Image saved successfully")

	return nil
}

// IsSupportedFormat reports whether the extension of name is a known image codec
func IsSupportedFormat(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// encodingFor maps a file name to the codec used to encode it in memory
func encodingFor(name string) (gocv.FileExt, string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return gocv.JPEGFileExt, "image/jpeg", nil
	case ".png":
		return gocv.PNGFileExt, "image/png", nil
	case ".tif", ".tiff":
		return gocv.FileExt(".tiff"), "image/tiff", nil
	case ".bmp":
		return gocv.FileExt(".bmp"), "image/bmp", nil
	default:
		return "", "", fmt.Errorf("unsupported image format: %s", name)
	}
}

// Decode turns encoded image bytes into an 8-bit BGR Mat
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), fmt.Errorf("%w: empty image data", core.ErrFatalLoad)
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", core.ErrFatalLoad, err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("%w: undecodable image data", core.ErrFatalLoad)
	}
	return mat, nil
}

// Encode serialises mat with the codec implied by name's extension
func Encode(name string, mat gocv.Mat) ([]byte, string, error) {
	ext, contentType, err := encodingFor(name)
	if err != nil {
		return nil, "", err
	}
	buf, err := gocv.IMEncode(ext, mat)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, contentType, nil
}
