package core

import (
	"errors"

	"studio-portrait/internal/algorithms"
)

var (
	// ErrFatalLoad means the source handle did not resolve to a decodable
	// image. No stage runs after it.
	ErrFatalLoad = errors.New("fatal load")

	// ErrDetectorUnavailable means the face detector could not be set up.
	ErrDetectorUnavailable = algorithms.ErrDetectorUnavailable

	// ErrInvalidImage is returned when Generate is handed an image that
	// breaks the 8-bit BGR precondition.
	ErrInvalidImage = errors.New("invalid image")
)
