// HTTP front end for the portrait pipeline
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"studio-portrait/internal/core"
	pio "studio-portrait/internal/io"
)

const (
	HeaderGamma = "X-Portrait-Gamma"
	HeaderFace  = "X-Portrait-Face"
	HeaderCache = "X-Cache"
)

// Generator is the part of the pipeline the server needs
type Generator interface {
	Generate(img gocv.Mat) (*core.Result, error)
}

type Options struct {
	Addr         string
	MaxBodyBytes int64
	JPEGQuality  int
}

type Server struct {
	echo      *echo.Echo
	generator Generator
	cache     *ResultCache
	opts      Options
	logger    logrus.FieldLogger
}

// New builds the HTTP server. cache may be nil to disable result caching.
func New(generator Generator, cache *ResultCache, opts Options, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 95
	}

	s := &Server{
		echo:      echo.New(),
		generator: generator,
		cache:     cache,
		opts:      opts,
		logger:    logger,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogMethod:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
			}).Info("HTTP: Request served")
			return nil
		},
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	if opts.MaxBodyBytes > 0 {
		s.echo.Use(middleware.BodyLimit(fmt.Sprintf("%dB", opts.MaxBodyBytes)))
	}

	s.echo.GET("/healthz", s.health)
	s.echo.POST("/v1/portraits", s.createPortrait)

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.opts.Addr).Info("HTTP: Listening")
		errCh <- s.echo.Start(s.opts.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createPortrait(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	ctx := c.Request().Context()
	key := CacheKey(body)

	if s.cache != nil {
		if portrait, ok := s.cache.Get(ctx, key); ok {
			return s.writePortrait(c, portrait, "HIT")
		}
	}

	img, err := pio.Decode(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is not a decodable image")
	}
	defer img.Close()

	result, err := s.generator.Generate(img)
	if err != nil {
		if errors.Is(err, core.ErrInvalidImage) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		s.report(c, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "portrait generation failed")
	}
	defer result.Close()

	encoded, err := s.encode(result.Image)
	if err != nil {
		s.report(c, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to encode portrait")
	}

	portrait := &Portrait{Image: encoded, Gamma: result.Gamma, Face: result.Face}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, portrait); err != nil {
			s.logger.WithError(err).Warn("HTTP: Failed to cache portrait")
		}
	}

	return s.writePortrait(c, portrait, "MISS")
}

func (s *Server) encode(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), s.opts.JPEGQuality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func (s *Server) writePortrait(c echo.Context, portrait *Portrait, cacheStatus string) error {
	header := c.Response().Header()
	header.Set(HeaderGamma, strconv.FormatFloat(portrait.Gamma, 'f', 4, 64))
	header.Set(HeaderCache, cacheStatus)
	if portrait.Face != nil {
		header.Set(HeaderFace, portrait.Face.String())
	} else {
		header.Set(HeaderFace, "none")
	}
	return c.Blob(http.StatusOK, "image/jpeg", portrait.Image)
}

func (s *Server) report(c echo.Context, err error) {
	s.logger.WithError(err).Error("HTTP: Portrait generation failed")
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
