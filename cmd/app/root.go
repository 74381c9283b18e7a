package main

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"studio-portrait/internal/algorithms"
	"studio-portrait/internal/config"
	"studio-portrait/internal/core"
	pio "studio-portrait/internal/io"
	"studio-portrait/internal/store"
)

// app holds what every subcommand shares once flags are parsed
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "studio",
		Short:         "Turn casual portraits into studio-style headshots",
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "studio.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug mode with verbose logging")

	rootCmd.AddCommand(
		newPortraitCmd(a),
		newBatchCmd(a),
		newServeCmd(a),
		newWorkerCmd(a),
		newEnqueueCmd(a),
	)
	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = initLogger(a.debug || cfg.Logging.Debug, cfg.Logging.Level)

	a.logger.WithFields(logrus.Fields{
		"version": AppVersion,
		"config":  a.configPath,
	}).Debug("Starting " + AppName)

	if cfg.Sentry.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     AppName + "@" + AppVersion,
		})
		if err != nil {
			return fmt.Errorf("sentry.Init: %w", err)
		}
	}
	return nil
}

// newPipeline loads a cascade and builds a pipeline around it. The caller
// closes the detector.
func (a *app) newPipeline() (*core.Pipeline, *algorithms.CascadeDetector, error) {
	detector, err := algorithms.NewCascadeDetector(a.cfg.Detector.CascadePath)
	if err != nil {
		return nil, nil, err
	}
	a.logger.WithField("cascade", detector.Path()).Debug("Face detector loaded")

	pipeline, err := core.NewPipeline(detector, a.cfg.Options(), a.logger)
	if err != nil {
		detector.Close()
		return nil, nil, err
	}
	return pipeline, detector, nil
}

// newRouter builds the image source/sink, with object storage when enabled
func (a *app) newRouter(ctx context.Context) (*pio.Router, error) {
	files := pio.NewFileStore(a.logger)
	if !a.cfg.Storage.Enabled {
		return pio.NewRouter(files, nil), nil
	}

	client, err := pio.NewS3Client(ctx, a.cfg.S3Options())
	if err != nil {
		return nil, err
	}
	return pio.NewRouter(files, pio.NewS3Store(client, a.logger)), nil
}

// openRecorder connects the run ledger when a database is configured
func (a *app) openRecorder(ctx context.Context) (store.RunRecorder, func(), error) {
	if a.cfg.Database.URL == "" {
		return store.NopRecorder{}, func() {}, nil
	}

	db, err := store.New(ctx, a.cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, func() { db.Close(context.Background()) }, nil
}
