package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	pio "studio-portrait/internal/io"
	"studio-portrait/internal/store"
)

type batchJob struct {
	input  string
	output string
}

type batchOutcome struct {
	job   batchJob
	gamma float64
	err   error
}

func newBatchCmd(a *app) *cobra.Command {
	var outDir string
	var workers int

	cmd := &cobra.Command{
		Use:   "batch [flags] FILE...",
		Short: "Generate portraits for many images with independent concurrent pipelines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if workers < 1 {
				workers = 1
			}

			router, err := a.newRouter(ctx)
			if err != nil {
				return err
			}
			recorder, closeRecorder, err := a.openRecorder(ctx)
			if err != nil {
				return err
			}
			defer closeRecorder()

			jobs := make(chan batchJob, workers)
			outcomes := make(chan batchOutcome, workers)

			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				pipeline, detector, err := a.newPipeline()
				if err != nil {
					close(jobs)
					wg.Wait()
					return err
				}

				wg.Add(1)
				go func() {
					defer wg.Done()
					defer detector.Close()
					for job := range jobs {
						result, err := pipeline.Process(ctx, router, router, job.input, job.output)
						if recErr := recorder.Record(ctx, store.NewRunRecord(job.input, job.output, result, err)); recErr != nil {
							a.logger.WithError(recErr).Warn("Failed to record run")
						}
						outcome := batchOutcome{job: job, err: err}
						if err == nil {
							outcome.gamma = result.Gamma
							result.Close()
						}
						outcomes <- outcome
					}
				}()
			}

			go func() {
				defer close(jobs)
				for _, input := range args {
					select {
					case jobs <- batchJob{input: input, output: batchOutputPath(outDir, input)}:
					case <-ctx.Done():
						return
					}
				}
			}()

			go func() {
				wg.Wait()
				close(outcomes)
			}()

			bar := progressbar.NewOptions(len(args),
				progressbar.OptionSetDescription("Generating portraits"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
			)

			failed := 0
			for outcome := range outcomes {
				bar.Add(1)
				log := a.logger.WithField("input", outcome.job.input)
				if outcome.err != nil {
					failed++
					log.WithError(outcome.err).Error("Portrait failed")
					continue
				}
				log.WithFields(logrus.Fields{
					"output": outcome.job.output,
					"gamma":  outcome.gamma,
				}).Info("Portrait generated")
			}
			bar.Finish()
			fmt.Fprintln(os.Stderr)

			if failed > 0 {
				return fmt.Errorf("%d of %d portraits failed", failed, len(args))
			}
			return ctx.Err()
		},
	}

	cmd.Flags().StringVarP(&outDir, "output-dir", "o", "portraits", "Directory or s3://bucket/prefix for results")
	cmd.Flags().IntVarP(&workers, "workers", "j", runtime.NumCPU(), "Number of concurrent pipelines")
	return cmd
}

// batchOutputPath places a result under outDir, always as JPEG
func batchOutputPath(outDir, input string) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + "_studio.jpg"
	if pio.IsObjectURL(outDir) {
		return strings.TrimSuffix(outDir, "/") + "/" + name
	}
	return filepath.Join(outDir, name)
}
