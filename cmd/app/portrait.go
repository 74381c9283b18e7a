package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"studio-portrait/internal/store"
)

func newPortraitCmd(a *app) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "portrait",
		Short: "Generate one studio portrait",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pipeline, detector, err := a.newPipeline()
			if err != nil {
				return err
			}
			defer detector.Close()

			router, err := a.newRouter(ctx)
			if err != nil {
				return err
			}

			recorder, closeRecorder, err := a.openRecorder(ctx)
			if err != nil {
				return err
			}
			defer closeRecorder()

			result, err := pipeline.Process(ctx, router, router, input, output)
			if recErr := recorder.Record(ctx, store.NewRunRecord(input, output, result, err)); recErr != nil {
				a.logger.WithError(recErr).Warn("Failed to record run")
			}
			if err != nil {
				return err
			}
			defer result.Close()

			face := "none"
			if result.FaceFound() {
				face = result.Face.String()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: gamma=%.4f face=%s time=%s\n",
				output, result.Gamma, face, result.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input image path or s3://bucket/key")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output image path or s3://bucket/key")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}
