package main

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"studio-portrait/internal/tasks"
)

func newEnqueueCmd(a *app) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a portrait job for the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := asynq.NewClient(asynq.RedisClientOpt{Addr: a.cfg.Queue.RedisAddr})
			defer client.Close()

			info, err := tasks.EnqueueGeneratePortrait(client, a.cfg.Queue.Queue, input, output)
			if err != nil {
				return fmt.Errorf("failed to enqueue: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s\n", info.ID, info.Queue)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input image path or s3://bucket/key")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output image path or s3://bucket/key")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}
