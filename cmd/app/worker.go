package main

import (
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"studio-portrait/internal/tasks"
)

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process queued portrait jobs",
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

			srv := asynq.NewServer(
				asynq.RedisClientOpt{Addr: a.cfg.Queue.RedisAddr},
				asynq.Config{
					Concurrency: a.cfg.Queue.Concurrency,
					Queues:      map[string]int{a.cfg.Queue.Queue: 1},
					Logger:      a.logger,
				},
			)

			processor := tasks.NewProcessor(pipeline, router, router, recorder, a.logger)
			if err := srv.Start(tasks.NewServeMux(processor)); err != nil {
				return err
			}
			a.logger.WithField("queue", a.cfg.Queue.Queue).Info("QUEUE: Worker started")

			<-ctx.Done()
			srv.Shutdown()
			return nil
		},
	}
}
