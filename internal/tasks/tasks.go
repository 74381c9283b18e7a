// Package tasks runs portrait generation as background jobs on asynq.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"studio-portrait/internal/core"
	"studio-portrait/internal/store"
)

const TypeGeneratePortrait = "portrait:generate"

// maxRetry bounds queue-level retries for transient storage failures.
// Load failures are never retried.
const maxRetry = 2

type GeneratePortraitPayload struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

func NewGeneratePortraitTask(input, output string) (*asynq.Task, error) {
	if input == "" || output == "" {
		return nil, fmt.Errorf("input and output are required")
	}
	payload, err := json.Marshal(GeneratePortraitPayload{Input: input, Output: output})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGeneratePortrait, payload), nil
}

// Enqueuer is the subset of asynq.Client used to submit jobs
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueGeneratePortrait submits one job to queue
func EnqueueGeneratePortrait(client Enqueuer, queue, input, output string) (*asynq.TaskInfo, error) {
	task, err := NewGeneratePortraitTask(input, output)
	if err != nil {
		return nil, err
	}
	return client.Enqueue(task, asynq.MaxRetry(maxRetry), asynq.Queue(queue))
}

// Runner is the part of the pipeline a worker needs
type Runner interface {
	Process(ctx context.Context, source core.ImageSource, sink core.ImageSink, input, output string) (*core.Result, error)
}

// Processor handles portrait:generate tasks
type Processor struct {
	runner   Runner
	source   core.ImageSource
	sink     core.ImageSink
	recorder store.RunRecorder
	logger   logrus.FieldLogger
}

func NewProcessor(runner Runner, source core.ImageSource, sink core.ImageSink, recorder store.RunRecorder, logger logrus.FieldLogger) *Processor {
	if recorder == nil {
		recorder = store.NopRecorder{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Processor{
		runner:   runner,
		source:   source,
		sink:     sink,
		recorder: recorder,
		logger:   logger,
	}
}

func (p *Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload GeneratePortraitPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Input == "" || payload.Output == "" {
		return fmt.Errorf("payload needs input and output: %w", asynq.SkipRetry)
	}

	log := p.logger.WithFields(logrus.Fields{"input": payload.Input, "output": payload.Output})
	log.Info("QUEUE: Generating portrait")

	result, err := p.runner.Process(ctx, p.source, p.sink, payload.Input, payload.Output)
	if result != nil {
		defer result.Close()
	}

	if recErr := p.recorder.Record(ctx, store.NewRunRecord(payload.Input, payload.Output, result, err)); recErr != nil {
		log.WithError(recErr).Warn("QUEUE: Failed to record run")
	}

	if err != nil {
		log.WithError(err).Error("QUEUE: Portrait generation failed")
		if errors.Is(err, core.ErrFatalLoad) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		sentry.CaptureException(err)
		return err
	}

	log.WithFields(logrus.Fields{
		"gamma":       result.Gamma,
		"face_found":  result.FaceFound(),
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("QUEUE: Portrait generated")
	return nil
}

func NewServeMux(processor *Processor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeGeneratePortrait, processor)
	return mux
}
