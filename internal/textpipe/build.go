package textpipe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/illuin-tech/data-pipeline-sub000/internal/config"
	"github.com/illuin-tech/data-pipeline-sub000/pipeline"
	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/sink"
)

// New builds the demo pipeline from cfg. Step policies of cfg are applied
// to the demo steps; sinks run in the given order after the built-in log
// sink.
func New(cfg *config.Config, sinks []*sink.Descriptor, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	steps := Steps()
	if err := cfg.ApplySteps(steps); err != nil {
		return nil, fmt.Errorf("apply step policies: %w", err)
	}

	all := append([]*sink.Descriptor{LogSink("log")}, sinks...)
	base := []pipeline.Option{
		pipeline.WithInitializer(Split),
		pipeline.WithIndexers(Index),
		pipeline.WithSteps(steps...),
		pipeline.WithSinks(all...),
		pipeline.WithOnFailure(func(_ context.Context, err *pipeline.Error) {
			slog.Warn("text pipeline failed", "phase", string(err.Phase), "component", err.Component.ID)
		}),
	}
	base = append(base, cfg.PipelineOptions()...)
	return pipeline.New(cfg.Pipeline, append(base, opts...)...)
}

// LogSink returns an asynchronous sink logging the run summary.
func LogSink(id string) *sink.Descriptor {
	return &sink.Descriptor{
		ID:    id,
		Async: true,
		Func: func(_ context.Context, out *run.Output, _ *run.Context) error {
			s := Summarize(out, 3)
			slog.Info("text run summary",
				"pipeline", out.Tag().Pipeline,
				"run_id", s.RunID,
				"lines", s.Lines,
				"blank_lines", s.BlankLines,
				"words", s.Words,
			)
			return nil
		},
		ErrorHandlers: []sink.ErrorHandler{sink.Ignore},
	}
}
