package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/illuin-tech/data-pipeline-sub000/archive"
	"github.com/illuin-tech/data-pipeline-sub000/internal/config"
	"github.com/illuin-tech/data-pipeline-sub000/internal/textpipe"
	"github.com/illuin-tech/data-pipeline-sub000/journal"
	"github.com/illuin-tech/data-pipeline-sub000/pipeline"
	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/sink"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	DBPath     string
	Author     string
	Top        int
}

// RunReport is the output of the run command.
type RunReport struct {
	Source    string           `json:"source"`
	Pipeline  string           `json:"pipeline"`
	Summary   textpipe.Summary `json:"summary"`
	Journal   string           `json:"journal,omitempty"`
	Drained   bool             `json:"drained"`
	Archived  bool             `json:"archived"`
	Author    string           `json:"author"`
	SinkCount int              `json:"sinks"`
}

// RenderText prints the report for humans.
func (r RunReport) RenderText(w io.Writer) error {
	s := r.Summary
	fmt.Fprintf(w, "run %s (pipeline %s, author %s)\n", s.RunID, r.Pipeline, r.Author)
	fmt.Fprintf(w, "  source:  %s\n", r.Source)
	fmt.Fprintf(w, "  lines:   %d (%d blank)\n", s.Lines, s.BlankLines)
	fmt.Fprintf(w, "  words:   %d\n", s.Words)
	fmt.Fprintf(w, "  runes:   %d\n", s.Runes)
	fmt.Fprintf(w, "  results: %d\n", s.Results)
	if r.Journal != "" {
		fmt.Fprintf(w, "  journal: %s\n", r.Journal)
	}
	if len(s.TopWords) > 0 {
		fmt.Fprintln(w, "  top words:")
		for _, wf := range s.TopWords {
			fmt.Fprintf(w, "    %-16s %d\n", wf.Word, wf.Count)
		}
	}
	_, err := fmt.Fprintf(w, "  sinks drained: %t\n", r.Drained)
	return err
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <input-file>",
		Short: "Run the text pipeline over a file",
		Long: `Run the demo text pipeline over a text file.

Every line becomes an entity. Lines are tokenized and counted; blank lines
are discarded after tokenization but still measured by the pinned length
step. Results can be journaled to SQLite (--db or journal.path) and
archived to an S3-compatible bucket (archive section of --config).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "runtime config file (.yaml, .cue or .json)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "journal database path (overrides journal.path)")
	cmd.Flags().StringVar(&opts.Author, "author", "", "author recorded on the run")
	cmd.Flags().IntVar(&opts.Top, "top", 5, "number of most frequent words to report")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default("text"), nil
	}
	return config.Load(path)
}

func runPipeline(ctx context.Context, opts *RunOptions, inputPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err, nil)
	}
	setupLogging(formatter.GetErrWriter(), cfg.Level(), opts.Verbose)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, err, nil)
	}
	formatter.VerboseLog("Read %d byte(s) from %s", len(data), inputPath)

	var sinks []*sink.Descriptor

	dbPath, async := opts.DBPath, false
	if cfg.Journal != nil {
		if dbPath == "" {
			dbPath = cfg.Journal.Path
		}
		async = cfg.Journal.Async
	}
	if dbPath != "" {
		j, err := journal.Open(dbPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, err, nil)
		}
		defer j.Close()
		sinks = append(sinks, j.Sink("journal", async))
	}

	if cfg.Archive != nil {
		store, err := archive.NewMinioStore(*cfg.Archive)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeArchive, err, nil)
		}
		if err := archive.EnsureBucket(ctx, store.Client(), *cfg.Archive); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeArchive, err, nil)
		}
		a, err := archive.New(store, cfg.Archive.Bucket, cfg.Archive.Prefix)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeArchive, err, nil)
		}
		sinks = append(sinks, a.Sink("archive", true))
	}

	var popts []pipeline.Option
	if opts.Author != "" {
		author := opts.Author
		popts = append(popts, pipeline.WithAuthorResolver(func(any, *run.Context) string { return author }))
	}
	p, err := textpipe.New(cfg, sinks, popts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err, nil)
	}

	out, runErr := p.RunWith(ctx, data, run.NewContext().With("source", inputPath))

	// Close before the journal so queued async sinks can still write.
	drained, closeErr := p.Close()
	if closeErr != nil {
		slog.Warn("pipeline close", "pipeline", p.ID(), "error", closeErr)
	}

	if runErr != nil {
		details := map[string]string{}
		if perr, ok := pipeline.AsError(runErr); ok {
			details["phase"] = string(perr.Phase)
			details["component"] = perr.Component.ID
			details["run_id"] = perr.Tag.RunID
		}
		return formatter.Fail(ExitFailure, ErrCodeRun, runErr, details)
	}

	return formatter.Success(RunReport{
		Source:    inputPath,
		Pipeline:  p.ID(),
		Summary:   textpipe.Summarize(out, opts.Top),
		Journal:   dbPath,
		Drained:   drained,
		Archived:  cfg.Archive != nil,
		Author:    out.Tag().Author,
		SinkCount: len(p.Sinks()),
	})
}
