package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/illuin-tech/data-pipeline-sub000/internal/config"
	"github.com/illuin-tech/data-pipeline-sub000/internal/textpipe"
)

// ValidationResult is the output of the validate command.
type ValidationResult struct {
	Valid        bool     `json:"valid"`
	Pipeline     string   `json:"pipeline"`
	LogLevel     string   `json:"log_level"`
	CloseTimeout string   `json:"close_timeout"`
	Steps        []string `json:"steps,omitempty"`
	Journal      bool     `json:"journal"`
	Archive      bool     `json:"archive"`
}

// RenderText prints a short description of the validated config.
func (v ValidationResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "config valid: pipeline %s, log level %s, close timeout %s\n",
		v.Pipeline, v.LogLevel, v.CloseTimeout)
	if len(v.Steps) > 0 {
		fmt.Fprintf(w, "  step policies: %s\n", strings.Join(v.Steps, ", "))
	}
	_, err := fmt.Fprintf(w, "  journal: %t, archive: %t\n", v.Journal, v.Archive)
	return err
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a runtime configuration file",
		Long: `Validate a runtime configuration file without running anything.

YAML files are decoded strictly; CUE and JSON files are unified with the
embedded configuration schema. Step policies must name steps of the text
pipeline.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := config.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err, map[string]string{"file": path})
	}
	formatter.VerboseLog("Loaded %s (pipeline %s)", path, cfg.Pipeline)

	if err := cfg.ApplySteps(textpipe.Steps()); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err, map[string]string{"file": path})
	}

	steps := make([]string, 0, len(cfg.Steps))
	for id := range cfg.Steps {
		steps = append(steps, id)
	}
	slices.Sort(steps)

	return formatter.Success(ValidationResult{
		Valid:        true,
		Pipeline:     cfg.Pipeline,
		LogLevel:     cfg.LogLevel,
		CloseTimeout: time.Duration(cfg.CloseTimeout).String(),
		Steps:        steps,
		Journal:      cfg.Journal != nil,
		Archive:      cfg.Archive != nil,
	})
}
