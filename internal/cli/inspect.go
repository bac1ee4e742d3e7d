package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/illuin-tech/data-pipeline-sub000/journal"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	DBPath string
	Entity string
	Verify bool
}

// RunView is one journaled run.
type RunView struct {
	RunID      string    `json:"run_id"`
	Pipeline   string    `json:"pipeline"`
	Author     string    `json:"author"`
	RecordedAt time.Time `json:"recorded_at"`
	Results    int       `json:"results"`
}

// EntryView is one journaled result.
type EntryView struct {
	UID         string          `json:"uid"`
	Entity      string          `json:"entity"`
	Name        string          `json:"name"`
	Producer    string          `json:"producer"`
	CreatedAt   time.Time       `json:"created_at"`
	ContentHash string          `json:"content_hash"`
	Payload     json.RawMessage `json:"payload"`
}

// RunList is the output of inspect without a run id.
type RunList struct {
	Runs []RunView `json:"runs"`
}

// RenderText prints one line per run.
func (l RunList) RenderText(w io.Writer) error {
	if len(l.Runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs journaled")
		return err
	}
	for _, r := range l.Runs {
		fmt.Fprintf(w, "%s  %-12s %-12s %3d result(s)  %s\n",
			r.RunID, r.Pipeline, r.Author, r.Results, r.RecordedAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// RunDetail is the output of inspect with a run id.
type RunDetail struct {
	Run      RunView     `json:"run"`
	Entries  []EntryView `json:"entries"`
	Verified bool        `json:"verified,omitempty"`
}

// RenderText prints the run header and one line per result.
func (d RunDetail) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "run %s (pipeline %s, author %s)\n", d.Run.RunID, d.Run.Pipeline, d.Run.Author)
	for _, e := range d.Entries {
		fmt.Fprintf(w, "  %-10s %-12s %-14s %s\n", e.Entity, e.Name, e.Producer, e.Payload)
	}
	if d.Verified {
		fmt.Fprintln(w, "  content hashes verified")
	}
	return nil
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "Inspect journaled runs",
		Long: `List the runs recorded in a journal database, or show the results of
one run. With --verify, stored payloads are checked against their content
hashes.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runInspect(cmd.Context(), opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "journal database path (required)")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "only show results of this entity uid")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "verify content hashes of the run")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runInspect(ctx context.Context, opts *InspectOptions, runID string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	// Opening would create an empty database.
	if _, err := os.Stat(opts.DBPath); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, fmt.Errorf("journal not found: %s", opts.DBPath), nil)
	}
	j, err := journal.Open(opts.DBPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err, nil)
	}
	defer j.Close()

	if runID == "" {
		runs, err := j.Runs(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, err, nil)
		}
		list := RunList{Runs: make([]RunView, 0, len(runs))}
		for _, r := range runs {
			list.Runs = append(list.Runs, runView(r))
		}
		return formatter.Success(list)
	}

	r, err := j.Run(ctx, runID)
	if errors.Is(err, journal.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err, map[string]string{"run_id": runID})
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err, nil)
	}

	var entries []journal.Entry
	if opts.Entity != "" {
		entries, err = j.EntityEntries(ctx, runID, opts.Entity)
	} else {
		entries, err = j.Entries(ctx, runID)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err, nil)
	}

	detail := RunDetail{Run: runView(r), Entries: make([]EntryView, 0, len(entries))}
	for _, e := range entries {
		detail.Entries = append(detail.Entries, EntryView{
			UID:         e.UID,
			Entity:      e.EntityUID,
			Name:        e.Name,
			Producer:    e.Producer.ID,
			CreatedAt:   e.CreatedAt,
			ContentHash: e.ContentHash,
			Payload:     e.Payload,
		})
	}

	if opts.Verify {
		if err := j.Verify(ctx, runID); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeVerify, err, map[string]string{"run_id": runID})
		}
		detail.Verified = true
	}
	return formatter.Success(detail)
}

func runView(r journal.Run) RunView {
	return RunView{
		RunID:      r.Tag.RunID,
		Pipeline:   r.Tag.Pipeline,
		Author:     r.Tag.Author,
		RecordedAt: r.RecordedAt,
		Results:    r.Results,
	}
}
