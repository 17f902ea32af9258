package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/ojspy/internal/config"
	"github.com/verte-zerg/ojspy/internal/export"
	"github.com/verte-zerg/ojspy/internal/historyui"
	"github.com/verte-zerg/ojspy/internal/model"
	"github.com/verte-zerg/ojspy/internal/store"
)

const defaultHistoryLimit = 20

var (
	historyLimit int
	historyPlain bool
	historyOut   string
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Browse past runs or show one run's ranking",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "number of recent runs to list (0 = all)")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print instead of opening the browser")
	cmd.Flags().StringVar(&historyOut, "out", "", "export the shown run to this file (.xlsx or .csv)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := context.Background()
	out := cmd.OutOrStdout()
	if len(args) == 1 {
		return showRun(ctx, st, args[0], out)
	}
	if historyOut != "" {
		return fmt.Errorf("--out needs a run id")
	}

	if !historyPlain && term.IsTerminal(int(os.Stdout.Fd())) {
		program := tea.NewProgram(historyui.NewModel(st, historyLimit), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run history TUI: %w", err)
		}
		return nil
	}

	runs, err := st.ListRuns(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	return writeRuns(out, runs)
}

func showRun(ctx context.Context, st *store.Store, id string, out io.Writer) error {
	run, err := st.FindRun(ctx, id)
	if err != nil {
		return err
	}
	entries, err := st.GetRunEntries(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load run entries: %w", err)
	}
	if _, err := fmt.Fprintf(out, "%s  %s  %s  %s\n", run.ID, run.EndedAt.Local().Format("2006-01-02 15:04"), run.Mode, run.ListingURL); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintf(out, "no graded entries (%s)\n", run.Status)
		return err
	}
	if err := export.RenderTable(out, entries); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if historyOut != "" {
		path, err := export.Write(historyOut, entries)
		if err != nil {
			return err
		}
		logErrf("saved %s\n", path)
	}
	return nil
}

func writeRuns(out io.Writer, runs []model.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "no runs recorded")
		return err
	}
	for _, run := range runs {
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}
		if _, err := fmt.Fprintf(out, "%s  %s  %-7s  %3d problems  %4d students  %-11s  %s\n",
			id,
			run.EndedAt.Local().Format("2006-01-02 15:04"),
			run.Mode,
			run.ProblemCount,
			run.StudentCount,
			run.Status,
			run.ListingURL,
		); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
