package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past runs, or the scene outcomes of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				id := strings.TrimSpace(args[0])
				run, err := store.GetRun(cmd.Context(), id)
				if errors.Is(err, ledger.ErrNotFound) {
					return fmt.Errorf("run %s not found", id)
				}
				if err != nil {
					return err
				}
				outcomes, err := store.ListAssets(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderRunDetail(run, outcomes))
				return nil
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

func renderRunTable(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.State,
			strconv.Itoa(run.SceneCount),
			strconv.Itoa(run.AssetCount),
			strconv.Itoa(run.FailureCount),
			formatElapsed(run.Duration()),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "State", "Scenes", "Images", "Dropped", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderRunDetail(run ledger.Run, outcomes []ledger.AssetOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %s\n", run.ID, run.State)
	fmt.Fprintf(&b, "Source: %s (style %s)\n", run.Source, run.StylePreset)
	if run.VideoPath != "" {
		fmt.Fprintf(&b, "Video: %s\n", run.VideoPath)
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(&b, "Error: %s\n", run.ErrorMessage)
	}
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{strconv.Itoa(o.SceneIndex), o.Title, string(o.Outcome), strconv.Itoa(o.Attempts), o.ErrorMessage})
	}
	b.WriteString(renderTable(
		[]string{"#", "Title", "Outcome", "Attempts", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return b.String()
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
