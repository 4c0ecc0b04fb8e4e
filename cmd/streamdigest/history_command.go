package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"streamdigest/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recent runs, or the batches of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureLedger()
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return showRun(cmd, store, out, strings.TrimSpace(args[0]))
			}
			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunsTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	return cmd
}

func showRun(cmd *cobra.Command, store *ledger.Store, out io.Writer, runID string) error {
	run, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader(run.Title, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", runStatusKind(run.Status), string(run.Status), colorize))
	fmt.Fprintln(out, renderStatusLine("Phase", statusInfo, run.Phase, colorize))
	fmt.Fprintln(out, renderStatusLine("Video", statusInfo, run.VideoPath, colorize))
	if run.OutputDir != "" {
		fmt.Fprintln(out, renderStatusLine("Output", statusInfo, run.OutputDir, colorize))
	}
	if run.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, run.ErrorMessage, colorize))
	}

	receipts, err := store.Receipts(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(receipts) > 0 {
		fmt.Fprintln(out, renderReceiptsTable(receipts))
	}
	return nil
}

func renderRunsTable(runs []ledger.Run) string {
	columns := []column{
		{header: "Run"},
		{header: "Started"},
		{header: "Title", maxWidth: 40},
		{header: "Status"},
		{header: "Parts", align: alignRight},
		{header: "Shots", align: alignRight},
		{header: "Remote"},
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		shots := strconv.Itoa(run.Screenshots)
		if run.CaptureFailures > 0 {
			shots += fmt.Sprintf(" (-%d)", run.CaptureFailures)
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format(time.DateTime),
			run.Title,
			string(run.Status),
			fmt.Sprintf("%d/%d", run.BatchesSent, run.BatchesTotal),
			shots,
			dashIfEmpty(run.RemoteStatus),
		})
	}
	return renderTable(columns, rows)
}

func renderReceiptsTable(receipts []ledger.Receipt) string {
	columns := []column{
		{header: "Part", align: alignRight},
		{header: "Status"},
		{header: "Images", align: alignRight},
		{header: "Omitted", align: alignRight},
		{header: "Reason", maxWidth: 60},
	}
	rows := make([][]string, 0, len(receipts))
	for _, r := range receipts {
		rows = append(rows, []string{
			fmt.Sprintf("%d/%d", r.BatchIndex, r.BatchTotal),
			r.Status,
			strconv.Itoa(r.Images),
			strconv.Itoa(r.Skipped),
			dashIfEmpty(r.Reason),
		})
	}
	return renderTable(columns, rows)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
