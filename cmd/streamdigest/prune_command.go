package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"streamdigest/internal/workspace"
)

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var (
		keep   time.Duration
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove dated run directories older than --keep",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return errors.New("--keep must not be negative")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			now := time.Now()

			if dryRun {
				days, err := workspace.ListDays(cfg.Paths.WorkDir)
				if err != nil {
					return err
				}
				candidates := workspace.Candidates(days, keep, now)
				if len(candidates) == 0 {
					fmt.Fprintln(out, "Nothing to prune")
					return nil
				}
				fmt.Fprintln(out, renderDaysTable(candidates))
				return nil
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			result := workspace.Prune(cmd.Context(), cfg.Paths.WorkDir, keep, now, logger)
			fmt.Fprintf(out, "Removed %d run director%s\n", len(result.Removed), pluralY(len(result.Removed)))
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d director%s could not be removed; first: %s: %w",
					len(result.Errors), pluralY(len(result.Errors)), result.Errors[0].Path, result.Errors[0].Error)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&keep, "keep", 30*24*time.Hour, "Keep run directories newer than this")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be removed")
	return cmd
}

func renderDaysTable(days []workspace.Day) string {
	columns := []column{
		{header: "Day"},
		{header: "Runs", align: alignRight},
		{header: "Size", align: alignRight},
		{header: "Path"},
	}
	rows := make([][]string, 0, len(days))
	for _, day := range days {
		rows = append(rows, []string{
			day.Date.Format("2006-01-02"),
			strconv.Itoa(day.Runs),
			formatBytes(day.Size),
			day.Path,
		})
	}
	return renderTable(columns, rows)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
