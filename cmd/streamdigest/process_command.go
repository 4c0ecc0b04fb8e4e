package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"streamdigest/internal/delivery"
	"streamdigest/internal/jobs"
	"streamdigest/internal/ledger"
	"streamdigest/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		job          jobs.Job
		manifestPath string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the full pipeline for one video",
		Long: `Formats the transcript as SubRip, optionally burns it into the video,
captures one screenshot per segment, emails the screenshots in size-bounded
parts, and pushes the video to the remote host when configured.

Inputs come from flags or from a YAML manifest (--manifest).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(manifestPath) != "" {
				loaded, err := jobs.LoadManifest(manifestPath)
				if err != nil {
					return err
				}
				job = mergeJob(loaded, job)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			store, err := ctx.ensureLedger()
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			runner := pipeline.NewFromConfig(cfg, store, logger)
			outcome, runErr := runner.Run(signalCtx, job)
			if outcome != nil {
				printOutcome(cmd.OutOrStdout(), outcome, shouldColorize(cmd.OutOrStdout()))
			}
			if runErr != nil {
				return runErr
			}
			if outcome.Status == ledger.StatusFailed {
				return errors.New("no notification batch was delivered")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&job.VideoPath, "video", "", "Path to the source video")
	cmd.Flags().StringVar(&job.VideoURL, "url", "", "Public URL of the video, linked in the email")
	cmd.Flags().StringVar(&job.TranscriptPath, "transcript", "", "Transcript file (whisper JSON, segment array, or .srt)")
	cmd.Flags().StringVar(&job.Recipient, "recipient", "", "Email recipient (defaults to email.recipient)")
	cmd.Flags().StringVar(&job.Title, "title", "", "Title used in the subject (defaults to the video name)")
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Read the job from a YAML manifest")
	return cmd
}

// mergeJob lets explicit flags override manifest values.
func mergeJob(base, flags jobs.Job) jobs.Job {
	if flags.VideoPath != "" {
		base.VideoPath = flags.VideoPath
	}
	if flags.VideoURL != "" {
		base.VideoURL = flags.VideoURL
	}
	if flags.TranscriptPath != "" {
		base.TranscriptPath = flags.TranscriptPath
	}
	if flags.Recipient != "" {
		base.Recipient = flags.Recipient
	}
	if flags.Title != "" {
		base.Title = flags.Title
	}
	return base
}

func printOutcome(out io.Writer, outcome *pipeline.Outcome, colorize bool) {
	for _, line := range renderSectionHeader("Run "+outcome.RunID, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", runStatusKind(outcome.Status), string(outcome.Status), colorize))
	if outcome.OutputDir != "" {
		fmt.Fprintln(out, renderStatusLine("Output", statusInfo, outcome.OutputDir, colorize))
	}
	if outcome.SubtitlePath != "" {
		msg := fmt.Sprintf("%d cues", outcome.Report.Cues)
		kind := statusOK
		if len(outcome.Report.Skipped) > 0 {
			msg += fmt.Sprintf(", skipped segments %v", outcome.Report.Skipped)
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine("Subtitles", kind, msg, colorize))
	}
	if outcome.Status == ledger.StatusAborted {
		return
	}

	shots := fmt.Sprintf("%d captured", len(outcome.Capture.Artifacts))
	shotKind := statusOK
	if n := outcome.Capture.Failed(); n > 0 {
		shots += fmt.Sprintf(", failed segments %v", outcome.Capture.FailedIndices)
		shotKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Screenshots", shotKind, shots, colorize))

	for _, receipt := range outcome.Receipts {
		label := fmt.Sprintf("Part %d of %d", receipt.BatchIndex, receipt.BatchTotal)
		if receipt.Status == delivery.StatusSent {
			fmt.Fprintln(out, renderStatusLine(label, statusOK, fmt.Sprintf("sent (%d images)", receipt.Images), colorize))
			continue
		}
		fmt.Fprintln(out, renderStatusLine(label, statusError, receipt.Reason, colorize))
	}

	remoteKind := statusOK
	remoteMsg := string(outcome.Remote.Status)
	switch outcome.Remote.Status {
	case delivery.RemoteSkipped, "":
		remoteKind = statusInfo
		remoteMsg = "skipped"
	case delivery.RemoteTransferFailed, delivery.RemoteCommandFailed:
		remoteKind = statusError
		if outcome.Remote.Err != nil {
			remoteMsg += ": " + outcome.Remote.Err.Error()
		}
	}
	fmt.Fprintln(out, renderStatusLine("Remote push", remoteKind, remoteMsg, colorize))
}
