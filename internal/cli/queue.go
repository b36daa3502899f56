package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"flowgate/internal/queue"
)

var (
	enqueueIntensity int
	drainLimit       int
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the durable retry queue",
}

var queueEnqueueCmd = &cobra.Command{
	Use:   "enqueue [text]",
	Short: "Submit text for deferred processing",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := textFromArgsOrStdin(args)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		job, err := a.queue.Enqueue(cmd.Context(), text, enqueueIntensity)
		if err != nil {
			return fmt.Errorf("enqueueing job: %w", err)
		}
		return printJSON(job)
	},
}

var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Process pending jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		limit := drainLimit
		if limit <= 0 {
			limit = a.cfg.Queue.DrainLimit
		}
		stats, err := a.queue.DrainPending(cmd.Context(), limit, a.processor.QueueFunc())
		if err != nil {
			return fmt.Errorf("draining queue: %w", err)
		}
		return printJSON(stats)
	},
}

var queueStatusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show one job, or counts per status with no argument",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if len(args) == 0 {
			counts, err := a.queue.Counts(cmd.Context())
			if err != nil {
				return fmt.Errorf("counting jobs: %w", err)
			}
			return printJSON(counts)
		}

		job, err := a.queue.GetJob(cmd.Context(), args[0])
		if errors.Is(err, queue.ErrJobNotFound) {
			exitCode = ExitBlocked
			return printJSON(map[string]string{"error": "not_found", "job_id": args[0]})
		}
		if err != nil {
			return fmt.Errorf("reading job: %w", err)
		}
		return printJSON(job)
	},
}

func init() {
	queueEnqueueCmd.Flags().IntVar(&enqueueIntensity, "intensity", 30, "transformation intensity (0-100)")
	queueDrainCmd.Flags().IntVar(&drainLimit, "limit", 0, "maximum jobs to process (0 uses the configured default)")

	queueCmd.AddCommand(queueEnqueueCmd)
	queueCmd.AddCommand(queueDrainCmd)
	queueCmd.AddCommand(queueStatusCmd)
}
