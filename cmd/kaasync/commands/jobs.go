package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/a13xperi/kaa-notion-backend-sub005/mirror"
)

// JobsCmd groups sync job administration.
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and administer sync jobs",
	Long: `Inspect and administer sync jobs.

Commands:
  kaasync jobs ls               # List recent jobs
  kaasync jobs status <id>      # Show one job in detail
  kaasync jobs stats            # Queue depth by status
  kaasync jobs retry <id>       # Re-queue a failed job
  kaasync jobs cancel <id>      # Cancel a queued job
  kaasync jobs cleanup          # Purge old completed jobs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var jobsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List sync jobs",
	Long: `List sync jobs, newest first, optionally filtered by status.

Status filters: pending, processing, retrying, completed, failed

Examples:
  kaasync jobs ls
  kaasync jobs ls --status failed
  kaasync jobs ls --limit 50`,
	RunE: func(cmd *cobra.Command, args []string) error {
		statusFilter, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		return runJobsLs(cmd, statusFilter, limit)
	},
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show details of a sync job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsStatus(cmd, args[0])
	},
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue depth by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsStats(cmd)
	},
}

var jobsRetryCmd = &cobra.Command{
	Use:   "retry <job-id>",
	Short: "Re-queue a failed sync job",
	Long: `Re-queue a terminally failed job with a fresh retry budget.

Only failed jobs can be retried; pending and retrying jobs are already
scheduled.

Example:
  kaasync jobs retry 4f6b4c0e-...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsRetry(cmd, args[0])
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a queued sync job",
	Long: `Cancel a job that has not started processing. Jobs already mid-flight
run to completion and cannot be cancelled.

Example:
  kaasync jobs cancel 4f6b4c0e-...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsCancel(cmd, args[0])
	},
}

var jobsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge old completed sync jobs",
	Long: `Remove completed jobs older than the retention window. Failed jobs
are always retained for inspection and manual retry.

Example:
  kaasync jobs cleanup --older-than 168h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		return runJobsCleanup(cmd, olderThan)
	},
}

func init() {
	jobsLsCmd.Flags().String("status", "", "Filter by status (pending, processing, retrying, completed, failed)")
	jobsLsCmd.Flags().Int("limit", 20, "Maximum number of jobs to display")
	jobsCleanupCmd.Flags().Duration("older-than", 7*24*time.Hour, "Retention window for completed jobs")

	JobsCmd.AddCommand(jobsLsCmd)
	JobsCmd.AddCommand(jobsStatusCmd)
	JobsCmd.AddCommand(jobsStatsCmd)
	JobsCmd.AddCommand(jobsRetryCmd)
	JobsCmd.AddCommand(jobsCancelCmd)
	JobsCmd.AddCommand(jobsCleanupCmd)
}

// openQueue wires the queue for a one-shot admin command.
func openQueue(cmd *cobra.Command) (*mirror.Queue, func(), error) {
	cfg, log, err := loadRuntime(cmd)
	if err != nil {
		return nil, nil, err
	}

	database, err := openDatabase(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	queue := mirror.NewQueue(database, mirror.QueueConfig{MaxRetries: cfg.Queue.MaxRetries}, log)
	return queue, func() { database.Close() }, nil
}

func runJobsLs(cmd *cobra.Command, statusFilter string, limit int) error {
	queue, closeDB, err := openQueue(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	var status *mirror.Status
	if statusFilter != "" {
		s := mirror.Status(statusFilter)
		status = &s
	}

	jobs, err := queue.Store().ListJobs(status, limit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No sync jobs found")
		return nil
	}

	fmt.Printf("%-36s %-12s %-12s %-10s %-8s %s\n", "JOB ID", "ENTITY", "STATUS", "OPERATION", "RETRIES", "CREATED")
	for _, job := range jobs {
		fmt.Printf("%-36s %-12s %-12s %-10s %d/%d      %s\n",
			job.ID,
			job.EntityType,
			job.Status,
			job.Operation,
			job.RetryCount, job.MaxRetries,
			job.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("\nTotal: %d job(s)\n", len(jobs))
	return nil
}

func runJobsStatus(cmd *cobra.Command, jobID string) error {
	queue, closeDB, err := openQueue(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	job, err := queue.GetJob(jobID)
	if err != nil {
		return err
	}

	fmt.Printf("Job ID: %s\n", job.ID)
	fmt.Printf("  Entity: %s %s\n", job.EntityType, job.EntityID)
	fmt.Printf("  Operation: %s\n", job.Operation)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("  Priority: %d\n", job.Priority)
	fmt.Printf("  Retries: %d/%d\n", job.RetryCount, job.MaxRetries)
	if job.LastError != "" {
		fmt.Printf("  Last error: %s\n", job.LastError)
	}
	if job.ExternalRef != "" {
		fmt.Printf("  Notion ref: %s\n", job.ExternalRef)
	}
	fmt.Printf("  Scheduled for: %s\n", job.ScheduledFor.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Updated: %s\n", job.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runJobsStats(cmd *cobra.Command) error {
	queue, closeDB, err := openQueue(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	stats, err := queue.GetStats()
	if err != nil {
		return err
	}

	fmt.Printf("Pending:    %d\n", stats.Pending)
	fmt.Printf("Processing: %d\n", stats.Processing)
	fmt.Printf("Retrying:   %d\n", stats.Retrying)
	fmt.Printf("Completed:  %d\n", stats.Completed)
	fmt.Printf("Failed:     %d\n", stats.Failed)
	fmt.Printf("Total:      %d\n", stats.Total)
	return nil
}

func runJobsRetry(cmd *cobra.Command, jobID string) error {
	queue, closeDB, err := openQueue(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := queue.Retry(jobID); err != nil {
		return err
	}
	fmt.Printf("Job %s re-queued\n", jobID)
	fmt.Println("Note: a running daemon picks the job up on its next dispatch pass")
	return nil
}

func runJobsCancel(cmd *cobra.Command, jobID string) error {
	queue, closeDB, err := openQueue(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	// Admin commands run in their own process, so this works on the store
	// directly rather than a daemon's in-memory active set.
	job, err := queue.GetJob(jobID)
	if err != nil {
		return err
	}
	if job.Status == mirror.StatusProcessing {
		fmt.Printf("Job %s is processing and cannot be cancelled\n", jobID)
		return nil
	}
	if !job.Active() {
		fmt.Printf("Job %s is already %s\n", jobID, job.Status)
		return nil
	}

	if err := queue.Store().DeleteJob(jobID); err != nil {
		return err
	}
	fmt.Printf("Job %s cancelled\n", jobID)
	return nil
}

func runJobsCleanup(cmd *cobra.Command, olderThan time.Duration) error {
	queue, closeDB, err := openQueue(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	removed, err := queue.Cleanup(olderThan)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d completed job(s)\n", removed)
	return nil
}
