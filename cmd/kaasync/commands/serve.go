package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/a13xperi/kaa-notion-backend-sub005/mirror"
	"github.com/a13xperi/kaa-notion-backend-sub005/notion"
)

// ServeCmd runs the sync daemon.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Notion sync daemon",
	Long: `Run the sync daemon: recover persisted jobs, then dispatch them to
Notion under the rate limit until interrupted.

The daemon shares its SQLite job database with the application process
that enqueues sync work. Requires a Notion token; set it in the config
file or via KAASYNC_NOTION_TOKEN.

Example:
  kaasync serve
  kaasync serve --config /etc/kaasync/config.toml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	cfg, log, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if !cfg.Notion.Enabled() {
		log.Warnw("No Notion token configured; daemon will hold jobs but every attempt will fail until a token is set")
	}

	database, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer database.Close()

	client := notion.NewClient(notion.ClientConfig{
		Token:             cfg.Notion.Token,
		RequestsPerSecond: cfg.Notion.RequestsPerSecond,
	}, log)

	queue := mirror.NewQueue(database, mirror.QueueConfig{
		MaxRetries: cfg.Queue.MaxRetries,
	}, log)

	recovered, err := queue.Initialize()
	if err != nil {
		return err
	}
	if recovered > 0 {
		log.Infow("Recovered persisted sync jobs", "count", recovered)
	}

	adapters := mirror.NewAdapterSet(client, mirror.AdapterConfig{
		ProjectsDatabaseID: cfg.Notion.ProjectsDatabaseID,
		LeadsDatabaseID:    cfg.Notion.LeadsDatabaseID,
	})

	// The standalone daemon has no domain store: payloads are snapshotted
	// by the application at enqueue time, and external refs persist on the
	// job rows. Embedded deployments pass their store to the scheduler for
	// ref write-back and parent resync.
	scheduler := mirror.NewScheduler(queue, adapters, nil, mirror.SchedulerConfig{
		MaxConcurrent:   cfg.Queue.MaxConcurrent,
		BaseDelay:       time.Duration(cfg.Queue.BaseDelaySeconds) * time.Second,
		Retention:       time.Duration(cfg.Queue.RetentionDays) * 24 * time.Hour,
		CleanupInterval: time.Duration(cfg.Queue.CleanupIntervalHours) * time.Hour,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("kaasync daemon starting", "database", cfg.Database.Path)
	return scheduler.Run(ctx)
}
