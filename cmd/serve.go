package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Pjt727/homeroom/server"
	serversync "github.com/Pjt727/homeroom/server/sync"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the api service",
	Long: `Runs the api service, and the periodic resync of every family when
resync_cron is configured`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, logger, closeLogs, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		hub := serversync.NewHub(logger)
		env, err := newEnv(ctx, cfg, logger, closeLogs, hub)
		if err != nil {
			return err
		}
		defer env.close()
		log.AddHook(hub)

		scheduler, err := newScheduler(env)
		if err != nil {
			return err
		}
		scheduler.Start(ctx)
		defer func() { <-scheduler.Stop().Done() }()

		deps := server.Deps{
			Syncer: env.orch,
			Hub:    hub,
			Logger: env.logger,
		}
		if env.feeds != nil {
			deps.Feeds = env.feeds
		}
		return server.Serve(ctx, env.cfg, deps)
	},
}

func init() {
	appCmd.AddCommand(serveCmd)
}
