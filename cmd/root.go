package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-reminders/internal/config"
	"github.com/ukydev/fleet-reminders/internal/logging"
)

// cli carries state shared by the subcommands once the root has loaded it.
type cli struct {
	envFile string
	cfg     *config.Config
	logger  *log.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "fleet-reminders",
		Short: "Preventive maintenance reminders for fleet vehicles",
		Long: `fleet-reminders evaluates every active reminder rule against the vehicles
it covers and creates a reminder when service is due, due soon, or overdue.

Common workflows:

  Serve the HTTP API and run passes on GENERATION_SCHEDULE:
    fleet-reminders serve

  Run one pass from an external scheduler and print the result:
    fleet-reminders run

  Create the indexes the engine relies on:
    fleet-reminders migrate

Configuration is read from the environment, optionally seeded from a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.envFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(newServeCmd(c), newRunCmd(c), newMigrateCmd(c))
	return root
}
