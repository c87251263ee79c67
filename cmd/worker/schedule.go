package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SickoOrange/SimpleAndReason/config"
	cronjob "github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/cron"
	"github.com/SickoOrange/SimpleAndReason/internal/bootstrap"
	"github.com/SickoOrange/SimpleAndReason/internal/logging"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Analyze the previous day of every configured plant on a cron schedule",
	Long: `schedule runs all use cases for each plant in SCHEDULE_PLANTS at SCHEDULE_CRON.
Exports are expected under ENG_PATH/<ppid> and ARC_PATH/<ppid>/<date>.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logging.SetLevel(cfg.App.LogLevel)
		if len(cfg.Schedule.Plants) == 0 {
			return errors.New("SCHEDULE_PLANTS is empty")
		}

		ctx := cmd.Context()
		app, err := bootstrap.NewApp(ctx, cfg, "")
		if err != nil {
			return err
		}
		defer app.Close()

		s := cronjob.NewScheduler(app.Runs, cronjob.Options{
			Schedule:        cfg.Schedule.Cron,
			Plants:          cfg.Schedule.Plants,
			Bucket:          cfg.Storage.Bucket,
			EngineeringRoot: cfg.Storage.EngineeringPath,
			ArchiveRoot:     cfg.Storage.ArchivePath,
		})
		if err := s.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()
		<-s.Stop().Done()
		fmt.Fprintln(cmd.OutOrStdout(), "scheduler stopped")
		return nil
	},
}
