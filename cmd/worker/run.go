package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SickoOrange/SimpleAndReason/config"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/domain"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/ingest/loader"
	"github.com/SickoOrange/SimpleAndReason/internal/bootstrap"
	"github.com/SickoOrange/SimpleAndReason/internal/logging"
)

type runFlags struct {
	ppid     string
	dates    []string
	index    int
	bucket   string
	engPath  string
	arcPath  string
	useCases []string
	localDir string
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze one plant day",
	Example: `  worker run --ppid P1 --date 2017-11-27 --eng-path eng/P1 --arc-path arc/P1/2017-11-27 --use-case alarmnot
  worker run --ppid P1 --date 2017-11-27 --dir ./exports --eng-path eng --arc-path arc`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		useCases, err := parseUseCases(runOpts.useCases)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logging.SetLevel(cfg.App.LogLevel)

		ctx := cmd.Context()
		app, err := bootstrap.NewApp(ctx, cfg, runOpts.localDir)
		if err != nil {
			return err
		}
		defer app.Close()

		params := runOpts.params(cfg)
		enc := json.NewEncoder(cmd.OutOrStdout())
		var failed int
		for _, uc := range useCases {
			run, res, err := app.Runs.Start(ctx, params, uc)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", uc, err)
				failed++
				if run == nil {
					continue
				}
			}
			if err := enc.Encode(map[string]any{"run": run, "result": res}); err != nil {
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d analyses failed", failed, len(useCases))
		}
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.ppid, "ppid", "", "plant id")
	f.StringSliceVar(&runOpts.dates, "date", nil, "day to analyze (yyyy-mm-dd), repeatable")
	f.IntVar(&runOpts.index, "index", 0, "index of the analyzed day within --date")
	f.StringVar(&runOpts.bucket, "bucket", "", "bucket of the exports (default S3_BUCKET)")
	f.StringVar(&runOpts.engPath, "eng-path", "", "key prefix of the engineering export (default ENG_PATH)")
	f.StringVar(&runOpts.arcPath, "arc-path", "", "key prefix of the archive export (default ARC_PATH)")
	f.StringSliceVar(&runOpts.useCases, "use-case", []string{string(domain.UseCaseAlarmNot)}, "alarmnot, alarmand or alarmor, repeatable")
	f.StringVar(&runOpts.localDir, "dir", "", "read exports from this directory instead of S3")
	_ = runCmd.MarkFlagRequired("ppid")
	_ = runCmd.MarkFlagRequired("date")
}

func (o runFlags) params(cfg *config.Config) domain.Params {
	paths := loader.Paths{Engineering: o.engPath, Archive: o.arcPath}
	if paths.Engineering == "" {
		paths.Engineering = cfg.Storage.EngineeringPath
	}
	if paths.Archive == "" {
		paths.Archive = cfg.Storage.ArchivePath
	}
	return domain.Params{
		PPID:   o.ppid,
		Dates:  o.dates,
		Index:  o.index,
		Bucket: o.bucket,
		Paths:  paths,
	}
}

func parseUseCases(names []string) ([]domain.UseCase, error) {
	out := make([]domain.UseCase, 0, len(names))
	for _, n := range names {
		uc, err := domain.ParseUseCase(n)
		if err != nil {
			return nil, err
		}
		out = append(out, uc)
	}
	return out, nil
}

