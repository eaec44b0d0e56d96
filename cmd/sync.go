package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/everlauncher/internal/output"
	"github.com/tanq16/everlauncher/internal/scheduler"
)

func newSyncCmd() *cobra.Command {
	var outputDir string
	var workers int
	var jobTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "sync [VERSION] [--output DIR] [--workers N]",
		Short: "Download the mods, resource packs and extra files of a game version",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := session.FetchRemote(cmd.Context()); err != nil {
				fail("fetch", err)
			}
			cfg, err := session.Config()
			if err != nil {
				fail("fetch", err)
			}
			requested := ""
			if len(args) > 0 {
				requested = args[0]
			}
			game, version, err := cfg.Game(requested)
			if err != nil {
				fail("version lookup", err)
			}
			region := resolveRegion(cmd)
			if outputDir == "" {
				outputDir = filepath.Join(session.Store().Dir(), "games", version)
			}
			jobs := scheduler.JobsFor(game, outputDir)
			if len(jobs) == 0 {
				output.PrintInfo(fmt.Sprintf("nothing to sync for %s", version))
				return
			}
			output.PrintHeader(fmt.Sprintf("Syncing %d artifacts of %s into %s", len(jobs), version, outputDir))
			err = scheduler.Run(cmd.Context(), jobs, scheduler.Options{
				Downloader: dl,
				Fs:         osFs,
				Workers:    workers,
				Region:     region,
				Timeout:    jobTimeout,
			})
			if err != nil {
				fail("sync", fmt.Errorf("some artifacts could not be downloaded"))
			}
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Game directory (default: data dir/games/VERSION)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of artifacts to download in parallel")
	cmd.Flags().DurationVar(&jobTimeout, "job-timeout", 5*time.Minute, "Timeout for each mirror attempt")
	return cmd
}
