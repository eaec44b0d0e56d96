package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tanq16/everlauncher/internal/downloader"
	"github.com/tanq16/everlauncher/internal/output"
	"github.com/tanq16/everlauncher/internal/utils"
)

func newDownloadCmd() *cobra.Command {
	var outputPath string
	var unpackDir string
	var key string
	var maxTime time.Duration

	cmd := &cobra.Command{
		Use:   "download [URL] [--key SHA256] [--output FILE | --unpack DIR]",
		Short: "Download one file over HTTP(S) or from s3://bucket/key",
		Long: `Download one file through the launcher download engine.

Examples:
  everlauncher download https://mirror.example.com/pack.zip
  everlauncher download https://mirror.example.com/jre17.zip --key <sha256> --unpack ./jre
  everlauncher download s3://bucket/mods/sodium.jar --s3-profile launcher`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			url := args[0]
			if outputPath != "" && unpackDir != "" {
				fail("download", fmt.Errorf("--output and --unpack are mutually exclusive"))
			}
			display := output.NewDisplay()
			id := display.Register(url)
			req := downloader.Request{
				Key:     key,
				Timeout: maxTime,
				OnProgress: func(p downloader.Progress) {
					display.Update(id, p.Downloaded, p.TotalSize)
				},
			}
			display.Start()

			if unpackDir != "" {
				err := dl.DownloadTo(cmd.Context(), url, unpackDir, req)
				finish(display, id, err, "unpacked to "+unpackDir)
				return
			}
			data, err := dl.Download(cmd.Context(), url, req)
			if err == nil {
				target := outputPath
				if target == "" {
					target = utils.FileNameFromURL(url, "download.bin")
				}
				if _, statErr := osFs.Stat(target); statErr == nil {
					target = utils.RenewOutputPath(osFs, target)
				}
				if mkErr := osFs.MkdirAll(filepath.Dir(target), 0755); mkErr != nil {
					err = mkErr
				} else {
					err = afero.WriteFile(osFs, target, data, 0644)
				}
				outputPath = target
			}
			finish(display, id, err, fmt.Sprintf("saved %s to %s", output.FormatBytes(uint64(len(data))), outputPath))
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (inferred from the URL if not provided)")
	cmd.Flags().StringVar(&unpackDir, "unpack", "", "Unpack the downloaded zip archive into this directory")
	cmd.Flags().StringVarP(&key, "key", "k", "", "Expected SHA-256 of the payload; enables validation")
	cmd.Flags().DurationVar(&maxTime, "max-time", 0, "Abort when the download takes longer than this (0 waits indefinitely)")
	return cmd
}

func finish(display *output.Display, id int, err error, message string) {
	if err != nil {
		display.Fail(id, err)
		display.Stop()
		os.Exit(1)
	}
	display.Complete(id, message)
	display.Stop()
}
