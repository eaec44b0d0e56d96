package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/everlauncher/internal/downloader"
	"github.com/tanq16/everlauncher/internal/output"
)

func newJRECmd() *cobra.Command {
	var install bool

	cmd := &cobra.Command{
		Use:   "jre [VERSION] [--install]",
		Short: "Locate, and optionally install, the Java runtime of a game version",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			version := ""
			if len(args) > 0 {
				version = args[0]
			}
			if err := session.FetchRemote(cmd.Context()); err != nil {
				fail("fetch", err)
			}
			if _, err := session.ResolvePlatform(); err != nil {
				fail("platform detection", err)
			}
			path, err := session.LocateJRE(cmd.Context(), version)
			if err != nil {
				fail("JRE lookup", err)
			}
			if path != "" {
				output.PrintField("java", path)
				return
			}
			if !install {
				output.PrintWarning(fmt.Sprintf("%s no working JRE found; rerun with --install", output.StyleSymbols["warning"]))
				return
			}
			resolveRegion(cmd)

			label := version
			if label == "" {
				label = "default version"
			}
			display := output.NewDisplay()
			id := display.Register("JRE for " + label)
			display.Start()
			path, err = session.InstallJRE(cmd.Context(), version, func(p downloader.Progress) {
				display.Update(id, p.Downloaded, p.TotalSize)
			})
			finish(display, id, err, "installed "+path)
			output.PrintField("java", path)
		},
	}

	cmd.Flags().BoolVar(&install, "install", false, "Download and unpack the runtime when none is found")
	return cmd
}
