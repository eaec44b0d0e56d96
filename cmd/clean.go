package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/everlauncher/internal/output"
	"github.com/tanq16/everlauncher/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [DIR]",
		Short: "Remove temporary files left by interrupted syncs",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			if err := utils.Clean(osFs, dir); err != nil {
				fail("clean", err)
			}
			output.PrintSuccess(fmt.Sprintf("%s temporary files cleaned up in %s", output.StyleSymbols["pass"], dir))
		},
	}
}
