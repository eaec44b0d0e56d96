package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tanq16/everlauncher/internal/output"
)

func newRegionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "region",
		Short: "Detect the network region used to order mirrors",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := session.FetchRemote(cmd.Context()); err != nil {
				fail("fetch", err)
			}
			platform, err := session.ResolvePlatform()
			if err != nil {
				fail("platform detection", err)
			}
			region, err := session.ResolveRegion(cmd.Context())
			if err != nil {
				fail("region detection", err)
			}
			output.PrintField("platform", string(platform))
			output.PrintField("region", region)
		},
	}
}
