package cmd

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanq16/everlauncher/internal/output"
)

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the deploy config and merge it into the local config",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := session.FetchRemote(cmd.Context()); err != nil {
				fail("fetch", err)
			}
			cfg, err := session.Config()
			if err != nil {
				fail("fetch", err)
			}
			versions := make([]string, 0, len(cfg.Versions))
			for version := range cfg.Versions {
				versions = append(versions, version)
			}
			sort.Strings(versions)
			jres := make([]string, 0, len(cfg.JRE))
			for version := range cfg.JRE {
				jres = append(jres, version)
			}
			sort.Strings(jres)

			output.PrintHeader("Deploy config")
			output.PrintField("deploy source", cfg.DeploySource)
			output.PrintField("default", cfg.DefaultVersion)
			output.PrintField("versions", strings.Join(versions, ", "))
			output.PrintField("runtimes", strings.Join(jres, ", "))
			output.PrintField("saved to", session.Store().Path())
		},
	}
}
