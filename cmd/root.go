package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	u "net/url"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tanq16/everlauncher/internal/config"
	"github.com/tanq16/everlauncher/internal/downloader"
	"github.com/tanq16/everlauncher/internal/executor"
	"github.com/tanq16/everlauncher/internal/launcher"
	"github.com/tanq16/everlauncher/internal/output"
	"github.com/tanq16/everlauncher/internal/utils"
)

var (
	debug         bool
	dataDir       string
	envFile       string
	deploySource  string
	timeout       time.Duration
	pollInterval  time.Duration
	proxyURL      string
	proxyUsername string
	proxyPassword string
	userAgent     string
	headers       []string
	token         string
	s3Profile     string
)

// Set with -ldflags "-X github.com/tanq16/everlauncher/cmd.Version=..."
var (
	Version             = "dev"
	DefaultDeploySource = ""
)

var (
	osFs    afero.Fs = afero.NewOsFs()
	session *launcher.Session
	dl      *downloader.Downloader
)

var rootCmd = &cobra.Command{
	Use:               "everlauncher",
	Short:             "EverLauncher keeps a modded game installation in sync with its deploy config",
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Launcher data directory (default: user config dir/EverLauncher)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Env file with EVERLAUNCHER_* defaults; ignored when missing")
	rootCmd.PersistentFlags().StringVar(&deploySource, "deploy-source", "", "Deploy config URL, overriding the one in the local config")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", utils.DefaultTimeout, "Timeout for config fetches and region probes (eg. 5s, 1m)")
	rootCmd.PersistentFlags().DurationVar(&pollInterval, "poll-interval", utils.DefaultPollInterval, "Interval between download status polls")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'X-Client: launcher'); can be specified multiple times")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token sent to the deploy source host")
	rootCmd.PersistentFlags().StringVar(&s3Profile, "s3-profile", "", "AWS profile for s3:// mirrors")

	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newRegionCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newJRECmd())
	rootCmd.AddCommand(newCleanCmd())
}

// envDefault fills a flag the user did not set from an environment variable.
func envDefault(cmd *cobra.Command, flag, env string, target *string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v := os.Getenv(env); v != "" {
		*target = v
	}
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading env file %s: %v", envFile, err)
	}
	envDefault(cmd, "data-dir", "EVERLAUNCHER_DATA_DIR", &dataDir)
	envDefault(cmd, "deploy-source", "EVERLAUNCHER_DEPLOY_SOURCE", &deploySource)
	envDefault(cmd, "token", "EVERLAUNCHER_TOKEN", &token)
	envDefault(cmd, "s3-profile", "EVERLAUNCHER_S3_PROFILE", &s3Profile)
	utils.InitLogger(debug)

	if dataDir == "" {
		dir, err := config.DefaultDataDir()
		if err != nil {
			return err
		}
		dataDir = dir
	}

	// Check if proxy URL contains auth
	parsedProxy, err := u.Parse(proxyURL)
	if err == nil && parsedProxy.User != nil && proxyUsername == "" {
		proxyUsername = parsedProxy.User.Username()
		if password, set := parsedProxy.User.Password(); set {
			proxyPassword = password
		}
		parsedProxy.User = nil
		proxyURL = parsedProxy.String()
	}
	store := config.NewStore(osFs, dataDir)
	sessionOpts := launcher.Options{
		DeploySource:         DefaultDeploySource,
		DeploySourceOverride: deploySource,
		Timeout:              timeout,
	}
	// the token only goes to the host of the deploy source FetchRemote will use
	tokenSource := launcher.DeploySource(store, sessionOpts)
	if token != "" && tokenSource == "" {
		log.Warn().Str("op", "cmd/root").Msg("token set but no deploy source is known; it will not be sent")
	}
	exec := executor.NewLocalExecutor(executor.Options{
		HTTPClientConfig: utils.HTTPClientConfig{
			ProxyURL:      proxyURL,
			ProxyUsername: proxyUsername,
			ProxyPassword: proxyPassword,
			UserAgent:     userAgent,
			Headers:       utils.ParseHeaderArgs(headers),
			Token:         token,
			TokenHost:     utils.HostOf(tokenSource),
		},
		Fs:        osFs,
		S3Profile: s3Profile,
	})
	dl = downloader.New(exec, downloader.Options{PollInterval: pollInterval, DisposeTimeout: timeout})
	session = launcher.NewSession(store, dl, sessionOpts)
	log.Debug().Str("op", "cmd/root").Str("session", session.ID()).Msgf("data directory %s", dataDir)
	return nil
}

// fail prints one styled line naming the failed stage and exits.
func fail(stage string, err error) {
	output.PrintError(fmt.Sprintf("%s %s failed: %v", output.StyleSymbols["fail"], stage, err))
	os.Exit(1)
}

// resolveRegion treats an unresolvable region as "no preference".
func resolveRegion(cmd *cobra.Command) string {
	region, err := session.ResolveRegion(cmd.Context())
	if err != nil {
		output.PrintWarning(fmt.Sprintf("%s region unknown, using default mirror order: %v", output.StyleSymbols["warning"], err))
		return ""
	}
	return region
}
