package launcher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/everlauncher/internal/config"
	"github.com/tanq16/everlauncher/internal/downloader"
	"github.com/tanq16/everlauncher/internal/utils"
)

// CheckRuntime reports whether `path --version` exits with status 0 within timeout.
func CheckRuntime(ctx context.Context, path string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = utils.DefaultRuntimeCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, path, "--version")
	cmd.WaitDelay = 100 * time.Millisecond
	if err := cmd.Run(); err != nil {
		log.Debug().Str("op", "launcher/runtime").Msgf("runtime check of %s failed: %v", path, err)
		return false
	}
	return true
}

func (s *Session) JREDir() string {
	return filepath.Join(s.store.Dir(), "jre")
}

func (s *Session) game(version string) (config.GameConfig, error) {
	cfg, err := s.Config()
	if err != nil {
		return config.GameConfig{}, err
	}
	game, _, err := cfg.Game(version)
	if err != nil {
		return config.GameConfig{}, err
	}
	if game.JREVersion == "" {
		return config.GameConfig{}, fmt.Errorf("%w: JRE version not set", utils.ErrConfig)
	}
	return game, nil
}

func (s *Session) javaPath(jreVersion string) (string, error) {
	platform, err := s.Platform()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.JREDir(), jreVersion, "bin", platform.Executable("java")), nil
}

// LocateJRE returns a working java executable for the game version, or "" when
// none is installed. The custom location is preferred over the managed one.
func (s *Session) LocateJRE(ctx context.Context, version string) (string, error) {
	game, err := s.game(version)
	if err != nil {
		return "", err
	}
	if game.CustomJRELocation != "" && CheckRuntime(ctx, game.CustomJRELocation, s.opts.RuntimeCheckTimeout) {
		return game.CustomJRELocation, nil
	}
	path, err := s.javaPath(game.JREVersion)
	if err != nil {
		return "", err
	}
	if CheckRuntime(ctx, path, s.opts.RuntimeCheckTimeout) {
		return path, nil
	}
	return "", nil
}

func (s *Session) JRESource(version string) (config.DownloadSource, error) {
	game, err := s.game(version)
	if err != nil {
		return config.DownloadSource{}, err
	}
	platform, err := s.Platform()
	if err != nil {
		return config.DownloadSource{}, err
	}
	cfg, err := s.Config()
	if err != nil {
		return config.DownloadSource{}, err
	}
	return cfg.JRESource(game.JREVersion, platform)
}

// JRELinks orders the runtime mirrors for the session region; without a
// resolved region they keep their listed order.
func (s *Session) JRELinks(version string) ([]string, error) {
	source, err := s.JRESource(version)
	if err != nil {
		return nil, err
	}
	region, err := s.Region()
	if err != nil {
		log.Debug().Str("op", "launcher/runtime").Str("session", s.id).Msg("region unknown, using listed mirror order")
		region = ""
	}
	return config.ResolveLinks(source, region), nil
}

func (s *Session) JREDigest(version string) (string, error) {
	source, err := s.JRESource(version)
	if err != nil {
		return "", err
	}
	return source.SHA256, nil
}

// InstallJRE downloads the runtime archive from the first working mirror and
// unpacks it into the managed JRE directory. It returns the java path.
func (s *Session) InstallJRE(ctx context.Context, version string, onProgress downloader.ProgressFunc) (string, error) {
	game, err := s.game(version)
	if err != nil {
		return "", err
	}
	links, err := s.JRELinks(version)
	if err != nil {
		return "", err
	}
	digest, err := s.JREDigest(version)
	if err != nil {
		return "", err
	}
	if len(links) == 0 {
		return "", fmt.Errorf("%w: no JRE mirrors for the current region", utils.ErrConfig)
	}
	dir := filepath.Join(s.JREDir(), game.JREVersion)
	var errs []error
	for _, link := range links {
		err := s.dl.DownloadTo(ctx, link, dir, downloader.Request{Key: digest, OnProgress: onProgress})
		if err == nil {
			log.Debug().Str("op", "launcher/runtime").Str("session", s.id).Msgf("installed JRE %s from %s", game.JREVersion, link)
			return s.javaPath(game.JREVersion)
		}
		log.Warn().Str("op", "launcher/runtime").Str("session", s.id).Msgf("mirror %s failed: %v", link, err)
		errs = append(errs, fmt.Errorf("%s: %w", link, err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("installing JRE %s: %w", game.JREVersion, errors.Join(errs...))
}
