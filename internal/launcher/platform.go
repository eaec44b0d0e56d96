package launcher

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/everlauncher/internal/config"
	"github.com/tanq16/everlauncher/internal/utils"
)

// DetectPlatform maps an OS/arch pair to a platform the deploy config can key on.
func DetectPlatform(goos, goarch string) (config.Platform, error) {
	switch {
	case goos == "linux" && goarch == "amd64":
		return config.PlatformLinux, nil
	case goos == "darwin" && goarch == "amd64":
		return config.PlatformMac, nil
	case goos == "windows" && goarch == "amd64":
		return config.PlatformWindows, nil
	case goos == "windows" && goarch == "386":
		return config.PlatformWin32, nil
	}
	return "", fmt.Errorf("%w: %s/%s", utils.ErrUnsupportedPlatform, goos, goarch)
}

func (s *Session) ResolvePlatform() (config.Platform, error) {
	goos, goarch := s.opts.PlatformProbe()
	platform, err := DetectPlatform(goos, goarch)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.platform = platform
	s.mu.Unlock()
	log.Debug().Str("op", "launcher/platform").Str("session", s.id).Msgf("platform resolved to %s", platform)
	return platform, nil
}
