package launcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/everlauncher/internal/config"
	"github.com/tanq16/everlauncher/internal/race"
	"github.com/tanq16/everlauncher/internal/utils"
)

// ResolveRegion races every configured region probe and keeps the first answer.
func (s *Session) ResolveRegion(ctx context.Context) (string, error) {
	cfg, err := s.Config()
	if err != nil {
		return "", err
	}
	probes := make([]race.Probe[string], len(cfg.RegionProbes))
	for i, probe := range cfg.RegionProbes {
		probe := probe
		probes[i] = func(ctx context.Context) (string, error) {
			return s.CheckRegion(ctx, probe)
		}
	}
	region, err := race.First(ctx, probes)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.region = region
	s.stage = StageRegionResolved
	s.mu.Unlock()
	log.Debug().Str("op", "launcher/region").Str("session", s.id).Msgf("region resolved to %s", region)
	return region, nil
}

// CheckRegion fetches the probe URL and returns the first capture group of the probe regex.
func (s *Session) CheckRegion(ctx context.Context, probe config.RegionProbe) (string, error) {
	re, err := probe.Compile()
	if err != nil {
		return "", err
	}
	data, err := s.dl.DownloadTimeout(ctx, probe.URL, s.opts.Timeout, "", nil)
	if err != nil {
		return "", err
	}
	match := re.FindSubmatch(data)
	if len(match) < 2 {
		return "", fmt.Errorf("%w: no region found in response from %s", utils.ErrResolution, probe.URL)
	}
	return string(match[1]), nil
}
