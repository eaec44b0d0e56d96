package launcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/everlauncher/internal/config"
	"github.com/tanq16/everlauncher/internal/utils"
)

// DeploySource returns the deploy document URL FetchRemote would use with the
// config cached in store: the override, then the cached value, then the default.
func DeploySource(store *config.Store, opts Options) string {
	local, err := store.Load()
	if err != nil {
		local = nil
	}
	return selectSource(local, opts)
}

func selectSource(local *config.EverConfig, opts Options) string {
	if opts.DeploySourceOverride != "" {
		return opts.DeploySourceOverride
	}
	if local != nil && local.DeploySource != "" {
		return local.DeploySource
	}
	return opts.DeploySource
}

// FetchRemote downloads the deploy document, overlays it on the local snapshot
// and makes the result the live config. A previously resolved region is cleared.
func (s *Session) FetchRemote(ctx context.Context) error {
	local, err := s.store.Load()
	if err != nil {
		log.Warn().Str("op", "launcher/fetch").Str("session", s.id).Msgf("no usable local config: %v", err)
		local = nil
	}
	source := selectSource(local, s.opts)
	if source == "" {
		return fmt.Errorf("%w: no deploy source set", utils.ErrConfig)
	}

	log.Debug().Str("op", "launcher/fetch").Str("session", s.id).Msgf("fetching deploy config from %s", source)
	data, err := s.dl.DownloadTimeout(ctx, source, s.opts.Timeout, "", nil)
	if err != nil {
		return fmt.Errorf("error fetching deploy config from %s: %w", source, err)
	}
	remote, err := config.Parse(data)
	if err != nil {
		return fmt.Errorf("error parsing deploy config from %s: %w", source, err)
	}
	merged := config.Merge(local, remote)

	s.mu.Lock()
	s.cfg = merged
	s.region = ""
	s.stage = StageConfigured
	s.mu.Unlock()

	if err := s.store.Save(merged); err != nil {
		log.Warn().Str("op", "launcher/fetch").Str("session", s.id).Msgf("config not persisted: %v", err)
	}
	return nil
}

// Bootstrap fetches the config, then resolves platform and region.
func (s *Session) Bootstrap(ctx context.Context) error {
	if err := s.FetchRemote(ctx); err != nil {
		return fmt.Errorf("fetch config: %w", err)
	}
	if _, err := s.ResolvePlatform(); err != nil {
		return fmt.Errorf("resolve platform: %w", err)
	}
	if _, err := s.ResolveRegion(ctx); err != nil {
		return fmt.Errorf("resolve region: %w", err)
	}
	log.Debug().Str("op", "launcher/fetch").Str("session", s.id).Msg("session bootstrapped")
	return nil
}
