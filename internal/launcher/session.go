// Package launcher holds the per-process launcher session: the merged config,
// the detected region and platform, and the runtime (JRE) helpers built on them.
package launcher

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tanq16/everlauncher/internal/config"
	"github.com/tanq16/everlauncher/internal/downloader"
	"github.com/tanq16/everlauncher/internal/utils"
)

type Stage int

const (
	StageUninitialized Stage = iota
	StageConfigured
	StageRegionResolved
)

func (s Stage) String() string {
	switch s {
	case StageUninitialized:
		return "uninitialized"
	case StageConfigured:
		return "configured"
	case StageRegionResolved:
		return "region-resolved"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// PlatformProbe reports the operating system and architecture to map to a Platform.
type PlatformProbe func() (goos, goarch string)

type Options struct {
	// DeploySource is used when the local config names none.
	DeploySource string
	// DeploySourceOverride wins over the local config when set.
	DeploySourceOverride string
	Timeout              time.Duration
	RuntimeCheckTimeout  time.Duration
	PlatformProbe        PlatformProbe
}

type Session struct {
	id    string
	store *config.Store
	dl    *downloader.Downloader
	opts  Options

	mu       sync.RWMutex
	stage    Stage
	cfg      *config.EverConfig
	region   string
	platform config.Platform
}

func NewSession(store *config.Store, dl *downloader.Downloader, opts Options) *Session {
	if opts.Timeout <= 0 {
		opts.Timeout = utils.DefaultTimeout
	}
	if opts.RuntimeCheckTimeout <= 0 {
		opts.RuntimeCheckTimeout = utils.DefaultRuntimeCheckTimeout
	}
	if opts.PlatformProbe == nil {
		opts.PlatformProbe = func() (string, string) { return runtime.GOOS, runtime.GOARCH }
	}
	return &Session{
		id:    uuid.NewString(),
		store: store,
		dl:    dl,
		opts:  opts,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Stage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

func (s *Session) Store() *config.Store {
	return s.store
}

func (s *Session) Config() (*config.EverConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stage < StageConfigured {
		return nil, fmt.Errorf("%w: config not fetched", utils.ErrNotInitialized)
	}
	return s.cfg, nil
}

func (s *Session) Region() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stage < StageRegionResolved {
		return "", fmt.Errorf("%w: region not resolved", utils.ErrNotInitialized)
	}
	return s.region, nil
}

func (s *Session) Platform() (config.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.platform == "" {
		return "", fmt.Errorf("%w: platform not resolved", utils.ErrNotInitialized)
	}
	return s.platform, nil
}
