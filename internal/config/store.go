package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/tanq16/everlauncher/internal/utils"
	"gopkg.in/yaml.v3"
)

// Store persists the merged config snapshot under the launcher data directory.
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fs afero.Fs, dataDir string) *Store {
	return &Store{fs: fs, dir: dataDir}
}

func DefaultDataDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error locating user config directory: %v", err)
	}
	return filepath.Join(dir, "EverLauncher"), nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Path() string {
	return filepath.Join(s.dir, utils.LocalConfigFile)
}

// Load reads the cached config. Callers treat any error as "no local config".
func (s *Store) Load() (*EverConfig, error) {
	data, err := afero.ReadFile(s.fs, s.Path())
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", s.Path(), err)
	}
	log.Debug().Str("op", "config/store").Msgf("loaded local config from %s", s.Path())
	return cfg, nil
}

func (s *Store) Save(cfg *EverConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error encoding config: %v", err)
	}
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("error creating data directory: %v", err)
	}
	if err := afero.WriteFile(s.fs, s.Path(), data, 0644); err != nil {
		return fmt.Errorf("error writing config: %v", err)
	}
	log.Debug().Str("op", "config/store").Msgf("saved config to %s", s.Path())
	return nil
}
