package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/tanq16/everlauncher/internal/utils"
	"gopkg.in/yaml.v3"
)

// Parse decodes a deploy document. JSON documents (as served by deploy sources)
// and YAML documents (as cached locally) are both accepted.
func Parse(text []byte) (*EverConfig, error) {
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty config", utils.ErrConfig)
	}
	cfg := &EverConfig{}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, cfg); err != nil {
			return nil, fmt.Errorf("%w: error decoding json: %v", utils.ErrConfig, err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, cfg); err != nil {
			return nil, fmt.Errorf("%w: error decoding yaml: %v", utils.ErrConfig, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first structural problem found in the config.
func (c *EverConfig) Validate() error {
	for version, table := range c.JRE {
		for platform, src := range table {
			if !platform.Known() {
				return fmt.Errorf("%w: jre %s: unknown platform %q", utils.ErrConfig, version, platform)
			}
			if err := checkSource(src); err != nil {
				return fmt.Errorf("%w: jre %s/%s: %v", utils.ErrConfig, version, platform, err)
			}
		}
	}
	for version, game := range c.Versions {
		groups := map[string]map[string]DownloadSource{
			"mods":          game.Mods,
			"resourcepacks": game.ResourcePacks,
			"extra":         game.Extra,
		}
		for group, sources := range groups {
			for name, src := range sources {
				if err := checkSource(src); err != nil {
					return fmt.Errorf("%w: %s %s/%s: %v", utils.ErrConfig, version, group, name, err)
				}
			}
		}
	}
	for i, probe := range c.RegionProbes {
		if _, err := probe.Compile(); err != nil {
			return fmt.Errorf("%w: regionCheck[%d]: %v", utils.ErrConfig, i, err)
		}
	}
	return nil
}

func checkSource(s DownloadSource) error {
	if len(s.Links) == 0 {
		return errors.New("no links")
	}
	for region, order := range s.Priority {
		for _, idx := range order {
			if idx < 0 || idx >= len(s.Links) {
				return fmt.Errorf("priority %s references link %d of %d", region, idx, len(s.Links))
			}
		}
	}
	return nil
}

// Compile returns the probe's pattern, which must carry a capture group for the region.
func (p RegionProbe) Compile() (*regexp.Regexp, error) {
	if p.URL == "" {
		return nil, errors.New("missing url")
	}
	if p.Regex == "" {
		return nil, errors.New("missing regex")
	}
	re, err := regexp.Compile(p.Regex)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %v", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("regex %q has no capture group", p.Regex)
	}
	return re, nil
}
