// Package config holds the launcher configuration model: the deploy document
// fetched from a deploy source, its overlay merge onto the locally cached copy,
// and mirror ordering for download sources.
package config

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/tanq16/everlauncher/internal/utils"
)

// DownloadSource describes one distributable artifact and the mirrors serving it.
type DownloadSource struct {
	Links  []string `json:"link" yaml:"link"`
	SHA256 string   `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	// Priority maps a region to link indices, overriding the order of Links.
	Priority map[string][]int `json:"priority,omitempty" yaml:"priority,omitempty"`
}

type GameConfig struct {
	DisplayName       string                    `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Version           string                    `json:"version,omitempty" yaml:"version,omitempty"`
	JSON              string                    `json:"json,omitempty" yaml:"json,omitempty"`
	JREVersion        string                    `json:"jreVersion,omitempty" yaml:"jreVersion,omitempty"`
	CustomJRELocation string                    `json:"customJreLocation,omitempty" yaml:"customJreLocation,omitempty"`
	Mods              map[string]DownloadSource `json:"mods,omitempty" yaml:"mods,omitempty"`
	ResourcePacks     map[string]DownloadSource `json:"resourcepacks,omitempty" yaml:"resourcepacks,omitempty"`
	Extra             map[string]DownloadSource `json:"extra,omitempty" yaml:"extra,omitempty"`
}

type ProxyConfig struct {
	Priority  map[string][]string          `json:"priority,omitempty" yaml:"priority,omitempty"`
	ProxyList map[string]map[string]string `json:"proxyList,omitempty" yaml:"proxyList,omitempty"`
}

type RegionProbe struct {
	URL   string `json:"url" yaml:"url"`
	Regex string `json:"regex" yaml:"regex"`
}

type EverConfig struct {
	JRE            map[string]JRETable    `json:"jre,omitempty" yaml:"jre,omitempty"`
	DefaultVersion string                 `json:"defaultMcVersion,omitempty" yaml:"defaultMcVersion,omitempty"`
	Versions       map[string]GameConfig  `json:"mcVersion,omitempty" yaml:"mcVersion,omitempty"`
	Proxy          map[string]ProxyConfig `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	RegionProbes   []RegionProbe          `json:"regionCheck,omitempty" yaml:"regionCheck,omitempty"`
	DeploySource   string                 `json:"deploySource,omitempty" yaml:"deploySource,omitempty"`
}

// Game returns the game config for version, or for DefaultVersion when version is empty.
func (c *EverConfig) Game(version string) (GameConfig, string, error) {
	if version == "" {
		version = c.DefaultVersion
	}
	if version == "" {
		return GameConfig{}, "", fmt.Errorf("%w: no version given and no default version set", utils.ErrConfig)
	}
	game, ok := c.Versions[version]
	if !ok {
		return GameConfig{}, version, fmt.Errorf("%w: version %s not available in [%s]", utils.ErrConfig, version, strings.Join(sortedKeys(c.Versions), ", "))
	}
	return game, version, nil
}

// JRESource returns the runtime download source of jreVersion for platform.
func (c *EverConfig) JRESource(jreVersion string, platform Platform) (DownloadSource, error) {
	table, ok := c.JRE[jreVersion]
	if !ok {
		return DownloadSource{}, fmt.Errorf("%w: JRE version %s not available in [%s]", utils.ErrConfig, jreVersion, strings.Join(sortedKeys(c.JRE), ", "))
	}
	return table.Source(platform)
}

func (c *EverConfig) Clone() *EverConfig {
	if c == nil {
		return nil
	}
	clone := &EverConfig{
		DefaultVersion: c.DefaultVersion,
		DeploySource:   c.DeploySource,
		RegionProbes:   slices.Clone(c.RegionProbes),
	}
	if c.JRE != nil {
		clone.JRE = make(map[string]JRETable, len(c.JRE))
		for k, v := range c.JRE {
			clone.JRE[k] = v.clone()
		}
	}
	if c.Versions != nil {
		clone.Versions = make(map[string]GameConfig, len(c.Versions))
		for k, v := range c.Versions {
			clone.Versions[k] = v.clone()
		}
	}
	if c.Proxy != nil {
		clone.Proxy = make(map[string]ProxyConfig, len(c.Proxy))
		for k, v := range c.Proxy {
			clone.Proxy[k] = v.clone()
		}
	}
	return clone
}

func (s DownloadSource) clone() DownloadSource {
	out := DownloadSource{Links: slices.Clone(s.Links), SHA256: s.SHA256}
	if s.Priority != nil {
		out.Priority = make(map[string][]int, len(s.Priority))
		for region, order := range s.Priority {
			out.Priority[region] = slices.Clone(order)
		}
	}
	return out
}

func (g GameConfig) clone() GameConfig {
	out := g
	out.Mods = cloneSources(g.Mods)
	out.ResourcePacks = cloneSources(g.ResourcePacks)
	out.Extra = cloneSources(g.Extra)
	return out
}

func (p ProxyConfig) clone() ProxyConfig {
	out := ProxyConfig{}
	if p.Priority != nil {
		out.Priority = make(map[string][]string, len(p.Priority))
		for k, v := range p.Priority {
			out.Priority[k] = slices.Clone(v)
		}
	}
	if p.ProxyList != nil {
		out.ProxyList = make(map[string]map[string]string, len(p.ProxyList))
		for k, v := range p.ProxyList {
			out.ProxyList[k] = maps.Clone(v)
		}
	}
	return out
}

func cloneSources(sources map[string]DownloadSource) map[string]DownloadSource {
	if sources == nil {
		return nil
	}
	out := make(map[string]DownloadSource, len(sources))
	for k, v := range sources {
		out[k] = v.clone()
	}
	return out
}

func sortedKeys[K ~string, V any](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
