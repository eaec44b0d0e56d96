package config

import "slices"

// Merge overlays incoming onto base and returns the result; neither input is modified.
// Non-empty scalars and lists in incoming win. Map fields are merged per key, with
// incoming replacing colliding entries wholesale.
func Merge(base, incoming *EverConfig) *EverConfig {
	if base == nil && incoming == nil {
		return &EverConfig{}
	}
	if base == nil {
		return incoming.Clone()
	}
	if incoming == nil {
		return base.Clone()
	}
	merged := base.Clone()
	add := incoming.Clone()
	if add.DefaultVersion != "" {
		merged.DefaultVersion = add.DefaultVersion
	}
	if add.DeploySource != "" {
		merged.DeploySource = add.DeploySource
	}
	if len(add.RegionProbes) > 0 {
		merged.RegionProbes = slices.Clone(add.RegionProbes)
	}
	merged.JRE = mergeMap(merged.JRE, add.JRE)
	merged.Versions = mergeMap(merged.Versions, add.Versions)
	merged.Proxy = mergeMap(merged.Proxy, add.Proxy)
	return merged
}

func mergeMap[K comparable, V any](dst, src map[K]V) map[K]V {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[K]V, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// ResolveLinks orders the source's links for region. Without a priority entry for
// region the links are returned as listed; indices missing from the entry are dropped.
func ResolveLinks(source DownloadSource, region string) []string {
	order, ok := source.Priority[region]
	if !ok {
		return slices.Clone(source.Links)
	}
	links := make([]string, 0, len(order))
	for _, idx := range order {
		if idx < 0 || idx >= len(source.Links) {
			continue
		}
		links = append(links, source.Links[idx])
	}
	return links
}
