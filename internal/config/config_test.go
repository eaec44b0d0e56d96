package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/everlauncher/internal/utils"
)

const deployJSON = `{
  "jre": {
    "17": {
      "linux": {"link": ["https://a.example.com/jre17.zip", "https://b.example.com/jre17.zip"], "sha256": "aa", "priority": {"cn": [1, 0]}},
      "windows": {"link": ["https://a.example.com/jre17-win.zip"]}
    }
  },
  "defaultMcVersion": "1.20.1",
  "mcVersion": {
    "1.20.1": {
      "displayName": "Modded 1.20.1",
      "version": "1.20.1",
      "jreVersion": "17",
      "mods": {"sodium": {"link": ["https://a.example.com/sodium.jar"], "sha256": "bb"}}
    }
  },
  "regionCheck": [{"url": "https://ip.example.com/cdn-cgi/trace", "regex": "loc=(\\w+)"}],
  "deploySource": "https://deploy.example.com/deploy.json",
  "someFutureField": {"ignored": true}
}`

func TestParseJSON(t *testing.T) {
	cfg, err := Parse([]byte(deployJSON))
	require.NoError(t, err)

	assert.Equal(t, "1.20.1", cfg.DefaultVersion)
	assert.Equal(t, "https://deploy.example.com/deploy.json", cfg.DeploySource)
	require.Len(t, cfg.RegionProbes, 1)
	assert.Equal(t, `loc=(\w+)`, cfg.RegionProbes[0].Regex)

	src, err := cfg.JRESource("17", PlatformLinux)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, src.Priority["cn"])

	game, version, err := cfg.Game("")
	require.NoError(t, err)
	assert.Equal(t, "1.20.1", version)
	assert.Equal(t, "17", game.JREVersion)
	assert.Equal(t, "bb", game.Mods["sodium"].SHA256)
}

func TestParseYAML(t *testing.T) {
	doc := `
defaultMcVersion: "1.19"
jre:
  "8":
    mac:
      link: [https://a.example.com/jre8-mac.zip]
regionCheck:
  - url: https://ip.example.com
    regex: 'country=([A-Z]+)'
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "1.19", cfg.DefaultVersion)
	src, err := cfg.JRESource("8", PlatformMac)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com/jre8-mac.zip"}, src.Links)
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: "   "},
		{name: "malformed json", doc: `{"defaultMcVersion": `},
		{name: "wrong type", doc: `{"defaultMcVersion": {"a": 1}}`},
		{name: "scalar yaml", doc: `just a string`},
		{name: "source without links", doc: `{"jre": {"17": {"linux": {"sha256": "aa"}}}}`},
		{name: "priority out of range", doc: `{"jre": {"17": {"linux": {"link": ["a"], "priority": {"cn": [0, 3]}}}}}`},
		{name: "unknown platform", doc: `{"jre": {"17": {"solaris": {"link": ["a"]}}}}`},
		{name: "mod without links", doc: `{"mcVersion": {"1.0": {"mods": {"x": {"link": []}}}}}`},
		{name: "probe without url", doc: `{"regionCheck": [{"regex": "(x)"}]}`},
		{name: "probe bad regex", doc: `{"regionCheck": [{"url": "u", "regex": "(x"}]}`},
		{name: "probe without group", doc: `{"regionCheck": [{"url": "u", "regex": "x"}]}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, utils.ErrConfig)
		})
	}
}

func TestMergeScalars(t *testing.T) {
	base := &EverConfig{DefaultVersion: "1.19", DeploySource: "https://old.example.com"}
	incoming := &EverConfig{DefaultVersion: "1.20.1"}

	merged := Merge(base, incoming)
	assert.Equal(t, "1.20.1", merged.DefaultVersion)
	assert.Equal(t, "https://old.example.com", merged.DeploySource)

	// inputs are untouched
	assert.Equal(t, "1.19", base.DefaultVersion)
}

func TestMergeMapsPerKey(t *testing.T) {
	base := &EverConfig{
		Versions: map[string]GameConfig{
			"1.19":   {DisplayName: "old 1.19", JREVersion: "17"},
			"1.20.1": {DisplayName: "old 1.20.1"},
		},
		JRE: map[string]JRETable{
			"8": {PlatformLinux: {Links: []string{"l8"}}},
		},
		RegionProbes: []RegionProbe{{URL: "u1", Regex: "(a)"}},
	}
	incoming := &EverConfig{
		Versions: map[string]GameConfig{
			"1.20.1": {DisplayName: "new 1.20.1"},
			"1.21":   {DisplayName: "new 1.21"},
		},
		JRE: map[string]JRETable{
			"17": {PlatformWindows: {Links: []string{"w17"}}},
		},
	}

	merged := Merge(base, incoming)

	want := &EverConfig{
		Versions: map[string]GameConfig{
			"1.19":   {DisplayName: "old 1.19", JREVersion: "17"},
			"1.20.1": {DisplayName: "new 1.20.1"},
			"1.21":   {DisplayName: "new 1.21"},
		},
		JRE: map[string]JRETable{
			"8":  {PlatformLinux: {Links: []string{"l8"}}},
			"17": {PlatformWindows: {Links: []string{"w17"}}},
		},
		RegionProbes: []RegionProbe{{URL: "u1", Regex: "(a)"}},
	}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, base.Versions, 2)
}

func TestMergeReplacesSourceWholesale(t *testing.T) {
	base := &EverConfig{JRE: map[string]JRETable{
		"17": {PlatformLinux: {Links: []string{"a", "b"}, SHA256: "old", Priority: map[string][]int{"cn": {1, 0}}}},
	}}
	incoming := &EverConfig{JRE: map[string]JRETable{
		"17": {PlatformLinux: {Links: []string{"c"}}},
	}}

	merged := Merge(base, incoming)
	assert.Equal(t, DownloadSource{Links: []string{"c"}}, merged.JRE["17"][PlatformLinux])
}

func TestMergeRegionProbesReplaced(t *testing.T) {
	base := &EverConfig{RegionProbes: []RegionProbe{{URL: "u1", Regex: "(a)"}}}
	incoming := &EverConfig{RegionProbes: []RegionProbe{{URL: "u2", Regex: "(b)"}, {URL: "u3", Regex: "(c)"}}}

	merged := Merge(base, incoming)
	assert.Equal(t, incoming.RegionProbes, merged.RegionProbes)
}

func TestMergeNil(t *testing.T) {
	incoming := &EverConfig{DefaultVersion: "1.20.1"}
	merged := Merge(nil, incoming)
	assert.Equal(t, "1.20.1", merged.DefaultVersion)
	assert.NotSame(t, incoming, merged)

	assert.Equal(t, "1.20.1", Merge(incoming, nil).DefaultVersion)
	assert.Equal(t, &EverConfig{}, Merge(nil, nil))
}

func TestResolveLinks(t *testing.T) {
	src := DownloadSource{
		Links: []string{"a", "b", "c"},
		Priority: map[string][]int{
			"cn":  {2, 0, 1},
			"eu":  {1},
			"bad": {5, 0},
		},
	}
	assert.Equal(t, []string{"c", "a", "b"}, ResolveLinks(src, "cn"))
	assert.Equal(t, []string{"b"}, ResolveLinks(src, "eu"))
	assert.Equal(t, []string{"a"}, ResolveLinks(src, "bad"))
	assert.Equal(t, []string{"a", "b", "c"}, ResolveLinks(src, "us"))
	assert.Equal(t, []string{"a", "b", "c"}, ResolveLinks(src, ""))

	// returned slice is independent of the source
	links := ResolveLinks(src, "us")
	links[0] = "z"
	assert.Equal(t, "a", src.Links[0])
}

func TestJRETableSource(t *testing.T) {
	table := JRETable{PlatformLinux: {Links: []string{"l"}}}

	_, err := table.Source(PlatformMac)
	assert.ErrorIs(t, err, utils.ErrConfig)

	_, err = table.Source(Platform("amiga"))
	assert.ErrorIs(t, err, utils.ErrUnsupportedPlatform)

	cfg := &EverConfig{JRE: map[string]JRETable{"17": table}}
	_, err = cfg.JRESource("21", PlatformLinux)
	assert.ErrorIs(t, err, utils.ErrConfig)
}

func TestGameUnknownVersion(t *testing.T) {
	cfg := &EverConfig{Versions: map[string]GameConfig{"1.19": {}}}
	_, _, err := cfg.Game("1.21")
	assert.ErrorIs(t, err, utils.ErrConfig)
	_, _, err = cfg.Game("")
	assert.ErrorIs(t, err, utils.ErrConfig)
}

func TestPlatformKnown(t *testing.T) {
	for _, p := range Platforms {
		assert.True(t, p.Known(), p)
	}
	assert.False(t, Platform("beos").Known())
	assert.False(t, Platform("Linux").Known())
	assert.Equal(t, "java.exe", PlatformWin32.Executable("java"))
	assert.Equal(t, "java", PlatformMac.Executable("java"))
}

func TestStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/data/EverLauncher")

	_, err := store.Load()
	require.Error(t, err)

	cfg, err := Parse([]byte(deployJSON))
	require.NoError(t, err)
	require.NoError(t, store.Save(cfg))

	loaded, err := store.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/data")
	require.NoError(t, afero.WriteFile(fs, store.Path(), []byte("{not json"), 0644))

	_, err := store.Load()
	assert.ErrorIs(t, err, utils.ErrConfig)
}
