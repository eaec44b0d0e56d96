package launcher

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/everlauncher/internal/config"
	"github.com/tanq16/everlauncher/internal/downloader"
	"github.com/tanq16/everlauncher/internal/executor"
	"github.com/tanq16/everlauncher/internal/utils"
)

type fixture struct {
	srv     *httptest.Server
	fs      afero.Fs
	store   *config.Store
	session *Session
	archive []byte

	mu     sync.Mutex
	deploy string
}

func (f *fixture) setDeploy(doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deploy = doc
}

func jreArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("bin/java")
	require.NoError(t, err)
	_, err = w.Write([]byte("#!/bin/sh\nexit 0\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{archive: jreArchive(t)}
	mux := http.NewServeMux()
	mux.HandleFunc("/deploy.json", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		fmt.Fprint(w, f.deploy)
	})
	mux.HandleFunc("/trace", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ip=127.0.0.1\nloc=CN\n")
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "nothing to see")
	})
	mux.HandleFunc("/jre17.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(f.archive)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	sum := sha256.Sum256(f.archive)
	f.setDeploy(fmt.Sprintf(`{
  "defaultMcVersion": "1.20.1",
  "mcVersion": {"1.20.1": {"displayName": "Modded", "jreVersion": "17"}, "1.0": {"displayName": "No runtime"}},
  "jre": {"17": {"linux": {
    "link": ["%[1]s/jre17.zip", "%[1]s/missing.zip"],
    "sha256": "%[2]s",
    "priority": {"CN": [1, 0]}
  }}},
  "regionCheck": [{"url": "%[1]s/plain", "regex": "loc=(\\w+)"}, {"url": "%[1]s/trace", "regex": "loc=(\\w+)"}]
}`, f.srv.URL, hex.EncodeToString(sum[:])))

	f.fs = afero.NewMemMapFs()
	f.store = config.NewStore(f.fs, "/data")
	exec := executor.NewLocalExecutor(executor.Options{Fs: f.fs})
	dl := downloader.New(exec, downloader.Options{PollInterval: 5 * time.Millisecond})
	f.session = NewSession(f.store, dl, Options{
		DeploySource:  f.srv.URL + "/deploy.json",
		Timeout:       2 * time.Second,
		PlatformProbe: func() (string, string) { return "linux", "amd64" },
	})
	return f
}

func TestAccessorsBeforeInit(t *testing.T) {
	f := newFixture(t)
	s := f.session
	assert.Equal(t, StageUninitialized, s.Stage())
	assert.NotEmpty(t, s.ID())

	_, err := s.Config()
	assert.ErrorIs(t, err, utils.ErrNotInitialized)
	_, err = s.Region()
	assert.ErrorIs(t, err, utils.ErrNotInitialized)
	_, err = s.Platform()
	assert.ErrorIs(t, err, utils.ErrNotInitialized)
	_, err = s.ResolveRegion(testContext(t))
	assert.ErrorIs(t, err, utils.ErrNotInitialized)
}

func TestDetectPlatform(t *testing.T) {
	testCases := []struct {
		goos, goarch string
		want         config.Platform
		wantErr      bool
	}{
		{"linux", "amd64", config.PlatformLinux, false},
		{"darwin", "amd64", config.PlatformMac, false},
		{"windows", "amd64", config.PlatformWindows, false},
		{"windows", "386", config.PlatformWin32, false},
		{"linux", "arm64", "", true},
		{"darwin", "arm64", "", true},
		{"freebsd", "amd64", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.goos+"/"+tc.goarch, func(t *testing.T) {
			got, err := DetectPlatform(tc.goos, tc.goarch)
			if tc.wantErr {
				assert.ErrorIs(t, err, utils.ErrUnsupportedPlatform)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFetchRemoteNoSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	exec := executor.NewLocalExecutor(executor.Options{Fs: fs})
	s := NewSession(config.NewStore(fs, "/data"), downloader.New(exec, downloader.Options{}), Options{})
	err := s.FetchRemote(testContext(t))
	assert.ErrorIs(t, err, utils.ErrConfig)
}

func TestDeploySource(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := config.NewStore(fs, "/data")
	opts := Options{DeploySource: "https://default.example.com/deploy.json"}
	assert.Equal(t, "https://default.example.com/deploy.json", DeploySource(store, opts))

	require.NoError(t, store.Save(&config.EverConfig{DeploySource: "https://cached.example.com/deploy.json"}))
	assert.Equal(t, "https://cached.example.com/deploy.json", DeploySource(store, opts))

	opts.DeploySourceOverride = "https://override.example.com/deploy.json"
	assert.Equal(t, "https://override.example.com/deploy.json", DeploySource(store, opts))
}

func TestFetchRemoteMergesAndPersists(t *testing.T) {
	f := newFixture(t)
	local := &config.EverConfig{
		DeploySource: f.srv.URL + "/deploy.json",
		Versions:     map[string]config.GameConfig{"1.19": {DisplayName: "Local only"}},
	}
	require.NoError(t, f.store.Save(local))

	require.NoError(t, f.session.FetchRemote(testContext(t)))
	assert.Equal(t, StageConfigured, f.session.Stage())

	cfg, err := f.session.Config()
	require.NoError(t, err)
	assert.Contains(t, cfg.Versions, "1.19")
	assert.Contains(t, cfg.Versions, "1.20.1")
	assert.Equal(t, "1.20.1", cfg.DefaultVersion)

	saved, err := f.store.Load()
	require.NoError(t, err)
	assert.Contains(t, saved.Versions, "1.19")
	assert.Contains(t, saved.Versions, "1.20.1")
}

func TestFetchRemoteCorruptLocalIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, f.store.Path(), []byte("{broken"), 0644))
	require.NoError(t, f.session.FetchRemote(testContext(t)))
	cfg, err := f.session.Config()
	require.NoError(t, err)
	assert.Equal(t, "1.20.1", cfg.DefaultVersion)
}

func TestFetchRemoteBadDocument(t *testing.T) {
	f := newFixture(t)
	f.setDeploy("{not json")
	err := f.session.FetchRemote(testContext(t))
	assert.ErrorIs(t, err, utils.ErrConfig)
	assert.Equal(t, StageUninitialized, f.session.Stage())
}

func TestResolveRegion(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.FetchRemote(testContext(t)))

	region, err := f.session.ResolveRegion(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "CN", region)
	got, err := f.session.Region()
	require.NoError(t, err)
	assert.Equal(t, "CN", got)

	require.NoError(t, f.session.FetchRemote(testContext(t)))
	_, err = f.session.Region()
	assert.ErrorIs(t, err, utils.ErrNotInitialized)
}

func TestCheckRegionNoMatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.session.CheckRegion(testContext(t), config.RegionProbe{URL: f.srv.URL + "/plain", Regex: `loc=(\w+)`})
	assert.ErrorIs(t, err, utils.ErrResolution)
	assert.ErrorContains(t, err, "/plain")
}

func TestResolveRegionAllFail(t *testing.T) {
	f := newFixture(t)
	f.setDeploy(fmt.Sprintf(`{"regionCheck": [{"url": "%s/plain", "regex": "loc=(\\w+)"}]}`, f.srv.URL))
	require.NoError(t, f.session.FetchRemote(testContext(t)))
	_, err := f.session.ResolveRegion(testContext(t))
	assert.ErrorIs(t, err, utils.ErrResolution)
}

func TestBootstrapAndJRE(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Bootstrap(testContext(t)))
	assert.Equal(t, StageRegionResolved, f.session.Stage())

	platform, err := f.session.Platform()
	require.NoError(t, err)
	assert.Equal(t, config.PlatformLinux, platform)

	links, err := f.session.JRELinks("")
	require.NoError(t, err)
	assert.Equal(t, []string{f.srv.URL + "/missing.zip", f.srv.URL + "/jre17.zip"}, links)

	digest, err := f.session.JREDigest("1.20.1")
	require.NoError(t, err)
	assert.Len(t, digest, 64)

	javaPath, err := f.session.InstallJRE(testContext(t), "", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "jre", "17", "bin", "java"), javaPath)
	exists, err := afero.Exists(f.fs, javaPath)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = f.session.JRELinks("1.0")
	assert.ErrorIs(t, err, utils.ErrConfig)
}

func TestBootstrapUnsupportedPlatform(t *testing.T) {
	f := newFixture(t)
	f.session.opts.PlatformProbe = func() (string, string) { return "plan9", "arm" }
	err := f.session.Bootstrap(testContext(t))
	assert.ErrorIs(t, err, utils.ErrUnsupportedPlatform)
	assert.ErrorContains(t, err, "resolve platform")
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "java")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestCheckRuntime(t *testing.T) {
	assert.True(t, CheckRuntime(testContext(t), writeScript(t, "exit 0"), time.Second))
	assert.False(t, CheckRuntime(testContext(t), writeScript(t, "exit 3"), time.Second))
	assert.False(t, CheckRuntime(testContext(t), filepath.Join(t.TempDir(), "absent"), time.Second))

	start := time.Now()
	assert.False(t, CheckRuntime(testContext(t), writeScript(t, "exec sleep 5"), 100*time.Millisecond))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestLocateJRE(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.FetchRemote(testContext(t)))
	_, err := f.session.ResolvePlatform()
	require.NoError(t, err)

	// managed path lives on the in-memory fs, so nothing executable is found
	path, err := f.session.LocateJRE(testContext(t), "1.20.1")
	require.NoError(t, err)
	assert.Empty(t, path)

	custom := writeScript(t, "exit 0")
	cfg, err := f.session.Config()
	require.NoError(t, err)
	game := cfg.Versions["1.20.1"]
	game.CustomJRELocation = custom
	cfg.Versions["1.20.1"] = game

	path, err = f.session.LocateJRE(testContext(t), "1.20.1")
	require.NoError(t, err)
	assert.Equal(t, custom, path)

	_, err = f.session.LocateJRE(testContext(t), "1.0")
	assert.ErrorIs(t, err, utils.ErrConfig)
}
