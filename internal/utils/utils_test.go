package utils

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaderArgs(t *testing.T) {
	headers := ParseHeaderArgs([]string{
		"Authorization: Basic abc",
		"X-Mirror:  cn ",
		"malformed",
	})
	assert.Equal(t, map[string]string{
		"Authorization": "Basic abc",
		"X-Mirror":      "cn",
	}, headers)
}

func TestFileNameFromURL(t *testing.T) {
	assert.Equal(t, "sodium.jar", FileNameFromURL("https://cdn.example.com/mods/sodium.jar?x=1", "fallback"))
	assert.Equal(t, "fallback", FileNameFromURL("https://cdn.example.com/", "fallback"))
	assert.Equal(t, "fallback", FileNameFromURL("https://cdn.example.com", "fallback"))
}

func TestRenewOutputPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/file.zip", []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/out/file-(1).zip", []byte("x"), 0644))

	assert.Equal(t, filepath.Join("/out", "file-(2).zip"), RenewOutputPath(fs, "/out/file.zip"))
}

func TestClean(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join("/game", TempDirName, "a", "mod.jar.part"), []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/game/mods/mod.jar", []byte("x"), 0644))

	require.NoError(t, Clean(fs, "/game"))
	exists, err := afero.DirExists(fs, filepath.Join("/game", TempDirName))
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = afero.Exists(fs, "/game/mods/mod.jar")
	require.NoError(t, err)
	assert.True(t, exists)

	// nothing left to clean is not an error
	require.NoError(t, Clean(fs, "/game"))
}

func TestEverHTTPClientHeaders(t *testing.T) {
	var gotUA, gotMirror, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotMirror = r.Header.Get("X-Mirror")
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := NewEverHTTPClient(HTTPClientConfig{
		Headers: map[string]string{"X-Mirror": "cn"},
		Token:   "secret",
		// token scoped to another host
		TokenHost: "deploy.example.com",
	})
	resp, err := client.Get(testContext(t), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, ToolUserAgent, gotUA)
	assert.Equal(t, "cn", gotMirror)
	assert.Empty(t, gotAuth)
}

func TestEverHTTPClientToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := NewEverHTTPClient(HTTPClientConfig{Token: "secret", TokenHost: HostOf(srv.URL)})
	resp, err := client.Get(testContext(t), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestEverHTTPClientTokenWithoutHost(t *testing.T) {
	var gotAuth string
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer mirror.Close()

	client := NewEverHTTPClient(HTTPClientConfig{Token: "secret", TokenHost: HostOf("")})
	resp, err := client.Get(testContext(t), mirror.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, gotAuth)
}
