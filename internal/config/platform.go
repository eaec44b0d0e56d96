package config

import (
	"fmt"
	"slices"

	"github.com/tanq16/everlauncher/internal/utils"
)

// Platform identifies an operating system / architecture pair a runtime is built for.
type Platform string

const (
	PlatformWindows Platform = "windows" // windows x86_64
	PlatformWin32   Platform = "win32"   // windows x86
	PlatformLinux   Platform = "linux"   // linux x86_64
	PlatformMac     Platform = "mac"     // darwin x86_64
)

var Platforms = []Platform{PlatformWindows, PlatformWin32, PlatformLinux, PlatformMac}

func (p Platform) Known() bool {
	return slices.Contains(Platforms, p)
}

// Executable appends the platform's executable suffix to name.
func (p Platform) Executable(name string) string {
	if p == PlatformWindows || p == PlatformWin32 {
		return name + ".exe"
	}
	return name
}

// JRETable holds one runtime version's download source per platform.
type JRETable map[Platform]DownloadSource

func (t JRETable) Source(p Platform) (DownloadSource, error) {
	if !p.Known() {
		return DownloadSource{}, fmt.Errorf("%w: %q", utils.ErrUnsupportedPlatform, p)
	}
	src, ok := t[p]
	if !ok {
		return DownloadSource{}, fmt.Errorf("%w: no runtime for platform %s", utils.ErrConfig, p)
	}
	return src, nil
}

func (t JRETable) clone() JRETable {
	if t == nil {
		return nil
	}
	out := make(JRETable, len(t))
	for k, v := range t {
		out[k] = v.clone()
	}
	return out
}
