package utils

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

func RenewOutputPath(fs afero.Fs, outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	index := 1
	for {
		outputPath = filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
		if _, err := fs.Stat(outputPath); os.IsNotExist(err) {
			return outputPath
		}
		index++
	}
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// FileNameFromURL returns the last path element of link, or fallback when there is none.
func FileNameFromURL(link, fallback string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return fallback
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		return fallback
	}
	return name
}

func HostOf(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return parsed.Host
}

// Clean removes the temporary directory left under dir by interrupted syncs.
func Clean(fs afero.Fs, dir string) error {
	tempDir := filepath.Join(dir, TempDirName)
	_, err := fs.Stat(tempDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return fs.RemoveAll(tempDir)
}
