package executor

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func unzip(ctx context.Context, fs afero.Fs, data []byte, dir string) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("error opening archive: %v", err)
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating %s: %v", dir, err)
	}
	for _, f := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		rel, err := filepath.Rel(dir, target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("illegal path in archive: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := fs.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("error creating %s: %v", target, err)
			}
			continue
		}
		if err := extractFile(fs, f, target); err != nil {
			return err
		}
	}
	log.Debug().Str("op", "executor/unpack").Msgf("unpacked %d entries to %s", len(reader.File), dir)
	return nil
}

func extractFile(fs afero.Fs, f *zip.File, target string) error {
	if err := fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("error creating %s: %v", filepath.Dir(target), err)
	}
	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("error reading %s: %v", f.Name, err)
	}
	defer src.Close()
	dst, err := fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("error creating %s: %v", target, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("error writing %s: %v", target, err)
	}
	return nil
}
