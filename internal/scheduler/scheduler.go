// Package scheduler syncs the artifacts of a game version to disk with a pool
// of workers, falling back across mirrors per artifact.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/tanq16/everlauncher/internal/config"
	"github.com/tanq16/everlauncher/internal/downloader"
	"github.com/tanq16/everlauncher/internal/output"
	"github.com/tanq16/everlauncher/internal/utils"
)

type ArtifactJob struct {
	Category  string
	Name      string
	Source    config.DownloadSource
	OutputDir string
}

type Options struct {
	Downloader *downloader.Downloader
	Fs         afero.Fs
	Workers    int
	Region     string
	// Timeout bounds each mirror attempt; zero waits indefinitely.
	Timeout time.Duration
	Display *output.Display
}

// JobsFor lists the mods, resource packs and extra files of game, sorted by category and name.
func JobsFor(game config.GameConfig, outputDir string) []ArtifactJob {
	var jobs []ArtifactJob
	add := func(category string, sources map[string]config.DownloadSource) {
		names := make([]string, 0, len(sources))
		for name := range sources {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			jobs = append(jobs, ArtifactJob{Category: category, Name: name, Source: sources[name], OutputDir: outputDir})
		}
	}
	add("mods", game.Mods)
	add("resourcepacks", game.ResourcePacks)
	add("extra", game.Extra)
	return jobs
}

// Run executes the jobs with the given number of workers and reports an
// aggregate error naming every failed artifact. Jobs that share a digest are
// downloaded once and written to every target.
func Run(ctx context.Context, jobs []ArtifactJob, opts Options) error {
	if opts.Downloader == nil {
		return errors.New("scheduler needs a downloader")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	opts.Workers = max(opts.Workers, 1)
	display := opts.Display
	if display == nil {
		display = output.NewDisplay()
	}
	display.Start()
	defer display.Stop()

	groups := groupJobs(jobs, opts.Region)
	groupCh := make(chan []ArtifactJob, len(groups))
	for _, group := range groups {
		groupCh <- group
	}
	close(groupCh)

	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for group := range groupCh {
				groupErrs := processGroup(ctx, group, opts, display)
				mu.Lock()
				errs = append(errs, groupErrs...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// groupJobs buckets jobs by the executor key their downloads use, keeping the
// order of first appearance. Jobs without a digest are keyed by their mirrors.
func groupJobs(jobs []ArtifactJob, region string) [][]ArtifactJob {
	var groups [][]ArtifactJob
	index := make(map[string]int)
	for _, job := range jobs {
		key := job.Source.SHA256
		if key == "" {
			key = "links:" + strings.Join(config.ResolveLinks(job.Source, region), "\n")
		}
		if i, ok := index[key]; ok {
			groups[i] = append(groups[i], job)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, []ArtifactJob{job})
	}
	return groups
}

// mirrorsFor merges the region-ordered links of every job in the group.
func mirrorsFor(group []ArtifactJob, region string) []string {
	var links []string
	seen := make(map[string]bool)
	for _, job := range group {
		for _, link := range config.ResolveLinks(job.Source, region) {
			if !seen[link] {
				seen[link] = true
				links = append(links, link)
			}
		}
	}
	return links
}

func processGroup(ctx context.Context, group []ArtifactJob, opts Options, display *output.Display) []error {
	ids := make([]int, len(group))
	for i, job := range group {
		ids[i] = display.Register(job.Category + "/" + job.Name)
	}
	failAll := func(err error) []error {
		errs := make([]error, len(group))
		for i, job := range group {
			display.Fail(ids[i], err)
			errs[i] = fmt.Errorf("%s/%s: %w", job.Category, job.Name, err)
		}
		return errs
	}
	if err := ctx.Err(); err != nil {
		return failAll(err)
	}
	links := mirrorsFor(group, opts.Region)
	if len(links) == 0 {
		return failAll(fmt.Errorf("%w: no mirrors for region %q", utils.ErrConfig, opts.Region))
	}

	name := group[0].Name
	var attemptErrs []error
	for _, link := range links {
		data, err := opts.Downloader.Download(ctx, link, downloader.Request{
			Key:     group[0].Source.SHA256,
			Timeout: opts.Timeout,
			OnProgress: func(p downloader.Progress) {
				for _, id := range ids {
					display.Update(id, p.Downloaded, p.TotalSize)
				}
			},
		})
		if err != nil {
			log.Debug().Str("op", "scheduler/scheduler").Err(err).Msgf("mirror %s failed for %s", link, name)
			attemptErrs = append(attemptErrs, fmt.Errorf("%s: %w", link, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		var errs []error
		for i, job := range group {
			target, err := writeArtifact(opts.Fs, job, utils.FileNameFromURL(link, job.Name), data)
			if err != nil {
				display.Fail(ids[i], err)
				errs = append(errs, fmt.Errorf("%s/%s: %w", job.Category, job.Name, err))
				continue
			}
			display.Complete(ids[i], fmt.Sprintf("%s %s %s", job.Name, output.StyleSymbols["arrow"], target))
		}
		return errs
	}
	return failAll(errors.Join(attemptErrs...))
}

// writeArtifact stages data in a per-job temp file and renames it into place.
func writeArtifact(fs afero.Fs, job ArtifactJob, fileName string, data []byte) (string, error) {
	tempDir := filepath.Join(job.OutputDir, utils.TempDirName, uuid.NewString())
	if err := fs.MkdirAll(tempDir, 0755); err != nil {
		return "", fmt.Errorf("error creating temp directory: %v", err)
	}
	defer fs.RemoveAll(tempDir)
	tempPath := filepath.Join(tempDir, fileName+".part")
	if err := afero.WriteFile(fs, tempPath, data, 0644); err != nil {
		return "", fmt.Errorf("error writing %s: %v", tempPath, err)
	}
	targetDir := filepath.Join(job.OutputDir, job.Category)
	if err := fs.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("error creating %s: %v", targetDir, err)
	}
	target := filepath.Join(targetDir, fileName)
	if err := fs.Rename(tempPath, target); err != nil {
		return "", fmt.Errorf("error moving %s into place: %v", fileName, err)
	}
	return target, nil
}
