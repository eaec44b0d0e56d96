// Package downloader drives executor transfers through their lifecycle: start,
// poll, optional digest validation and disposal. Every task created here is
// disposed before the call that created it returns.
package downloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/everlauncher/internal/executor"
	"github.com/tanq16/everlauncher/internal/utils"
)

type Options struct {
	PollInterval   time.Duration
	DisposeTimeout time.Duration
}

// Request carries the optional parts of a download. An empty Key means the URL
// is used as key and no validation happens; Timeout > 0 bounds the wait.
type Request struct {
	Key        string
	Timeout    time.Duration
	OnProgress ProgressFunc
}

type Downloader struct {
	exec executor.Executor
	opts Options
}

func New(exec executor.Executor, opts Options) *Downloader {
	if opts.PollInterval <= 0 {
		opts.PollInterval = utils.DefaultPollInterval
	}
	if opts.DisposeTimeout <= 0 {
		opts.DisposeTimeout = utils.DefaultTimeout
	}
	return &Downloader{exec: exec, opts: opts}
}

// DownloadSimple waits for the transfer without a time bound and returns its payload.
func (d *Downloader) DownloadSimple(ctx context.Context, url, key string, onProgress ProgressFunc) ([]byte, error) {
	return d.fetch(ctx, url, Request{Key: key, OnProgress: onProgress})
}

// DownloadTimeout is DownloadSimple raced against timeout; a lost race terminates the transfer.
func (d *Downloader) DownloadTimeout(ctx context.Context, url string, timeout time.Duration, key string, onProgress ProgressFunc) ([]byte, error) {
	if timeout <= 0 {
		timeout = utils.DefaultTimeout
	}
	return d.fetch(ctx, url, Request{Key: key, Timeout: timeout, OnProgress: onProgress})
}

func (d *Downloader) Download(ctx context.Context, url string, req Request) ([]byte, error) {
	if req.Timeout > 0 {
		return d.DownloadTimeout(ctx, url, req.Timeout, req.Key, req.OnProgress)
	}
	return d.DownloadSimple(ctx, url, req.Key, req.OnProgress)
}

// DownloadTo completes the transfer and unpacks the archive into dir.
func (d *Downloader) DownloadTo(ctx context.Context, url, dir string, req Request) error {
	return d.run(ctx, url, req, func(ctx context.Context, task *Task) error {
		return task.UnpackTo(ctx, dir)
	})
}

func (d *Downloader) fetch(ctx context.Context, url string, req Request) ([]byte, error) {
	var data []byte
	err := d.run(ctx, url, req, func(ctx context.Context, task *Task) error {
		var err error
		data, err = task.FetchBytes(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (d *Downloader) run(ctx context.Context, url string, req Request, consume func(context.Context, *Task) error) error {
	key := req.Key
	if key == "" {
		key = url
	}
	task := NewTask(d.exec, url, key, key != url, d.opts.PollInterval, req.OnProgress)
	defer d.dispose(ctx, task)

	// the timer covers the executor start as well as the transfer
	var deadline <-chan time.Time
	if req.Timeout > 0 {
		timer := time.NewTimer(req.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	timedOut := func() error {
		return fmt.Errorf("%w: %s did not finish within %s", utils.ErrTimeout, url, req.Timeout)
	}

	started := make(chan error, 1)
	go func() {
		started <- task.Start(ctx)
	}()
	select {
	case err := <-started:
		if err != nil {
			return err
		}
	case <-deadline:
		return timedOut()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-task.Done():
		if _, err := task.Result(); err != nil {
			return err
		}
	case <-deadline:
		return timedOut()
	case <-ctx.Done():
		return ctx.Err()
	}
	return consume(ctx, task)
}

func (d *Downloader) dispose(ctx context.Context, task *Task) {
	disposeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.DisposeTimeout)
	defer cancel()
	if err := task.Dispose(disposeCtx); err != nil {
		log.Warn().Str("op", "downloader/downloader").Err(err).Msgf("dispose of %s failed", task.url)
	}
}
