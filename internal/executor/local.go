package executor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/tanq16/everlauncher/internal/utils"
)

var (
	ErrExists      = errors.New("download already exists")
	ErrNotFound    = errors.New("download not found")
	ErrNotFinished = errors.New("download not finished")
)

type Options struct {
	HTTPClientConfig utils.HTTPClientConfig
	// Fs receives unpacked archives. Defaults to the OS filesystem.
	Fs        afero.Fs
	S3Profile string
	// S3Client overrides the client built from the shared AWS config.
	S3Client S3API
}

// LocalExecutor runs transfers in-process and keeps each payload in memory
// until the transfer is terminated.
type LocalExecutor struct {
	mu      sync.Mutex
	handles map[string]*handle
	client  *utils.EverHTTPClient
	fs      afero.Fs

	s3Profile string
	s3Once    sync.Once
	s3Client  S3API
	s3Err     error
}

type handle struct {
	url        string
	key        string
	downloaded atomic.Int64
	total      atomic.Int64
	finished   atomic.Bool
	cancel     context.CancelFunc

	mu   sync.RWMutex
	data []byte
	err  string
}

type transferFunc func(ctx context.Context, h *handle) error

func NewLocalExecutor(opts Options) *LocalExecutor {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	e := &LocalExecutor{
		handles:   make(map[string]*handle),
		client:    utils.NewEverHTTPClient(opts.HTTPClientConfig),
		fs:        opts.Fs,
		s3Profile: opts.S3Profile,
	}
	if opts.S3Client != nil {
		e.s3Client = opts.S3Client
		e.s3Once.Do(func() {})
	}
	return e
}

func (e *LocalExecutor) Start(ctx context.Context, link, key string) error {
	transfer, err := e.transferFor(link)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.handles[key]; exists {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	h := &handle{url: link, key: key, cancel: cancel}
	e.handles[key] = h
	go e.run(runCtx, h, transfer)
	log.Debug().Str("op", "executor/local").Msgf("started transfer of %s", link)
	return nil
}

func (e *LocalExecutor) run(ctx context.Context, h *handle, transfer transferFunc) {
	err := transfer(ctx, h)
	if err != nil {
		if ctx.Err() != nil {
			h.fail("terminated")
			return
		}
		log.Debug().Str("op", "executor/local").Err(err).Msgf("transfer of %s failed", h.url)
		h.fail(err.Error())
		return
	}
	h.finished.Store(true)
	log.Debug().Str("op", "executor/local").Msgf("transfer of %s finished with %d bytes", h.url, h.downloaded.Load())
}

func (e *LocalExecutor) transferFor(link string) (transferFunc, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	switch parsed.Scheme {
	case "http", "https":
		return e.httpTransfer, nil
	case "s3":
		return e.s3Transfer, nil
	default:
		return nil, fmt.Errorf("unsupported scheme: %q", parsed.Scheme)
	}
}

func (e *LocalExecutor) lookup(key string) (*handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.handles[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return h, nil
}

func (e *LocalExecutor) Poll(ctx context.Context, key string) (Info, error) {
	h, err := e.lookup(key)
	if err != nil {
		return Info{}, err
	}
	return h.info(), nil
}

// ValidateDigest compares the SHA-256 of the finished payload with the hex digest used as key.
func (e *LocalExecutor) ValidateDigest(ctx context.Context, key string) (bool, error) {
	h, err := e.lookup(key)
	if err != nil {
		return false, err
	}
	if !h.finished.Load() {
		return false, ErrNotFinished
	}
	expected, err := hex.DecodeString(h.key)
	if err != nil {
		return false, fmt.Errorf("invalid digest %q: %v", h.key, err)
	}
	sum := sha256.Sum256(h.payload())
	return bytes.Equal(expected, sum[:]), nil
}

func (e *LocalExecutor) FetchBytes(ctx context.Context, key string) ([]byte, error) {
	h, err := e.lookup(key)
	if err != nil {
		return nil, err
	}
	if !h.finished.Load() {
		return nil, ErrNotFinished
	}
	return bytes.Clone(h.payload()), nil
}

func (e *LocalExecutor) UnpackTo(ctx context.Context, key, dir string) error {
	h, err := e.lookup(key)
	if err != nil {
		return err
	}
	if !h.finished.Load() {
		return ErrNotFinished
	}
	return unzip(ctx, e.fs, h.payload(), dir)
}

func (e *LocalExecutor) Terminate(ctx context.Context, key string) error {
	e.mu.Lock()
	h, ok := e.handles[key]
	delete(e.handles, key)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	h.cancel()
	h.fail("terminated")
	log.Debug().Str("op", "executor/local").Msgf("terminated transfer of %s", h.url)
	return nil
}

// Active returns the number of transfers that have not been terminated.
func (e *LocalExecutor) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handles)
}

func (h *handle) info() Info {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Info{
		Downloaded: h.downloaded.Load(),
		Finished:   h.finished.Load(),
		TotalSize:  h.total.Load(),
		Err:        h.err,
	}
}

func (h *handle) write(p []byte) {
	h.mu.Lock()
	h.data = append(h.data, p...)
	h.mu.Unlock()
	h.downloaded.Add(int64(len(p)))
}

func (h *handle) setPayload(data []byte) {
	h.mu.Lock()
	h.data = data
	h.mu.Unlock()
}

func (h *handle) payload() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.data
}

// fail records the first error of the transfer.
func (h *handle) fail(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err == "" && !h.finished.Load() {
		h.err = msg
	}
}

var _ Executor = (*LocalExecutor)(nil)
var _ S3API = (*s3.Client)(nil)
