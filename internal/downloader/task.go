package downloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/everlauncher/internal/executor"
	"github.com/tanq16/everlauncher/internal/utils"
)

type taskState int

const (
	stateCreated taskState = iota
	stateStarting
	statePolling
	stateValidating
	stateSucceeded
	stateFailed
)

func (s taskState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateStarting:
		return "starting"
	case statePolling:
		return "polling"
	case stateValidating:
		return "validating"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// Task is one download driven against an Executor. It resolves once to a
// terminal Progress and must be disposed by its owner exactly once.
type Task struct {
	exec       executor.Executor
	url        string
	key        string
	validate   bool
	interval   time.Duration
	onProgress ProgressFunc

	// held across the active check and the callback so Dispose cannot
	// interleave with a delivery
	deliverMu sync.Mutex

	mu       sync.Mutex
	state    taskState
	active   bool
	result   Progress
	err      error
	done     chan struct{}
	disposed chan struct{}
}

// NewTask prepares a task for url under key. The digest check runs only when validate is set.
func NewTask(exec executor.Executor, url, key string, validate bool, interval time.Duration, onProgress ProgressFunc) *Task {
	if interval <= 0 {
		interval = utils.DefaultPollInterval
	}
	return &Task{
		exec:       exec,
		url:        url,
		key:        key,
		validate:   validate,
		interval:   interval,
		onProgress: onProgress,
		active:     true,
		done:       make(chan struct{}),
		disposed:   make(chan struct{}),
	}
}

// Start asks the executor for the transfer and begins polling in the background.
// A rejected start resolves the task as failed; the returned error mirrors it.
// Disposal cancels a start still in flight.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.state != stateCreated {
		t.mu.Unlock()
		return fmt.Errorf("task %s already started", t.key)
	}
	if !t.active {
		t.mu.Unlock()
		return utils.ErrTaskDisposed
	}
	t.state = stateStarting
	t.mu.Unlock()

	startCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-t.disposed:
			cancel()
		case <-startCtx.Done():
		}
	}()
	if err := t.exec.Start(startCtx, t.url, t.key); err != nil {
		err = fmt.Errorf("%w: %v", utils.ErrTransfer, err)
		t.resolve(Progress{Err: err}, err)
		return err
	}

	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		// Dispose may have terminated before the executor registered the key
		if err := t.exec.Terminate(context.WithoutCancel(ctx), t.key); err != nil {
			log.Debug().Str("op", "downloader/task").Err(err).Msgf("late terminate of %s", t.url)
		}
		return utils.ErrTaskDisposed
	}
	t.state = statePolling
	t.mu.Unlock()
	go t.poll()
	return nil
}

func (t *Task) poll() {
	// executor calls are bounded by disposal, not by the caller's context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-t.disposed:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		info, err := t.exec.Poll(ctx, t.key)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			err = fmt.Errorf("%w: %v", utils.ErrTransfer, err)
			t.resolve(Progress{Err: err}, err)
			return
		}
		p := progressFromInfo(info)
		if !t.deliver(p) {
			return
		}
		if p.Err != nil {
			t.resolve(p, fmt.Errorf("%w: %v", utils.ErrTransfer, p.Err))
			return
		}
		if p.Finished {
			t.finish(ctx, p)
			return
		}
		select {
		case <-ticker.C:
		case <-t.disposed:
			return
		}
	}
}

func (t *Task) finish(ctx context.Context, p Progress) {
	if p.Downloaded != p.TotalSize {
		err := fmt.Errorf("%w: got %d of %d bytes", utils.ErrInterrupted, p.Downloaded, p.TotalSize)
		p.Err = err
		t.resolve(p, err)
		return
	}
	if !t.validate {
		p.Validated = true
		t.resolve(p, nil)
		return
	}
	t.setState(stateValidating)
	ok, err := t.exec.ValidateDigest(ctx, t.key)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		err = fmt.Errorf("%w: digest check: %v", utils.ErrTransfer, err)
		p.Err = err
		t.resolve(p, err)
		return
	}
	if !ok {
		err := fmt.Errorf("%w: validation failed for %s", utils.ErrIntegrity, t.url)
		p.Err = err
		t.resolve(p, err)
		return
	}
	p.Validated = true
	t.resolve(p, nil)
}

// deliver hands p to the callback unless the task was disposed.
func (t *Task) deliver(p Progress) bool {
	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()
	t.mu.Lock()
	active := t.active
	t.mu.Unlock()
	if !active {
		return false
	}
	if t.onProgress != nil {
		t.onProgress(p)
	}
	return true
}

func (t *Task) setState(s taskState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state < stateSucceeded {
		t.state = s
	}
}

// resolve records the terminal result once; disposed tasks never resolve.
func (t *Task) resolve(p Progress, err error) {
	t.mu.Lock()
	if !t.active || t.state >= stateSucceeded {
		t.mu.Unlock()
		return
	}
	if err != nil {
		t.state = stateFailed
	} else {
		t.state = stateSucceeded
	}
	t.result = p
	t.err = err
	close(t.done)
	t.mu.Unlock()
	if err != nil {
		log.Debug().Str("op", "downloader/task").Err(err).Msgf("task %s failed", t.url)
		return
	}
	log.Debug().Str("op", "downloader/task").Msgf("task %s succeeded with %d bytes", t.url, p.Downloaded)
}

// Done is closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Await blocks until the task resolves, is disposed or ctx ends.
func (t *Task) Await(ctx context.Context) (Progress, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-t.disposed:
		// a result recorded before disposal is kept
		select {
		case <-t.done:
			return t.Result()
		default:
			return Progress{}, utils.ErrTaskDisposed
		}
	case <-ctx.Done():
		return Progress{}, ctx.Err()
	}
}

// Result returns the terminal result; it reports ErrTaskDisposed or an
// unresolved error when the task has none.
func (t *Task) Result() (Progress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state < stateSucceeded {
		if !t.active {
			return Progress{}, utils.ErrTaskDisposed
		}
		return Progress{}, errors.New("task not resolved")
	}
	return t.result, t.err
}

// Dispose stops polling and terminates the executor transfer. Only the first
// call reaches the executor; later calls return nil.
func (t *Task) Dispose(ctx context.Context) error {
	t.deliverMu.Lock()
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		t.deliverMu.Unlock()
		return nil
	}
	t.active = false
	close(t.disposed)
	t.mu.Unlock()
	t.deliverMu.Unlock()

	if err := t.exec.Terminate(ctx, t.key); err != nil {
		return fmt.Errorf("error terminating %s: %w", t.key, err)
	}
	log.Debug().Str("op", "downloader/task").Msgf("disposed task %s", t.url)
	return nil
}

func (t *Task) Disposed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.active
}

func (t *Task) succeeded() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateSucceeded {
		return fmt.Errorf("%w: %s is %s", utils.ErrTaskNotSucceeded, t.url, t.state)
	}
	return nil
}

func (t *Task) FetchBytes(ctx context.Context) ([]byte, error) {
	if err := t.succeeded(); err != nil {
		return nil, err
	}
	data, err := t.exec.FetchBytes(ctx, t.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrTransfer, err)
	}
	return data, nil
}

func (t *Task) UnpackTo(ctx context.Context, dir string) error {
	if err := t.succeeded(); err != nil {
		return err
	}
	if err := t.exec.UnpackTo(ctx, t.key, dir); err != nil {
		return fmt.Errorf("%w: unpack to %s: %v", utils.ErrTransfer, dir, err)
	}
	return nil
}
