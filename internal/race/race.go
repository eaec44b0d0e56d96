// Package race runs competing operations and keeps the first success.
package race

import (
	"context"
	"fmt"
	"strings"

	"github.com/tanq16/everlauncher/internal/utils"
)

type Probe[T any] func(ctx context.Context) (T, error)

// ResolutionError reports that no probe succeeded.
type ResolutionError struct {
	Reason   string
	Failures []error
}

func (e *ResolutionError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%v: %s", utils.ErrResolution, e.Reason)
	}
	msgs := make([]string, len(e.Failures))
	for i, err := range e.Failures {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%v: %s: %s", utils.ErrResolution, e.Reason, strings.Join(msgs, "; "))
}

func (e *ResolutionError) Unwrap() []error {
	return append([]error{utils.ErrResolution}, e.Failures...)
}

type outcome[T any] struct {
	idx   int
	value T
	err   error
}

// First runs every probe concurrently and returns the first successful value.
// Probes still running when First returns see a cancelled context.
func First[T any](ctx context.Context, probes []Probe[T]) (T, error) {
	var zero T
	if len(probes) == 0 {
		return zero, &ResolutionError{Reason: "no probes configured"}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan outcome[T], len(probes))
	for i, probe := range probes {
		i, probe := i, probe
		go func() {
			value, err := probe(ctx)
			results <- outcome[T]{idx: i, value: value, err: err}
		}()
	}

	failures := make([]error, len(probes))
	for range probes {
		select {
		case res := <-results:
			if res.err == nil {
				return res.value, nil
			}
			failures[res.idx] = fmt.Errorf("probe %d: %w", res.idx, res.err)
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, &ResolutionError{Reason: "all probes failed", Failures: failures}
}
