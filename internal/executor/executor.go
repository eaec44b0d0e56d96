package executor

import "context"

// Info is one status snapshot of a transfer as reported by an Executor.
type Info struct {
	Downloaded int64
	Finished   bool
	TotalSize  int64
	Err        string // empty when the transfer has not failed
}

// Executor performs byte transfers addressed by key. Callers start a transfer,
// poll it until it finishes, optionally validate it, read the payload, and
// terminate it to release it.
type Executor interface {
	Start(ctx context.Context, url, key string) error
	Poll(ctx context.Context, key string) (Info, error)
	ValidateDigest(ctx context.Context, key string) (bool, error)
	UnpackTo(ctx context.Context, key, dir string) error
	FetchBytes(ctx context.Context, key string) ([]byte, error)
	Terminate(ctx context.Context, key string) error
}
