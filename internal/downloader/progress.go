package downloader

import (
	"errors"

	"github.com/tanq16/everlauncher/internal/executor"
)

// Progress is one immutable snapshot of a download.
type Progress struct {
	TotalSize  int64
	Downloaded int64
	Finished   bool
	Validated  bool
	Err        error
}

type ProgressFunc func(Progress)

func (p Progress) Successful() bool {
	return p.Validated && p.Finished && p.Err == nil
}

// Fraction reports completion in [0, 1]; unknown totals report 0.
func (p Progress) Fraction() float64 {
	if p.TotalSize <= 0 {
		return 0
	}
	return min(float64(p.Downloaded)/float64(p.TotalSize), 1)
}

func progressFromInfo(info executor.Info) Progress {
	p := Progress{
		TotalSize:  info.TotalSize,
		Downloaded: info.Downloaded,
		Finished:   info.Finished,
	}
	if info.Err != "" {
		p.Err = errors.New(info.Err)
	}
	return p
}
