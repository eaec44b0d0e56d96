package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	statusPending = "pending"
	statusActive  = "active"
	statusSuccess = "success"
	statusError   = "error"
)

type entry struct {
	name       string
	status     string
	message    string
	downloaded int64
	total      int64
	err        error
	start      time.Time
	updated    time.Time
}

// Display tracks registered downloads and renders their progress. On a
// terminal it redraws in place; otherwise only the final summary is written.
type Display struct {
	mu       sync.Mutex
	w        io.Writer
	live     bool
	entries  []*entry
	numLines int
	tick     time.Duration
	doneCh   chan struct{}
	wg       sync.WaitGroup
}

func NewDisplay() *Display {
	return NewDisplayTo(os.Stdout, isTerminal())
}

// NewDisplayTo renders to w; live enables in-place redraws.
func NewDisplayTo(w io.Writer, live bool) *Display {
	return &Display{
		w:      w,
		live:   live,
		tick:   200 * time.Millisecond,
		doneCh: make(chan struct{}),
	}
}

// Register adds a download and returns its id.
func (d *Display) Register(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	d.entries = append(d.entries, &entry{name: name, status: statusPending, start: now, updated: now})
	return len(d.entries) - 1
}

func (d *Display) get(id int) *entry {
	if id < 0 || id >= len(d.entries) {
		return nil
	}
	return d.entries[id]
}

func (d *Display) Update(id int, downloaded, total int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e := d.get(id); e != nil && e.status != statusSuccess && e.status != statusError {
		e.status = statusActive
		e.downloaded = downloaded
		e.total = total
		e.updated = time.Now()
	}
}

func (d *Display) Complete(id int, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e := d.get(id); e != nil {
		e.status = statusSuccess
		e.message = message
		e.updated = time.Now()
	}
}

func (d *Display) Fail(id int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e := d.get(id); e != nil {
		e.status = statusError
		e.err = err
		e.updated = time.Now()
	}
}

// Counts returns the number of succeeded and failed downloads.
func (d *Display) Counts() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var succeeded, failed int
	for _, e := range d.entries {
		switch e.status {
		case statusSuccess:
			succeeded++
		case statusError:
			failed++
		}
	}
	return succeeded, failed
}

func (d *Display) Start() {
	if !d.live {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.render()
			case <-d.doneCh:
				return
			}
		}
	}()
}

// Stop ends live rendering and writes the final state and summary.
func (d *Display) Stop() {
	close(d.doneCh)
	d.wg.Wait()
	if d.live {
		d.render()
	}
	d.summary()
}

func statusIndicator(status string) string {
	switch status {
	case statusSuccess:
		return successStyle.Render(StyleSymbols["pass"])
	case statusError:
		return errorStyle.Render(StyleSymbols["fail"])
	case statusActive:
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return debugStyle.Render(StyleSymbols["bullet"])
	}
}

func (d *Display) render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	width, height := terminalSize()
	available := max(height-3, 1)
	if d.numLines > 0 {
		fmt.Fprintf(d.w, "\033[%dA\033[J", d.numLines)
	}

	// finished entries scroll off first when the terminal is short
	entries := d.entries
	needed := 0
	for _, e := range entries {
		needed++
		if e.status == statusActive {
			needed++
		}
	}
	for needed > available && len(entries) > 0 && finished(entries[0]) {
		entries = entries[1:]
		needed--
	}

	lines := 0
	for _, e := range entries {
		if lines >= available {
			break
		}
		elapsed := e.updated.Sub(e.start).Round(time.Second)
		if e.status == statusActive || e.status == statusPending {
			elapsed = time.Since(e.start).Round(time.Second)
		}
		fmt.Fprintf(d.w, "  %s %s %s\n", statusIndicator(e.status), debugStyle.Render(elapsed.String()), truncate(e.name, width-16))
		lines++
		if e.status == statusActive && lines < available {
			fmt.Fprintf(d.w, "      %s\n", progressLine(e))
			lines++
		}
	}
	d.numLines = lines
}

func finished(e *entry) bool {
	return e.status == statusSuccess || e.status == statusError
}

func progressLine(e *entry) string {
	elapsed := time.Since(e.start).Seconds()
	size := FormatBytes(uint64(max(e.downloaded, 0)))
	if e.total > 0 {
		size += " / " + FormatBytes(uint64(e.total))
	}
	return debugStyle.Render(fmt.Sprintf("%s %s %s %s %s", ProgressBar(e.downloaded, e.total, 30), StyleSymbols["bullet"], size, StyleSymbols["bullet"], FormatSpeed(e.downloaded, elapsed)))
}

func (d *Display) summary() {
	d.mu.Lock()
	defer d.mu.Unlock()
	var succeeded int
	var failures []*entry
	for _, e := range d.entries {
		switch e.status {
		case statusSuccess:
			succeeded++
		case statusError:
			failures = append(failures, e)
		}
	}
	fmt.Fprintln(d.w)
	fmt.Fprintln(d.w, "  "+successStyle.Render(fmt.Sprintf("Completed %d of %d", succeeded, len(d.entries))))
	if !d.live {
		for _, e := range d.entries {
			if e.status == statusSuccess {
				msg := e.name
				if e.message != "" {
					msg = e.message
				}
				fmt.Fprintf(d.w, "  %s %s\n", statusIndicator(e.status), msg)
			}
		}
	}
	if len(failures) == 0 {
		fmt.Fprintln(d.w)
		return
	}
	fmt.Fprintln(d.w, "  "+errorStyle.Render(fmt.Sprintf("Failed %d of %d", len(failures), len(d.entries))))
	fmt.Fprintln(d.w)
	fmt.Fprintln(d.w, "  "+errorStyle.Bold(true).Render("Errors:"))
	for i, e := range failures {
		fmt.Fprintf(d.w, "    %s %s\n", errorStyle.Render(fmt.Sprintf("%d.", i+1)), errorStyle.Render(e.name))
		fmt.Fprintf(d.w, "      %s\n", errorStyle.Render(strings.TrimSpace(fmt.Sprintf("%v", e.err))))
	}
	fmt.Fprintln(d.w)
}
