package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Options configures the progress reporter.
type Options struct {
	// Total is the number of icons to download.
	Total int

	// Workers is the number of parallel workers (for display).
	Workers int

	// Output is where the progress bar is drawn.
	// Default: os.Stderr
	Output io.Writer

	// Enabled turns on the progress bar. Counters are kept either way.
	Enabled bool

	// Throttle is the minimum interval between redraws.
	// Default: 80ms
	Throttle time.Duration
}

// Reporter tracks icon download progress.
type Reporter struct {
	opts Options

	completedBytes atomic.Int64
	completed      atomic.Int32
	failed         atomic.Int32
	inProgress     atomic.Int32

	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	startTime time.Time
	stopped   bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Throttle == 0 {
		opts.Throttle = 80 * time.Millisecond
	}
	return &Reporter{opts: opts}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Start records the start time and draws the bar when enabled.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startTime = time.Now()
	if !r.opts.Enabled {
		return
	}

	out := r.opts.Output
	r.bar = progressbar.NewOptions(
		r.opts.Total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(fmt.Sprintf("icons(%d workers)", r.opts.Workers)),
		progressbar.OptionThrottle(r.opts.Throttle),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
	)
}

// Stop finishes the bar. It is safe to call more than once.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.stopped = true
	if r.bar != nil {
		_ = r.bar.Exit()
	}
}

// IconStarted marks an icon as in progress.
func (r *Reporter) IconStarted() {
	r.inProgress.Add(1)
}

// IconCompleted marks an icon as written.
func (r *Reporter) IconCompleted(size int64) {
	r.completedBytes.Add(size)
	r.completed.Add(1)
	r.inProgress.Add(-1)
	r.advance()
}

// IconFailed marks an icon as failed (removes from in-progress).
func (r *Reporter) IconFailed() {
	r.failed.Add(1)
	r.inProgress.Add(-1)
}

func (r *Reporter) advance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil && !r.stopped {
		_ = r.bar.Add(1)
	}
}

// Completed returns the number of icons written.
func (r *Reporter) Completed() int {
	return int(r.completed.Load())
}

// Failed returns the number of icons that failed.
func (r *Reporter) Failed() int {
	return int(r.failed.Load())
}

// InProgress returns the number of icons currently downloading.
func (r *Reporter) InProgress() int {
	return int(r.inProgress.Load())
}

// Bytes returns the number of icon bytes written.
func (r *Reporter) Bytes() int64 {
	return r.completedBytes.Load()
}

// Summary returns a one-line description of the work done so far.
func (r *Reporter) Summary() string {
	r.mu.Lock()
	start := r.startTime
	r.mu.Unlock()

	var elapsed time.Duration
	if !start.IsZero() {
		elapsed = time.Since(start).Round(time.Millisecond)
	}
	return fmt.Sprintf("%d/%d icons, %s in %s",
		r.Completed(), r.opts.Total, FormatBytes(r.Bytes()), elapsed)
}

// FormatBytes formats bytes as a human-readable IEC string ("1.5 KiB").
func FormatBytes(b int64) string {
	if b < 0 {
		b = 0
	}
	return humanize.IBytes(uint64(b))
}
