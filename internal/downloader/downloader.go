package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cipig/komodo-wallet-mobile/internal/progress"
)

// Defaults applied to zero Options fields.
const (
	DefaultWorkers     = 4
	DefaultTaskTimeout = 10 * time.Second
)

// Getter fetches a remote document.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Writer stores a fetched icon.
type Writer interface {
	Write(ctx context.Context, key string, data []byte) error
}

// Options configures the downloader.
type Options struct {
	// Workers is the maximum number of icons fetched concurrently.
	Workers int

	// TaskTimeout bounds each task, fetch and write included.
	TaskTimeout time.Duration

	// Progress is an optional progress reporter.
	Progress *progress.Reporter

	// Logger receives per-task failures. Default: slog.Default().
	Logger *slog.Logger
}

// Task is one icon to download.
type Task struct {
	Coin string // coin identifier
	URL  string // remote icon URL
	Key  string // destination key in the store
}

// Result summarizes a successful batch.
type Result struct {
	Downloaded int
	Bytes      int64
}

// IconError reports the coin whose download failed.
type IconError struct {
	Coin string
	URL  string
	Err  error
}

func (e *IconError) Error() string {
	return fmt.Sprintf("download icon for %s: %v", e.Coin, e.Err)
}

func (e *IconError) Unwrap() error {
	return e.Err
}

// IconURL returns the remote location of a coin icon at a revision.
func IconURL(baseURL, revision, coin string) string {
	return fmt.Sprintf("%s/%s/icons/%s.png", strings.TrimSuffix(baseURL, "/"), revision, coin)
}

// IconTasks builds one task per coin identifier, in order.
func IconTasks(baseURL, revision, prefix string, coins []string) []Task {
	tasks := make([]Task, 0, len(coins))
	for _, coin := range coins {
		tasks = append(tasks, Task{
			Coin: coin,
			URL:  IconURL(baseURL, revision, coin),
			Key:  prefix + coin + ".png",
		})
	}
	return tasks
}

type taskResult struct {
	size int64
	err  error
}

// Download runs tasks on a bounded pool and returns on the first failure.
func Download(ctx context.Context, getter Getter, writer Writer, tasks []Task, opts Options) (*Result, error) {
	// Apply defaults
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = DefaultTaskTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if len(tasks) == 0 {
		return &Result{}, nil
	}

	workers := min(opts.Workers, len(tasks))

	// Buffered so workers still in flight after an abort never block.
	results := make(chan taskResult, len(tasks))
	jobs := make(chan Task)
	stop := make(chan struct{})
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range jobs {
				results <- downloadIcon(ctx, getter, writer, task, opts)
			}
		}()
	}

	// Feed tasks to workers until done or aborted
	go func() {
		defer close(jobs)
		for _, task := range tasks {
			select {
			case <-stop:
				return
			default:
			}

			select {
			case jobs <- task:
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	result := &Result{}
	for range tasks {
		select {
		case r := <-results:
			if r.err != nil {
				close(stop)
				return nil, r.err
			}
			result.Downloaded++
			result.Bytes += r.size
		case <-ctx.Done():
			close(stop)
			return nil, ctx.Err()
		}
	}

	wg.Wait()
	return result, nil
}

// downloadIcon fetches and stores a single icon.
func downloadIcon(ctx context.Context, getter Getter, writer Writer, task Task, opts Options) taskResult {
	if opts.Progress != nil {
		opts.Progress.IconStarted()
	}

	taskCtx, cancel := context.WithTimeout(ctx, opts.TaskTimeout)
	defer cancel()

	body, err := getter.Get(taskCtx, task.URL)
	if err == nil {
		err = writer.Write(taskCtx, task.Key, body)
	}
	if err != nil {
		opts.Logger.ErrorContext(ctx, "failed to download icon", "coin", task.Coin, "url", task.URL, "error", err)
		if opts.Progress != nil {
			opts.Progress.IconFailed()
		}
		return taskResult{err: &IconError{Coin: task.Coin, URL: task.URL, Err: err}}
	}

	if opts.Progress != nil {
		opts.Progress.IconCompleted(int64(len(body)))
	}
	return taskResult{size: int64(len(body))}
}
