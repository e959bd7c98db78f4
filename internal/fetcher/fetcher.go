// Package fetcher runs a complete coin asset fetch.
//
// A run moves through these states and stops at the first error:
//
//	START → (force? CLEAN) → CHECK_EXISTS → SKIP
//	                                      → FETCH_CONFIGS → EXTRACT_NAMES
//	                                        → ENSURE_ICON_DIR → DOWNLOAD_ICONS
//
// There are no checkpoints. After a failed run the next run repeats the
// existence check from scratch.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cipig/komodo-wallet-mobile/internal/downloader"
	"github.com/cipig/komodo-wallet-mobile/internal/progress"
	"github.com/cipig/komodo-wallet-mobile/pkg/coins"
)

// Store is the asset storage a run reads and writes.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	DirExists(ctx context.Context, prefix string) (bool, error)
	MakeDir(ctx context.Context, prefix string) error
	RemoveAll(ctx context.Context, prefix string) error
}

// Options configures a Fetcher.
type Options struct {
	// BaseURL is the raw file root of the coins repository.
	BaseURL string

	// RevisionFile is the local pointer file naming the revision.
	RevisionFile string

	// Keys of the config documents and the icon directory in the store.
	CoinsKey       string
	CoinsConfigKey string
	IconDir        string

	// Workers and TaskTimeout configure the icon downloader.
	Workers     int
	TaskTimeout time.Duration

	// ShowProgress draws a progress bar on ProgressOutput.
	ShowProgress   bool
	ProgressOutput io.Writer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Outcome is how a run ended.
type Outcome int

const (
	// OutcomeSkipped means the assets were already present.
	OutcomeSkipped Outcome = iota
	// OutcomeFetched means configs and icons were downloaded.
	OutcomeFetched
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFetched:
		return "fetched"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Report describes a successful run.
type Report struct {
	Outcome  Outcome
	Revision string
	Coins    int
	Icons    downloader.Result
}

// Fetcher downloads coin configs and icons into a Store.
type Fetcher struct {
	client downloader.Getter
	store  Store
	opts   Options
	logger *slog.Logger
}

// New creates a Fetcher.
func New(client downloader.Getter, store Store, opts Options) *Fetcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.IconDir == "" {
		opts.IconDir = "coin-icons"
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	return &Fetcher{client: client, store: store, opts: opts, logger: opts.Logger}
}

// Run performs a complete fetch. With force, existing assets are removed
// first so the run always downloads.
func (f *Fetcher) Run(ctx context.Context, force bool) (*Report, error) {
	if force {
		if err := f.Clean(ctx); err != nil {
			return nil, err
		}
	}

	exists, err := f.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		f.logger.InfoContext(ctx, "coin configs and icons already exist, skipping download")
		return &Report{Outcome: OutcomeSkipped}, nil
	}

	revision, err := coins.LoadRevision(f.opts.RevisionFile)
	if err != nil {
		return nil, err
	}
	f.logger.InfoContext(ctx, "fetching coin assets", "revision", revision)

	if err := f.FetchConfigs(ctx, revision); err != nil {
		return nil, err
	}

	names, err := f.LoadNames(ctx)
	if err != nil {
		return nil, err
	}

	if err := f.store.MakeDir(ctx, f.opts.IconDir); err != nil {
		return nil, err
	}

	result, err := f.DownloadIcons(ctx, revision, names)
	if err != nil {
		return nil, err
	}

	return &Report{
		Outcome:  OutcomeFetched,
		Revision: revision,
		Coins:    len(names),
		Icons:    *result,
	}, nil
}

// Exists reports whether both config documents and the icon directory are
// present.
func (f *Fetcher) Exists(ctx context.Context) (bool, error) {
	for _, key := range []string{f.opts.CoinsKey, f.opts.CoinsConfigKey} {
		ok, err := f.store.Exists(ctx, key)
		if err != nil || !ok {
			return false, err
		}
	}
	return f.store.DirExists(ctx, f.opts.IconDir)
}

// Clean removes the config documents and the icon directory. Failing to
// remove the icon directory is logged and ignored.
func (f *Fetcher) Clean(ctx context.Context) error {
	for _, key := range []string{f.opts.CoinsKey, f.opts.CoinsConfigKey} {
		if err := f.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	if err := f.store.RemoveAll(ctx, f.opts.IconDir); err != nil {
		f.logger.WarnContext(ctx, "failed to remove coin icons", "dir", f.opts.IconDir, "error", err)
	}
	f.logger.DebugContext(ctx, "removed existing coin assets")
	return nil
}

// FetchConfigs downloads the coin list and coin config documents at
// revision and stores them unmodified.
func (f *Fetcher) FetchConfigs(ctx context.Context, revision string) error {
	coinsDoc, err := f.client.Get(ctx, f.coinsURL(revision))
	if err != nil {
		return fmt.Errorf("fetch coins: %w", err)
	}
	configDoc, err := f.client.Get(ctx, f.coinsConfigURL(revision))
	if err != nil {
		return fmt.Errorf("fetch coins config: %w", err)
	}

	if err := f.store.Write(ctx, f.opts.CoinsKey, coinsDoc); err != nil {
		return err
	}
	if err := f.store.Write(ctx, f.opts.CoinsConfigKey, configDoc); err != nil {
		return err
	}

	f.logger.DebugContext(ctx, "stored coin configs", "coins_bytes", len(coinsDoc), "coins_config_bytes", len(configDoc))
	return nil
}

// LoadNames reads the stored config documents and returns the coin
// identifiers.
func (f *Fetcher) LoadNames(ctx context.Context) ([]string, error) {
	list, err := f.store.Read(ctx, f.opts.CoinsKey)
	if err != nil {
		return nil, err
	}
	configMap, err := f.store.Read(ctx, f.opts.CoinsConfigKey)
	if err != nil {
		return nil, err
	}
	return coins.ExtractNames(list, configMap)
}

// DownloadIcons fetches one icon per coin identifier into the icon
// directory.
func (f *Fetcher) DownloadIcons(ctx context.Context, revision string, names []string) (*downloader.Result, error) {
	workers := f.opts.Workers
	if workers <= 0 {
		workers = downloader.DefaultWorkers
	}

	reporter := progress.NewReporter(progress.Options{
		Total:   len(names),
		Workers: workers,
		Output:  f.opts.ProgressOutput,
		Enabled: f.opts.ShowProgress,
	})
	reporter.Start()
	defer reporter.Stop()

	prefix := strings.TrimSuffix(f.opts.IconDir, "/") + "/"
	tasks := downloader.IconTasks(f.opts.BaseURL, revision, prefix, names)

	result, err := downloader.Download(ctx, f.client, f.store, tasks, downloader.Options{
		Workers:     workers,
		TaskTimeout: f.opts.TaskTimeout,
		Progress:    reporter,
		Logger:      f.logger,
	})
	if err != nil {
		return nil, err
	}

	f.logger.InfoContext(ctx, "downloaded coin icons", "summary", reporter.Summary())
	return result, nil
}

func (f *Fetcher) coinsURL(revision string) string {
	return fmt.Sprintf("%s/%s/coins", f.opts.BaseURL, revision)
}

func (f *Fetcher) coinsConfigURL(revision string) string {
	return fmt.Sprintf("%s/%s/utils/coins_config.json", f.opts.BaseURL, revision)
}
