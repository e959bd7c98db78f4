// Command fetch-coin-assets downloads the coin configuration files and coin
// icons pinned by coins_ci.json into the wallet's asset directory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/cipig/komodo-wallet-mobile/internal/config"
	"github.com/cipig/komodo-wallet-mobile/internal/downloader"
	"github.com/cipig/komodo-wallet-mobile/internal/fetcher"
	assethttp "github.com/cipig/komodo-wallet-mobile/internal/http"
	"github.com/cipig/komodo-wallet-mobile/internal/progress"
	"github.com/cipig/komodo-wallet-mobile/pkg/assetstore"
	"github.com/cipig/komodo-wallet-mobile/pkg/coins"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitSourceError  = 3
	ExitStorageError = 5
	ExitUpstreamData = 7
)

// usageError marks errors caused by the command line or configuration.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type flags struct {
	force   bool
	config  string
	verbose bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cmd := newRootCommand(stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return ExitSuccess
}

func newRootCommand(stderr io.Writer) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "fetch-coin-assets",
		Short: "Fetch coin configs and icons at the pinned coins revision",
		Long: `Fetch coins.json, coins_config.json and one icon per coin from the
coins repository at the commit named in coins_ci.json.

Nothing is downloaded when the assets already exist, unless --force is set.

Environment variables with the COIN_ASSETS_ prefix override the config file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return fetch(cmd.Context(), f, stderr)
		},
	}
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "Remove existing assets and fetch again")
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "YAML or TOML config file")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Log at debug level")

	return cmd
}

func loadConfig(f flags) (config.Config, error) {
	cfg := config.Default()
	if f.config != "" {
		fileCfg, err := config.LoadFromFile(f.config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = fileCfg
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}
	if f.force {
		cfg.Force = true
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func fetch(ctx context.Context, f flags, stderr io.Writer) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return usageError{err}
	}

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})).
		With("run", uuid.NewString())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received interrupt, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	store, err := assetstore.Open(ctx, cfg.AssetRoot)
	if err != nil {
		return err
	}
	defer store.Close()

	httpOpts := assethttp.DefaultOptions()
	httpOpts.Timeout = cfg.HTTPTimeout
	httpOpts.Logger = logger
	client := assethttp.NewClient(httpOpts)

	fc := fetcher.New(client, store, fetcher.Options{
		BaseURL:        cfg.BaseURL,
		RevisionFile:   cfg.RevisionFile,
		CoinsKey:       cfg.CoinsKey,
		CoinsConfigKey: cfg.CoinsConfigKey,
		IconDir:        cfg.IconDir,
		Workers:        cfg.Workers,
		TaskTimeout:    cfg.TaskTimeout,
		ShowProgress:   showProgress(cfg.Progress, stderr),
		ProgressOutput: stderr,
		Logger:         logger,
	})

	logger.Debug("starting", "asset_root", store.Location(""), "base_url", cfg.BaseURL, "force", cfg.Force)

	report, err := fc.Run(ctx, cfg.Force)
	if err != nil {
		return err
	}

	if report.Outcome == fetcher.OutcomeFetched {
		logger.Info("coin assets fetched",
			"revision", report.Revision,
			"coins", report.Coins,
			"icons", report.Icons.Downloaded,
			"size", progress.FormatBytes(report.Icons.Bytes),
		)
	}
	return nil
}

func showProgress(mode string, out io.Writer) bool {
	switch mode {
	case config.ProgressOn:
		return true
	case config.ProgressOff:
		return false
	}
	f, ok := out.(*os.File)
	return ok && progress.IsTerminal(f)
}

func exitCode(err error) int {
	var (
		usage     usageError
		storeErr  *assetstore.Error
		iconErr   *downloader.IconError
		urlErr    *url.Error
		syntaxErr *json.SyntaxError
		pathErr   *fs.PathError
	)

	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, coins.ErrNoCoins),
		errors.Is(err, coins.ErrInvalidDocument):
		return ExitUpstreamData
	case errors.As(err, &usage),
		errors.Is(err, coins.ErrMissingRevision),
		errors.As(err, &syntaxErr):
		return ExitInvalidArgs
	case errors.As(err, &storeErr):
		return ExitStorageError
	case errors.As(err, &iconErr),
		errors.As(err, &urlErr),
		errors.Is(err, assethttp.ErrNotFound),
		errors.Is(err, assethttp.ErrForbidden),
		errors.Is(err, assethttp.ErrUnauthorized),
		errors.Is(err, assethttp.ErrServerError),
		errors.Is(err, assethttp.ErrUnexpectedStatus),
		errors.Is(err, context.DeadlineExceeded):
		return ExitSourceError
	case errors.As(err, &pathErr):
		return ExitStorageError
	default:
		return ExitGeneralError
	}
}
