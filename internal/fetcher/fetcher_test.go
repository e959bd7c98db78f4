package fetcher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"

	"github.com/cipig/komodo-wallet-mobile/internal/downloader"
	assethttp "github.com/cipig/komodo-wallet-mobile/internal/http"
	"github.com/cipig/komodo-wallet-mobile/internal/testutils"
	"github.com/cipig/komodo-wallet-mobile/pkg/assetstore"
	"github.com/cipig/komodo-wallet-mobile/pkg/coins"
)

type env struct {
	repo    *testutils.CoinRepo
	store   *assetstore.Store
	dir     string
	fetcher *Fetcher
}

func writePointer(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coins_ci.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write pointer file: %v", err)
	}
	return path
}

func newEnv(t *testing.T, pointer, coinList, coinConfig string, icons ...string) *env {
	t.Helper()

	repo := testutils.StartCoinRepo(t, "deadbeef", coinList, coinConfig, icons...)

	// Not t.TempDir: icons still in flight after a failed run may land after
	// the test returns, which would fail its strict cleanup.
	root, err := os.MkdirTemp("", "coin-assets-")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(root) })

	dir := filepath.Join(root, "assets")
	store, err := assetstore.OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := New(assethttp.NewClient(assethttp.DefaultOptions()), store, Options{
		BaseURL:        repo.URL(),
		RevisionFile:   writePointer(t, pointer),
		CoinsKey:       "coins.json",
		CoinsConfigKey: "coins_config.json",
		IconDir:        "coin-icons",
		Workers:        2,
		TaskTimeout:    time.Second,
	})

	return &env{repo: repo, store: store, dir: dir, fetcher: f}
}

func TestRunEndToEnd(t *testing.T) {
	e := newEnv(t, `{"coins_repo_commit":"deadbeef"}`, `[{"coin":"foo-bep20"}]`, `{}`, "foo")

	report, err := e.fetcher.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Outcome != OutcomeFetched {
		t.Errorf("expected fetched outcome, got %s", report.Outcome)
	}
	if report.Revision != "deadbeef" || report.Coins != 1 || report.Icons.Downloaded != 1 {
		t.Errorf("unexpected report %+v", report)
	}

	paths := e.repo.Paths()
	want := []string{"/deadbeef/coins", "/deadbeef/utils/coins_config.json", "/deadbeef/icons/foo.png"}
	if len(paths) != len(want) {
		t.Fatalf("expected requests %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("request %d = %s, want %s", i, paths[i], want[i])
		}
	}

	data, err := os.ReadFile(filepath.Join(e.dir, "coin-icons", "foo.png"))
	if err != nil {
		t.Fatalf("read icon: %v", err)
	}
	if !bytes.Equal(data, testutils.IconData("foo")) {
		t.Error("icon content mismatch")
	}

	entries, err := os.ReadDir(filepath.Join(e.dir, "coin-icons"))
	if err != nil {
		t.Fatalf("read icon dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one icon file, got %d", len(entries))
	}

	coinsDoc, _ := os.ReadFile(filepath.Join(e.dir, "coins.json"))
	if string(coinsDoc) != `[{"coin":"foo-bep20"}]` {
		t.Errorf("coins.json not stored verbatim: %q", coinsDoc)
	}
	configDoc, _ := os.ReadFile(filepath.Join(e.dir, "coins_config.json"))
	if string(configDoc) != `{}` {
		t.Errorf("coins_config.json not stored verbatim: %q", configDoc)
	}
}

func TestRunSkipsWhenPresent(t *testing.T) {
	e := newEnv(t, `{"coins_repo_commit":"deadbeef"}`, `[{"coin":"KMD"}]`, `{"BTC":{"coin":"BTC"}}`, "kmd", "btc")
	ctx := context.Background()

	if _, err := e.fetcher.Run(ctx, false); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	before := e.repo.Requests()

	report, err := e.fetcher.Run(ctx, false)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Outcome != OutcomeSkipped {
		t.Errorf("expected skipped outcome, got %s", report.Outcome)
	}
	if n := e.repo.Requests() - before; n != 0 {
		t.Errorf("expected no requests on second run, got %d", n)
	}
}

func TestRunForceRefetches(t *testing.T) {
	e := newEnv(t, `{"coins_repo_commit":"deadbeef"}`, `[{"coin":"KMD"}]`, `{}`, "kmd")
	ctx := context.Background()

	if _, err := e.fetcher.Run(ctx, false); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// A stale icon that upstream no longer lists must disappear.
	stale := filepath.Join(e.dir, "coin-icons", "old.png")
	if err := os.WriteFile(stale, []byte("old"), 0644); err != nil {
		t.Fatalf("write stale icon: %v", err)
	}
	e.repo.SetIcon("kmd", []byte("new kmd icon"))
	before := e.repo.Requests()

	report, err := e.fetcher.Run(ctx, true)
	if err != nil {
		t.Fatalf("forced Run: %v", err)
	}
	if report.Outcome != OutcomeFetched {
		t.Errorf("expected fetched outcome, got %s", report.Outcome)
	}
	if n := e.repo.Requests() - before; n != 3 {
		t.Errorf("expected 3 requests on forced run, got %d", n)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("expected stale icon removed, got %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(e.dir, "coin-icons", "kmd.png"))
	if string(data) != "new kmd icon" {
		t.Errorf("expected refreshed icon, got %q", data)
	}
}

func TestCleanThenExists(t *testing.T) {
	e := newEnv(t, `{"coins_repo_commit":"deadbeef"}`, `[{"coin":"KMD"}]`, `{}`, "kmd")
	ctx := context.Background()

	if _, err := e.fetcher.Run(ctx, false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ok, _ := e.fetcher.Exists(ctx); !ok {
		t.Fatal("expected assets to exist after run")
	}

	if err := e.fetcher.Clean(ctx); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if ok, _ := e.fetcher.Exists(ctx); ok {
		t.Error("expected assets to be gone after clean")
	}

	// Cleaning nothing is fine.
	if err := e.fetcher.Clean(ctx); err != nil {
		t.Errorf("Clean on empty store: %v", err)
	}
}

func TestRunMissingRevision(t *testing.T) {
	e := newEnv(t, `{"other_commit":"deadbeef"}`, `[{"coin":"KMD"}]`, `{}`, "kmd")

	_, err := e.fetcher.Run(context.Background(), false)
	if !errors.Is(err, coins.ErrMissingRevision) {
		t.Fatalf("expected ErrMissingRevision, got %v", err)
	}
	if n := e.repo.Requests(); n != 0 {
		t.Errorf("expected no network calls, got %d", n)
	}
}

func TestRunNoCoins(t *testing.T) {
	e := newEnv(t, `{"coins_repo_commit":"deadbeef"}`, `[]`, `{}`)

	_, err := e.fetcher.Run(context.Background(), false)
	if !errors.Is(err, coins.ErrNoCoins) {
		t.Fatalf("expected ErrNoCoins, got %v", err)
	}
	if ok, _ := e.store.DirExists(context.Background(), "coin-icons"); ok {
		t.Error("icon dir must not be created when there are no coins")
	}
}

func TestRunConfigFetchFails(t *testing.T) {
	e := newEnv(t, `{"coins_repo_commit":"unknown"}`, `[{"coin":"KMD"}]`, `{}`, "kmd")

	_, err := e.fetcher.Run(context.Background(), false)
	if !errors.Is(err, assethttp.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok, _ := e.store.Exists(context.Background(), "coins.json"); ok {
		t.Error("coins.json must not be written when a config fetch fails")
	}
}

func TestRunIconFailure(t *testing.T) {
	e := newEnv(t, `{"coins_repo_commit":"deadbeef"}`,
		`[{"coin":"C1"},{"coin":"C2"},{"coin":"C3"},{"coin":"C4"},{"coin":"C5"}]`, `{}`,
		"c1", "c2", "c3", "c4", "c5")
	e.repo.FailIcon("c3", http.StatusNotFound)

	_, err := e.fetcher.Run(context.Background(), false)

	var iconErr *downloader.IconError
	if !errors.As(err, &iconErr) {
		t.Fatalf("expected IconError, got %v", err)
	}
	if iconErr.Coin != "c3" {
		t.Errorf("expected failing coin c3, got %s", iconErr.Coin)
	}
	if _, err := os.Stat(filepath.Join(e.dir, "coin-icons", "c3.png")); !os.IsNotExist(err) {
		t.Errorf("failed icon must not exist, got %v", err)
	}
}

// The icon directory is created before icons download, so a run that dies
// after that point leaves a tree the next run treats as complete.
func TestRunPartialFailureLeavesSkippableTree(t *testing.T) {
	e := newEnv(t, `{"coins_repo_commit":"deadbeef"}`, `[{"coin":"KMD"}]`, `{}`, "kmd")
	e.repo.FailIcon("kmd", http.StatusInternalServerError)
	ctx := context.Background()

	if _, err := e.fetcher.Run(ctx, false); err == nil {
		t.Fatal("expected first run to fail")
	}

	report, err := e.fetcher.Run(ctx, false)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if report.Outcome != OutcomeSkipped {
		t.Errorf("expected skipped outcome, got %s", report.Outcome)
	}
}

func TestRunObjectStore(t *testing.T) {
	ctx := context.Background()
	repo := testutils.StartCoinRepo(t, "deadbeef", `[{"coin":"KMD"}]`, `{"LTC-segwit":{"coin":"LTC-segwit"}}`, "kmd", "ltc")

	bucket, err := blob.OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	store := assetstore.New(bucket)
	defer store.Close()

	f := New(assethttp.NewClient(assethttp.DefaultOptions()), store, Options{
		BaseURL:        repo.URL() + "/",
		RevisionFile:   writePointer(t, `{"coins_repo_commit":"deadbeef"}`),
		CoinsKey:       "coins.json",
		CoinsConfigKey: "coins_config.json",
		IconDir:        "coin-icons/",
	})

	report, err := f.Run(ctx, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Icons.Downloaded != 2 {
		t.Errorf("expected 2 icons, got %d", report.Icons.Downloaded)
	}

	keys, err := store.Keys(ctx, "coin-icons")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "coin-icons/kmd.png" || keys[1] != "coin-icons/ltc.png" {
		t.Errorf("unexpected icon keys %v", keys)
	}

	if report, _ := f.Run(ctx, false); report == nil || report.Outcome != OutcomeSkipped {
		t.Error("expected second run on object store to skip")
	}
}
