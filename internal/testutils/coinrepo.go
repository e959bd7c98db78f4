// Package testutils provides shared test infrastructure.
package testutils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// IconData returns deterministic fake PNG bytes for a coin.
func IconData(coin string) []byte {
	return []byte("\x89PNG\r\n\x1a\n" + coin)
}

// CoinRepo serves a coins repository snapshot at a single revision:
//
//	/{revision}/coins
//	/{revision}/utils/coins_config.json
//	/{revision}/icons/{coin}.png
//
// Requests for any other revision or path get 404.
type CoinRepo struct {
	Server   *httptest.Server
	Revision string

	mu          sync.Mutex
	coins       []byte
	coinsConfig []byte
	icons       map[string][]byte
	iconStatus  map[string]int
	iconDelay   map[string]time.Duration
	paths       []string

	requests    atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// StartCoinRepo starts a server for the given documents. Every coin in
// icons is served with IconData unless overridden with SetIcon.
func StartCoinRepo(t *testing.T, revision, coins, coinsConfig string, icons ...string) *CoinRepo {
	t.Helper()

	repo := &CoinRepo{
		Revision:    revision,
		coins:       []byte(coins),
		coinsConfig: []byte(coinsConfig),
		icons:       make(map[string][]byte),
		iconStatus:  make(map[string]int),
		iconDelay:   make(map[string]time.Duration),
	}
	for _, coin := range icons {
		repo.icons[coin] = IconData(coin)
	}

	repo.Server = httptest.NewServer(http.HandlerFunc(repo.serve))
	t.Cleanup(repo.Server.Close)
	return repo
}

// URL returns the base URL, without revision.
func (r *CoinRepo) URL() string {
	return r.Server.URL
}

// SetIcon serves data for a coin icon.
func (r *CoinRepo) SetIcon(coin string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.icons[coin] = data
}

// FailIcon makes requests for a coin icon answer with status.
func (r *CoinRepo) FailIcon(coin string, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iconStatus[coin] = status
}

// DelayIcon delays the response for a coin icon.
func (r *CoinRepo) DelayIcon(coin string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iconDelay[coin] = d
}

// Requests returns the number of requests served.
func (r *CoinRepo) Requests() int {
	return int(r.requests.Load())
}

// MaxInFlight returns the highest number of concurrent requests observed.
func (r *CoinRepo) MaxInFlight() int {
	return int(r.maxInFlight.Load())
}

// Paths returns the request paths in arrival order.
func (r *CoinRepo) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *CoinRepo) serve(w http.ResponseWriter, req *http.Request) {
	r.requests.Add(1)
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		cur := r.maxInFlight.Load()
		if n <= cur || r.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	r.mu.Lock()
	r.paths = append(r.paths, req.URL.Path)
	r.mu.Unlock()

	rest, ok := strings.CutPrefix(req.URL.Path, "/"+r.Revision+"/")
	if !ok {
		http.NotFound(w, req)
		return
	}

	switch {
	case rest == "coins":
		w.Write(r.coins)
	case rest == "utils/coins_config.json":
		w.Write(r.coinsConfig)
	case strings.HasPrefix(rest, "icons/") && strings.HasSuffix(rest, ".png"):
		r.serveIcon(w, req, strings.TrimSuffix(strings.TrimPrefix(rest, "icons/"), ".png"))
	default:
		http.NotFound(w, req)
	}
}

func (r *CoinRepo) serveIcon(w http.ResponseWriter, req *http.Request, coin string) {
	r.mu.Lock()
	data, ok := r.icons[coin]
	status := r.iconStatus[coin]
	delay := r.iconDelay[coin]
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-req.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, fmt.Sprintf("icon %s unavailable", coin), status)
		return
	}
	if !ok {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}
