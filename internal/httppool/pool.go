// Package httppool gives outbound HTTP callers a named, bounded-concurrency
// client instead of sharing the global default transport, per spec.md §5's
// "a named HTTP connection pool, selectable per-worker, to bound outbound
// concurrency". C7 installs a narrower "background" pool for the duration
// of a background indexing run so it never contends with the foreground
// conversation's own requests.
package httppool

import (
	"net/http"
	"sync"
	"sync/atomic"
)

const (
	// Default is the pool foreground callers (C6's model client,
	// interactive embedding calls) use unless told otherwise.
	Default = "default"

	// Background is the pool C7 installs as the active override while it
	// runs; a small MaxConnsPerHost keeps indexing from saturating the
	// connection pool the foreground needs to stay responsive.
	Background = "background"
)

const backgroundMaxConnsPerHost = 2

var (
	mu    sync.RWMutex
	pools = map[string]*http.Client{
		Default:    newClient(0),
		Background: newClient(backgroundMaxConnsPerHost),
	}
	active atomic.Value
)

func init() { active.Store(Default) }

func newClient(maxConnsPerHost int) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if maxConnsPerHost > 0 {
		transport.MaxConnsPerHost = maxConnsPerHost
		transport.MaxIdleConnsPerHost = maxConnsPerHost
	}
	return &http.Client{Transport: transport}
}

// Get returns the named pool's client, lazily registering an unbounded pool
// under an unrecognised name rather than failing.
func Get(name string) *http.Client {
	mu.RLock()
	client, ok := pools[name]
	mu.RUnlock()
	if ok {
		return client
	}
	mu.Lock()
	defer mu.Unlock()
	if client, ok := pools[name]; ok {
		return client
	}
	client = newClient(0)
	pools[name] = client
	return client
}

// SetActive installs name as the process-wide override returned by Active.
func SetActive(name string) { active.Store(name) }

// ClearActive restores the default pool as active. Safe to call repeatedly.
func ClearActive() { active.Store(Default) }

// Active returns the client for whichever pool is currently installed.
func Active() *http.Client { return Get(active.Load().(string)) }

// ActiveName reports the currently installed pool's name, for logging.
func ActiveName() string { return active.Load().(string) }
