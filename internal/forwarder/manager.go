package forwarder

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"autoforward_bot/internal/config"
	"autoforward_bot/internal/storage"
)

// ErrAlreadyRunning is returned by Start while a session is still active.
var ErrAlreadyRunning = errors.New("bot is already running")

// Manager is the control surface. It owns at most one active Forwarder at a
// time and serializes operator start/stop/status against it.
type Manager struct {
	cfg   *config.Config
	store storage.Storage
	dial  ClientFactory
	log   *slog.Logger

	mu      sync.Mutex
	current *Forwarder
	done    chan struct{}
}

// NewManager creates a Manager. store may be nil when the database is
// unavailable; runs then proceed without record-keeping.
func NewManager(cfg *config.Config, store storage.Storage, dial ClientFactory, log *slog.Logger) *Manager {
	return &Manager{cfg: cfg, store: store, dial: dial, log: log}
}

// Start launches a new run on its own goroutine and returns immediately.
// Incomplete configuration is rejected synchronously; beyond that the
// acknowledgment is not a guarantee of successful authentication, and the
// true outcome is only observable via Status moments later.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.Active() {
		return ErrAlreadyRunning
	}
	if missing := m.cfg.MissingForStart(); len(missing) > 0 {
		return newError(KindConfig, "missing required settings: "+strings.Join(missing, ", "), nil)
	}

	f := New(m.cfg, m.store, m.dial, m.log)
	done := make(chan struct{})
	m.current = f
	m.done = done

	go func() {
		defer close(done)
		if err := f.Authenticate(); err != nil {
			m.log.Error("authenticate", "error", err)
			return
		}
		if err := f.Run(context.Background()); err != nil {
			m.log.Error("forwarding run failed", "error", err)
		}
	}()

	return nil
}

// Stop signals the active run and waits for it to acknowledge. Stopping an
// idle manager is a no-op, as is stopping twice.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	f, done := m.current, m.done
	m.mu.Unlock()

	if f == nil {
		return nil
	}

	f.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current forwarder's statistics, or nil when no
// forwarder has been constructed yet.
func (m *Manager) Status() *Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	s := m.current.Stats()
	return &s
}

// Running reports whether a run is currently active.
func (m *Manager) Running() bool {
	s := m.Status()
	return s != nil && s.Running
}
