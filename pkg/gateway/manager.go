package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "genset-bridge/pkg/errors"
	"genset-bridge/pkg/logger"
	"genset-bridge/pkg/transport"
)

// Config holds the connection manager settings
type Config struct {
	Host             string
	Port             int
	DialTimeout      time.Duration
	WriteTimeout     time.Duration
	BackoffFloor     time.Duration
	BackoffCeiling   time.Duration
	MaxResponseBytes int
}

// ConnectionManager wraps the transport with a reconnect-with-backoff policy
// and exposes a single always-available logical connection. It also owns the
// single-flight exchange lock: the poller and command dispatch share one
// physical connection and the bridge protocol has no multiplexing, so only
// one send+receive cycle may be in flight at a time.
//
// State machine:
//
//	Disconnected --attempt--> Connecting --success--> Connected
//	Connecting --failure--> Backoff
//	Connected --I/O error--> Backoff
//	Backoff --timer elapses--> Connecting
//
// The backoff delay starts at the configured floor, doubles per consecutive
// failure up to the ceiling, and resets to the floor after one fully
// successful request/response cycle.
type ConnectionManager struct {
	cfg  Config
	dial transport.DialFunc

	mu        sync.RWMutex
	conn      transport.Conn
	state     ConnState
	delay     time.Duration
	nextRetry time.Time
	onState   func(ConnState)

	// Capacity-1 semaphore guarding one send+receive cycle over the shared
	// handle. Never held across a backoff wait.
	exchange chan struct{}
}

// NewConnectionManager creates a connection manager. onState, if non-nil, is
// invoked (under the manager's lock, keep it cheap) on every state change.
func NewConnectionManager(cfg Config, dial transport.DialFunc, onState func(ConnState)) *ConnectionManager {
	if dial == nil {
		dial = transport.Dial
	}
	if cfg.MaxResponseBytes == 0 {
		cfg.MaxResponseBytes = 1024
	}
	return &ConnectionManager{
		cfg:      cfg,
		dial:     dial,
		state:    StateDisconnected,
		delay:    cfg.BackoffFloor,
		onState:  onState,
		exchange: make(chan struct{}, 1),
	}
}

// IsConnected is a cheap, non-blocking connectivity query
func (m *ConnectionManager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected && m.conn != nil
}

// State returns the current connection state
func (m *ConnectionManager) State() ConnState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Exchange performs one request/response cycle over the shared handle.
// Acquisition of the exchange lock is bounded by lockTimeout; a caller that
// cannot get the transport in time receives a BusyError rather than a hang.
// Transport errors transition the manager to Backoff; the response of a
// fully successful cycle resets the backoff delay to the floor.
func (m *ConnectionManager) Exchange(ctx context.Context, payload []byte, lockTimeout, readTimeout time.Duration) ([]byte, error) {
	waitStart := time.Now()
	select {
	case m.exchange <- struct{}{}:
	case <-time.After(lockTimeout):
		return nil, apperrors.NewBusyError("exchange", time.Since(waitStart))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-m.exchange }()

	conn, err := m.Acquire()
	if err != nil {
		return nil, err
	}

	if err := conn.Send(payload, m.cfg.WriteTimeout); err != nil {
		m.markFailed(err)
		return nil, err
	}

	resp, err := conn.Receive(m.cfg.MaxResponseBytes, readTimeout)
	if err != nil {
		m.markFailed(err)
		return nil, err
	}

	m.markHealthy()
	return resp, nil
}

// Acquire returns the live handle if connected, otherwise attempts a
// synchronous reconnect bounded by the dial timeout. While the backoff
// window is open it fails immediately instead of waiting the window out,
// so callers are never blocked longer than the dial timeout.
func (m *ConnectionManager) Acquire() (transport.Conn, error) {
	m.mu.Lock()
	if m.state == StateConnected && m.conn != nil {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	if m.state == StateBackoff {
		if wait := time.Until(m.nextRetry); wait > 0 {
			m.mu.Unlock()
			return nil, apperrors.NewConnectionError("acquire",
				fmt.Errorf("backing off, next attempt in %v", wait.Round(time.Millisecond)),
				m.cfg.Host, m.cfg.Port)
		}
	}
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	// Dial outside the lock so IsConnected stays non-blocking
	conn, err := m.dial(m.cfg.Host, m.cfg.Port, m.cfg.DialTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failLocked(err)
		return nil, err
	}
	m.conn = conn
	m.setStateLocked(StateConnected)
	logger.LogInfo("🔌 Bridge session established (%s:%d)", m.cfg.Host, m.cfg.Port)
	return conn, nil
}

// markFailed records an I/O failure: the session is dropped and the
// manager enters Backoff with a doubled delay
func (m *ConnectionManager) markFailed(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLocked(err)
}

func (m *ConnectionManager) failLocked(err error) {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.nextRetry = time.Now().Add(m.delay)
	logger.LogWarn("⚠️ Bridge I/O failure, backing off %v: %v", m.delay, err)

	next := m.delay * 2
	if next > m.cfg.BackoffCeiling {
		next = m.cfg.BackoffCeiling
	}
	m.delay = next
	m.setStateLocked(StateBackoff)
}

// markHealthy resets the backoff delay after one fully successful
// request/response cycle
func (m *ConnectionManager) markHealthy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = m.cfg.BackoffFloor
}

// CurrentBackoff returns the delay that would apply to the next failure
func (m *ConnectionManager) CurrentBackoff() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.delay
}

// Close drops the session and leaves the manager Disconnected.
// Safe to call multiple times.
func (m *ConnectionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.delay = m.cfg.BackoffFloor
	m.setStateLocked(StateDisconnected)
}

func (m *ConnectionManager) setStateLocked(s ConnState) {
	if m.state == s {
		return
	}
	m.state = s
	logger.LogDebug("🔧 Connection state -> %s", s)
	if m.onState != nil {
		m.onState(s)
	}
}
