package transport

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	apperrors "genset-bridge/pkg/errors"
	"genset-bridge/pkg/logger"
)

// Conn is one live session to the bridge. Every call carries a mandatory
// timeout: a hung socket on the polling path would starve command dispatch,
// so no unbounded blocking is permitted anywhere in this package.
type Conn interface {
	Send(payload []byte, timeout time.Duration) error
	Receive(maxBytes int, timeout time.Duration) ([]byte, error)
	Close() error
}

// DialFunc opens a new session; injected into the connection manager so
// tests can substitute a fake bridge.
type DialFunc func(host string, port int, timeout time.Duration) (Conn, error)

// TCPConn owns one TCP connection to the serial-to-Ethernet bridge
type TCPConn struct {
	conn net.Conn
	host string
	port int

	mu     sync.Mutex
	closed bool
}

// Dial connects to the bridge, bounded by timeout
func Dial(host string, port int, timeout time.Duration) (Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		if isTimeout(err) {
			return nil, apperrors.NewTimeoutError("dial", err, "dial", timeout)
		}
		return nil, apperrors.NewConnectionError("dial", err, host, port)
	}
	logger.LogDebug("🔌 Connected to bridge %s", addr)
	return &TCPConn{conn: conn, host: host, port: port}, nil
}

// Send writes the full payload, bounded by timeout
func (t *TCPConn) Send(payload []byte, timeout time.Duration) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return apperrors.NewConnectionError("send", fmt.Errorf("connection closed"), t.host, t.port)
	}
	conn := t.conn
	t.mu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return apperrors.NewConnectionError("send", err, t.host, t.port)
	}
	if _, err := conn.Write(payload); err != nil {
		if isTimeout(err) {
			return apperrors.NewTimeoutError("send", err, "write", timeout)
		}
		return apperrors.NewConnectionError("send", err, t.host, t.port)
	}
	return nil
}

// Receive reads up to maxBytes, bounded by timeout. One read per call:
// the wire has no framing, so whatever arrives is handed back as
// best-effort text and re-synchronization happens at the next query.
func (t *TCPConn) Receive(maxBytes int, timeout time.Duration) ([]byte, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, apperrors.NewConnectionError("receive", fmt.Errorf("connection closed"), t.host, t.port)
	}
	conn := t.conn
	t.mu.Unlock()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, apperrors.NewConnectionError("receive", err, t.host, t.port)
	}
	buf := make([]byte, maxBytes)
	n, err := conn.Read(buf)
	if err != nil {
		if isTimeout(err) {
			return nil, apperrors.NewTimeoutError("receive", err, "read", timeout)
		}
		return nil, apperrors.NewConnectionError("receive", err, t.host, t.port)
	}
	return buf[:n], nil
}

// Close releases the socket. Safe to call multiple times.
func (t *TCPConn) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

func isTimeout(err error) bool {
	netErr, ok := err.(net.Error)
	return ok && netErr.Timeout()
}
