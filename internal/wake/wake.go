// Package wake provides the system awake-handle: a device-level request
// to suppress automatic suspend, with idempotent acquire/release semantics.
package wake

import (
	"fmt"
	"sync"
	"syscall"

	"github.com/godbus/dbus/v5"
)

// Locker is the awake-handle resource. Acquire and Release are
// idempotent: acquiring while held or releasing while not held are
// no-ops.
type Locker interface {
	Acquire(reason string) error
	Release()
}

// LogindLocker takes a "sleep" inhibitor lock from systemd-logind over
// the system bus. The lock is a file descriptor; closing it releases
// the inhibition.
type LogindLocker struct {
	who string

	mu   sync.Mutex
	conn *dbus.Conn
	lock dbus.UnixFD
	held bool
}

// NewLogind returns a logind-backed locker identifying itself as who.
func NewLogind(who string) *LogindLocker {
	return &LogindLocker{who: who}
}

func (l *LogindLocker) Acquire(reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}

	manager := conn.Object("org.freedesktop.login1", "/org/freedesktop/login1")
	var fd dbus.UnixFD
	err = manager.Call(
		"org.freedesktop.login1.Manager.Inhibit", 0,
		"sleep", l.who, reason, "block",
	).Store(&fd)
	if err != nil {
		conn.Close()
		return fmt.Errorf("logind inhibit: %w", err)
	}

	l.conn = conn
	l.lock = fd
	l.held = true
	return nil
}

func (l *LogindLocker) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return
	}
	// logind keeps the inhibition until the fd itself is closed; the
	// fd is a process-owned duplicate, so closing the bus connection
	// alone would leave the lock held forever.
	syscall.Close(int(l.lock))
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
	l.lock = 0
	l.held = false
}

// NopLocker is used when no platform inhibitor is available (tests,
// headless containers). It only tracks the held state.
type NopLocker struct {
	mu   sync.Mutex
	held bool
}

func (n *NopLocker) Acquire(string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.held = true
	return nil
}

func (n *NopLocker) Release() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.held = false
}
