package wake

import (
	"syscall"
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestNopLockerIdempotent(t *testing.T) {
	n := &NopLocker{}
	if err := n.Acquire("test"); err != nil {
		t.Fatal(err)
	}
	if err := n.Acquire("test"); err != nil {
		t.Fatal(err)
	}
	if !n.held {
		t.Fatal("acquire should mark the lock held")
	}
	n.Release()
	n.Release()
	if n.held {
		t.Fatal("release should clear the held flag")
	}
}

func TestLogindReleaseClosesLockFD(t *testing.T) {
	// logind only drops the inhibition once the fd it handed out is
	// closed, so Release must close the fd itself, not just the bus
	// connection. Stand in a pipe end for the inhibitor fd.
	var p [2]int
	if err := syscall.Pipe(p[:]); err != nil {
		t.Fatal(err)
	}
	defer syscall.Close(p[0])

	l := NewLogind("test")
	l.lock = dbus.UnixFD(p[1])
	l.held = true

	l.Release()
	if l.held {
		t.Fatal("release should clear the held flag")
	}
	if _, err := syscall.Write(p[1], []byte{0}); err != syscall.EBADF {
		t.Fatalf("lock fd still open after release: %v", err)
	}

	// Releasing while not held is a no-op.
	l.Release()
}
