package wsloop

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// connFd extracts the raw descriptor poll(2) watches for a
// connection. For TLS connections the descriptor of the underlying
// TCP connection is used; bytes already decrypted into the tls.Conn
// buffer are invisible to poll until more ciphertext arrives, the
// same class of limitation any select-on-socket loop has under TLS.
func connFd(conn net.Conn) (int, error) {
	if tc, ok := conn.(*tls.Conn); ok {
		conn = tc.NetConn()
	}
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, fmt.Errorf("connection type %T does not expose a descriptor", conn)
	}
	return rawFd(sc)
}

func listenerFd(ln net.Listener) (int, error) {
	sl, ok := ln.(syscall.Conn)
	if !ok {
		return 0, fmt.Errorf("listener type %T does not expose a descriptor", ln)
	}
	return rawFd(sl)
}

func rawFd(sc syscall.Conn) (int, error) {
	rc, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}
	fd := -1
	err = rc.Control(func(f uintptr) { fd = int(f) })
	if err != nil {
		return 0, err
	}
	return fd, nil
}

// pollReady polls fds for readability. Timeout semantics follow
// poll(2): 0 returns immediately, -1 blocks until a handle is ready.
// EINTR is retried.
func pollReady(fds []unix.PollFd, timeoutMs int) (int, error) {
	for {
		n, err := unix.Poll(fds, timeoutMs)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}
