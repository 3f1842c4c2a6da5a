package socket

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

var ErrListenerClosed = errors.New("socket: listener closed")

// Listener is a blocking TCP listening descriptor handing out Sockets.
type Listener struct {
	fd   int
	addr *net.TCPAddr
	opts []Option

	mu        sync.Mutex
	closed    bool
	accepting sync.WaitGroup
}

// Listen binds addr ("host:port", IPv4 or IPv6) and starts listening.
func Listen(addr string, opts ...Option) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("socket: resolve %s: %w", addr, err)
	}

	family := unix.AF_INET
	var sa unix.Sockaddr
	if ip4 := tcpAddr.IP.To4(); ip4 != nil || tcpAddr.IP == nil {
		sa4 := &unix.SockaddrInet4{Port: tcpAddr.Port}
		copy(sa4.Addr[:], ip4)
		sa = sa4
	} else {
		family = unix.AF_INET6
		sa6 := &unix.SockaddrInet6{Port: tcpAddr.Port}
		copy(sa6.Addr[:], tcpAddr.IP.To16())
		sa = sa6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	unix.CloseOnExec(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("getsockname", err)
	}

	return &Listener{
		fd:   fd,
		addr: toTCPAddr(bound),
		opts: opts,
	}, nil
}

func toTCPAddr(sa unix.Sockaddr) *net.TCPAddr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(sa.Addr[:]).To16(), Port: sa.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(sa.Addr[:]), Port: sa.Port, Zone: zone(sa.ZoneId)}
	default:
		return &net.TCPAddr{}
	}
}

func zone(id uint32) string {
	if id == 0 {
		return ""
	}
	if ifi, err := net.InterfaceByIndex(int(id)); err == nil {
		return ifi.Name
	}
	return strconv.FormatUint(uint64(id), 10)
}

func (l *Listener) Addr() *net.TCPAddr {
	return l.addr
}

// Accept blocks until a connection arrives. Failures are reported as
// AcceptFailed; ErrListenerClosed is returned once Close has been called.
func (l *Listener) Accept() (*Socket, error) {
	if !l.enter() {
		return nil, ErrListenerClosed
	}
	defer l.accepting.Done()

	for {
		nfd, _, err := unix.Accept(l.fd)
		if err == nil {
			unix.CloseOnExec(nfd)
			return New(nfd, l.opts...), nil
		}
		if l.isClosed() {
			return nil, ErrListenerClosed
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return nil, newError(AcceptFailed, err)
	}
}

// enter registers an Accept in flight. The descriptor is not released while
// any Accept holds it.
func (l *Listener) enter() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.accepting.Add(1)
	return true
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close wakes any blocked Accept, waits for it to return and releases the
// descriptor.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	unix.Shutdown(l.fd, unix.SHUT_RDWR)
	l.mu.Unlock()

	l.accepting.Wait()
	return unix.Close(l.fd)
}
