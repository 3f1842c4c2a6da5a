package socket

import (
	"errors"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const (
	DefaultBufferLength  = 1024
	DefaultMaxLineLength = 8 << 10
)

// Syscalls is the descriptor-level I/O a Socket is built on.
type Syscalls interface {
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)
	Close(fd int) error
}

type unixSyscalls struct{}

func (unixSyscalls) Read(fd int, p []byte) (int, error)  { return unix.Read(fd, p) }
func (unixSyscalls) Write(fd int, p []byte) (int, error) { return unix.Write(fd, p) }
func (unixSyscalls) Close(fd int) error                  { return unix.Close(fd) }

type Option func(s *Socket)

// WithBufferLength bounds the size of a single read syscall.
func WithBufferLength(length int) Option {
	return func(s *Socket) {
		if length > 0 {
			s.bufferLength = length
		}
	}
}

// WithMaxLineLength bounds the bytes ReadLine keeps before giving up with
// InvalidStatus.
func WithMaxLineLength(length int) Option {
	return func(s *Socket) {
		if length > 0 {
			s.maxLineLength = length
		}
	}
}

func WithSyscalls(sys Syscalls) Option {
	return func(s *Socket) {
		s.sys = sys
	}
}

// Socket owns one connected, blocking file descriptor. It is not safe for
// concurrent use.
type Socket struct {
	fd            int
	closed        bool
	bufferLength  int
	maxLineLength int
	sys           Syscalls
}

func New(fd int, opts ...Option) *Socket {
	s := &Socket{
		fd:            fd,
		bufferLength:  DefaultBufferLength,
		maxLineLength: DefaultMaxLineLength,
		sys:           unixSyscalls{},
	}
	for _, opt := range opts {
		opt(s)
	}

	runtime.SetFinalizer(s, (*Socket).Deinitialize)
	return s
}

func (s *Socket) Fd() int {
	return s.fd
}

func (s *Socket) Closed() bool {
	return s.closed
}

func (s *Socket) read(p []byte) (int, error) {
	for {
		n, err := s.sys.Read(s.fd, p)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}

// ReadByte reads exactly one byte.
func (s *Socket) ReadByte() (byte, error) {
	if s.closed {
		return 0, newError(ReadFailed, unix.EBADF)
	}

	var b [1]byte
	n, err := s.read(b[:])
	if n <= 0 {
		return 0, newError(ReadFailed, err)
	}
	return b[0], nil
}

// Read returns exactly length bytes or fails with ReadFailed. A short buffer
// is never returned.
func (s *Socket) Read(length int) ([]byte, error) {
	if length <= 0 {
		return []byte{}, nil
	}
	if s.closed {
		return nil, newError(ReadFailed, unix.EBADF)
	}

	buf := make([]byte, length)
	read := 0
	for read < length {
		chunk := min(s.bufferLength, length-read)
		n, err := s.read(buf[read : read+chunk])
		if n <= 0 {
			return nil, newError(ReadFailed, err)
		}
		read += n
	}
	return buf, nil
}

// ReadLine reads up to and including the next LF. Bytes <= 13 (CR among them)
// are dropped, everything else is kept. A line longer than the maximum line
// length fails with InvalidStatus.
func (s *Socket) ReadLine() (string, error) {
	var line []byte
	for {
		b, err := s.ReadByte()
		if err != nil {
			return "", err
		}
		if b == '\n' {
			return string(line), nil
		}
		if b <= 13 {
			continue
		}
		if len(line) >= s.maxLineLength {
			return "", &Error{Kind: InvalidStatus, Reason: "request line exceeds " + strconv.Itoa(s.maxLineLength) + " bytes"}
		}
		line = append(line, b)
	}
}

// ReadHTTPRequest reads the request line and returns its space separated
// tokens: method, path and version, followed by any extra tokens.
func (s *Socket) ReadHTTPRequest() ([]string, error) {
	line, err := s.ReadLine()
	if err != nil {
		return nil, err
	}

	tokens := splitSpaces(line)
	if len(tokens) < 3 {
		return nil, &Error{Kind: InvalidStatus, Reason: "malformed request line " + quote(line)}
	}
	return tokens, nil
}

func splitSpaces(line string) []string {
	tokens := make([]string, 0, 3)
	for _, token := range strings.Split(line, " ") {
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func quote(line string) string {
	const limit = 64
	if len(line) > limit {
		line = line[:limit] + "..."
	}
	return `"` + line + `"`
}

// Write sends every byte of p, looping over partial writes. Writing to a
// closed socket is a no-op.
func (s *Socket) Write(p []byte) error {
	if s.closed {
		return nil
	}

	sent := 0
	for sent < len(p) {
		n, err := s.sys.Write(s.fd, p[sent:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if n <= 0 {
			return newError(WriteFailed, err)
		}
		sent += n
	}
	return nil
}

// SetReadTimeout bounds every blocking read. Zero disables the timeout.
func (s *Socket) SetReadTimeout(d time.Duration) error {
	if s.closed {
		return nil
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// CloseWrite sends FIN while leaving the read side open.
func (s *Socket) CloseWrite() error {
	if s.closed {
		return nil
	}
	return unix.Shutdown(s.fd, unix.SHUT_WR)
}

// Discard reads and drops up to limit pending bytes, stopping at the first
// failed or empty read. It returns the number of bytes dropped.
func (s *Socket) Discard(limit int) int {
	if s.closed {
		return 0
	}

	var buf [512]byte
	dropped := 0
	for dropped < limit {
		n, _ := s.read(buf[:min(len(buf), limit-dropped)])
		if n <= 0 {
			break
		}
		dropped += n
	}
	return dropped
}

// Close releases the descriptor. Further calls return nil.
func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	runtime.SetFinalizer(s, nil)
	return s.sys.Close(s.fd)
}

// Deinitialize releases the descriptor if Close was never reached.
func (s *Socket) Deinitialize() {
	if s.closed {
		return
	}
	s.closed = true
	s.sys.Close(s.fd)
}
