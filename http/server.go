package http

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/freekieb7/destiny/net/socket"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

const (
	// lingerTimeout bounds how long unread request bytes are drained after
	// the response, so closing does not reset the connection.
	lingerTimeout = 250 * time.Millisecond
	lingerLimit   = 16 * 1024
)

var ErrServerClosed = errors.New("http: server closed")

type ServerOption func(s *Server)

// WithReadTimeout bounds each blocking read of a connection. Zero, the
// default, waits forever.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.readTimeout = d
	}
}

func WithBufferLength(length int) ServerOption {
	return func(s *Server) {
		s.bufferLength = length
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithDispatcherOptions(opts ...DispatcherOption) ServerOption {
	return func(s *Server) {
		s.dispatcherOpts = append(s.dispatcherOpts, opts...)
	}
}

// Server accepts connections and answers one request per connection from a
// static Table.
type Server struct {
	Name string

	dispatcher     *Dispatcher
	dispatcherOpts []DispatcherOption
	logger         *slog.Logger
	readTimeout    time.Duration
	bufferLength   int

	mu       sync.Mutex
	listener *socket.Listener
	active   map[*socket.Socket]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func NewServer(name string, table *Table, opts ...ServerOption) (*Server, error) {
	s := &Server{
		Name:         name,
		logger:       slog.Default(),
		bufferLength: socket.DefaultBufferLength,
		active:       make(map[*socket.Socket]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	dispatcherOpts := append([]DispatcherOption{WithDispatchLogger(s.logger)}, s.dispatcherOpts...)
	dispatcher, err := NewDispatcher(table, dispatcherOpts...)
	if err != nil {
		return nil, err
	}
	s.dispatcher = dispatcher

	return s, nil
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := socket.Listen(addr, socket.WithBufferLength(s.bufferLength))
	if err != nil {
		return err
	}

	return s.Serve(ctx, listener)
}

// Serve accepts connections until the listener is closed by Shutdown. It
// takes ownership of listener.
func (s *Server) Serve(ctx context.Context, listener *socket.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return ErrServerClosed
	}
	s.listener = listener
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "listening", "server", s.Name, "addr", listener.Addr().String())

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 5 * time.Millisecond
	retry.MaxInterval = time.Second
	retry.MaxElapsedTime = 0

	for {
		sock, err := listener.Accept()
		if err != nil {
			if errors.Is(err, socket.ErrListenerClosed) {
				return ErrServerClosed
			}

			delay := retry.NextBackOff()
			s.logger.ErrorContext(ctx, "failed to accept connection", "error", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		retry.Reset()

		if !s.track(sock) {
			sock.Close()
			return ErrServerClosed
		}

		go func() {
			defer s.wg.Done()
			s.serve(ctx, sock)
			s.untrack(sock)
			sock.Close()
		}()
	}
}

// ServeConn dispatches a single request and always closes sock.
func (s *Server) ServeConn(ctx context.Context, sock *socket.Socket) {
	defer sock.Close()
	s.serve(ctx, sock)
}

func (s *Server) serve(ctx context.Context, sock *socket.Socket) {
	if s.readTimeout > 0 {
		if err := sock.SetReadTimeout(s.readTimeout); err != nil {
			s.logger.WarnContext(ctx, "failed to set read timeout", "error", err)
		}
	}

	logger := s.logger
	if logger.Enabled(ctx, slog.LevelDebug) {
		logger = logger.With("conn", uuid.NewString(), "fd", sock.Fd())
	}

	if err := s.dispatcher.Dispatch(ctx, sock); err != nil {
		logger.DebugContext(ctx, "connection aborted", "error", err)
		return
	}
	logger.DebugContext(ctx, "connection served")

	s.linger(sock)
}

// linger half-closes the connection and drains what the client may still be
// sending (headers we never read).
func (s *Server) linger(sock *socket.Socket) {
	if err := sock.CloseWrite(); err != nil {
		return
	}
	if err := sock.SetReadTimeout(lingerTimeout); err != nil {
		return
	}
	sock.Discard(lingerLimit)
}

func (s *Server) track(sock *socket.Socket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.active[sock] = struct{}{}
	s.wg.Add(1)
	return true
}

// untrack must run before sock is closed so Shutdown never touches a
// descriptor number that was already released.
func (s *Server) untrack(sock *socket.Socket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sock)
}

// Shutdown stops accepting, then waits for in-flight connections. When ctx
// ends first, blocked connections are woken with shutdown(2) so their
// handlers release the descriptors, and ctx.Err() is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	for sock := range s.active {
		unix.Shutdown(sock.Fd(), unix.SHUT_RDWR)
	}
	s.mu.Unlock()

	<-done
	return ctx.Err()
}
