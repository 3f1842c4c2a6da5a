// Package admin serves operational endpoints next to the static server:
// liveness and a listing of the loaded table.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	nethttp "net/http"
	"time"

	"github.com/freekieb7/destiny/http"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouteInfo describes one table entry.
type RouteInfo struct {
	Key   string `json:"key"`
	Bytes int    `json:"bytes"`
}

type Summary struct {
	Version  string      `json:"version"`
	NotFound int         `json:"notFoundBytes"`
	Routes   []RouteInfo `json:"routes"`
}

func Summarize(table *http.Table) Summary {
	keys := table.Keys()
	summary := Summary{
		Version:  table.Version(),
		NotFound: len(table.NotFound()),
		Routes:   make([]RouteInfo, 0, len(keys)),
	}
	for _, key := range keys {
		response, _ := table.Lookup(key)
		summary.Routes = append(summary.Routes, RouteInfo{Key: key.String(), Bytes: len(response)})
	}
	return summary
}

// NewHandler returns the admin mux, instrumented with otelhttp.
func NewHandler(table *http.Table, logger *slog.Logger) nethttp.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := nethttp.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /routes", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(Summarize(table)); err != nil {
			logger.WarnContext(r.Context(), "failed to write route listing", "error", err)
		}
	})

	return otelhttp.NewHandler(mux, "admin")
}

// Server runs the admin handler until Shutdown.
type Server struct {
	server *nethttp.Server
	logger *slog.Logger
}

func NewServer(addr string, table *http.Table, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		server: &nethttp.Server{
			Addr:              addr,
			Handler:           NewHandler(table, logger),
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger: logger,
	}
}

// Serve accepts on listener. It returns nil once Shutdown was called.
func (s *Server) Serve(listener net.Listener) error {
	s.logger.Info("admin listening", "addr", listener.Addr().String())

	err := s.server.Serve(listener)
	if errors.Is(err, nethttp.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
