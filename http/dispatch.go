package http

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/freekieb7/destiny/net/socket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Conn is what the dispatcher needs from a connection. *socket.Socket
// implements it.
type Conn interface {
	ReadHTTPRequest() ([]string, error)
	Write(p []byte) error
}

type DispatcherOption func(d *Dispatcher)

func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMeterProvider(provider metric.MeterProvider) DispatcherOption {
	return func(d *Dispatcher) {
		d.meterProvider = provider
	}
}

// Dispatcher answers request lines from a Table.
type Dispatcher struct {
	table         *Table
	logger        *slog.Logger
	meterProvider metric.MeterProvider

	hits     metric.Int64Counter
	misses   metric.Int64Counter
	failures metric.Int64Counter
}

func NewDispatcher(table *Table, opts ...DispatcherOption) (*Dispatcher, error) {
	d := &Dispatcher{
		table:  table,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.meterProvider == nil {
		d.meterProvider = otel.GetMeterProvider()
	}

	meter := d.meterProvider.Meter(instrumentationName)

	var err error
	if d.hits, err = meter.Int64Counter("destiny.dispatch.hits",
		metric.WithDescription("Requests answered from the static table"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if d.misses, err = meter.Int64Counter("destiny.dispatch.misses",
		metric.WithDescription("Requests answered with the not found response"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if d.failures, err = meter.Int64Counter("destiny.dispatch.errors",
		metric.WithDescription("Connections aborted by a socket error"),
		metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}

	return d, nil
}

// Dispatch reads one request line from conn and writes the matching response,
// or the not found response. When the request line cannot be read nothing is
// written and the error is returned; the caller closes the connection.
func (d *Dispatcher) Dispatch(ctx context.Context, conn Conn) error {
	tokens, err := conn.ReadHTTPRequest()
	if err != nil {
		d.countError(ctx, err)
		return err
	}
	if len(tokens) < 3 {
		err := &socket.Error{Kind: socket.InvalidStatus, Reason: "request line has " + strconv.Itoa(len(tokens)) + " tokens"}
		d.countError(ctx, err)
		return err
	}

	key := KeyFromTokens(tokens[0], tokens[1], tokens[2])
	response, ok := d.table.Lookup(key)
	if ok {
		d.hits.Add(ctx, 1)
	} else {
		response = d.table.NotFound()
		d.misses.Add(ctx, 1)
		d.logger.DebugContext(ctx, "no static route", "method", tokens[0], "path", tokens[1])
	}

	if err := conn.Write(response); err != nil {
		d.countError(ctx, err)
		return err
	}
	return nil
}

func (d *Dispatcher) countError(ctx context.Context, err error) {
	kind := "other"
	switch {
	case errors.Is(err, socket.ReadFailed):
		kind = "read_failed"
	case errors.Is(err, socket.WriteFailed):
		kind = "write_failed"
	case errors.Is(err, socket.InvalidStatus):
		kind = "invalid_status"
	}
	d.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("error.kind", kind)))
}
