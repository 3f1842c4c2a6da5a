package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/freekieb7/destiny/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/freekieb7/destiny/http"

// ConflictPolicy decides what happens when two routes derive the same key,
// typically because their request lines only differ past KeyCapacity.
type ConflictPolicy uint8

const (
	ConflictFail ConflictPolicy = iota
	ConflictOverwrite
)

func ParseConflictPolicy(name string) (ConflictPolicy, error) {
	switch strings.ToLower(name) {
	case "", "fail":
		return ConflictFail, nil
	case "overwrite":
		return ConflictOverwrite, nil
	default:
		return 0, fmt.Errorf("http: unknown conflict policy %q", name)
	}
}

// BuildError lists every problem found while building a table. No table is
// produced when it is returned.
type BuildError struct {
	Violations validation.Violations
}

func (e *BuildError) Error() string {
	return "http: static table build failed: " + e.Violations.Error()
}

func (e *BuildError) Unwrap() []error {
	var errs []error
	for _, field := range e.Violations.Fields() {
		errs = append(errs, e.Violations.Errors[field]...)
	}
	return errs
}

type BuildOption func(cfg *buildConfig)

type buildConfig struct {
	conflict       ConflictPolicy
	notFound       *Route
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
}

func WithConflictPolicy(policy ConflictPolicy) BuildOption {
	return func(cfg *buildConfig) {
		cfg.conflict = policy
	}
}

// WithNotFound replaces the minimal 404 with a rendered route. Its path is
// ignored; middleware applies as for any other route, matching GET when the
// method is left empty.
func WithNotFound(route Route) BuildOption {
	return func(cfg *buildConfig) {
		if route.Method == "" {
			route.Method = MethodGet
		}
		cfg.notFound = &route
	}
}

func WithBuildLogger(logger *slog.Logger) BuildOption {
	return func(cfg *buildConfig) {
		cfg.logger = logger
	}
}

func WithTracerProvider(provider trace.TracerProvider) BuildOption {
	return func(cfg *buildConfig) {
		cfg.tracerProvider = provider
	}
}

// Table maps request-line keys to complete responses. It is never modified
// after construction and may be shared by any number of goroutines.
type Table struct {
	version   string
	responses map[RequestKey][]byte
	notFound  []byte
}

// NewTable wraps responses rendered ahead of time, e.g. by destinygen. The
// table takes ownership of the map. A nil notFound selects the minimal 404.
func NewTable(version string, responses map[RequestKey][]byte, notFound []byte) *Table {
	if responses == nil {
		responses = make(map[RequestKey][]byte)
	}
	if notFound == nil {
		notFound = renderNotFound(version)
	}
	return &Table{
		version:   version,
		responses: responses,
		notFound:  notFound,
	}
}

func Build(routes []Route, middleware []StaticMiddleware, version string, opts ...BuildOption) (*Table, error) {
	return BuildContext(context.Background(), routes, middleware, version, opts...)
}

// BuildContext validates the records, folds middleware into every route and
// renders the table. Any invalid record fails the whole build.
func BuildContext(ctx context.Context, routes []Route, middleware []StaticMiddleware, version string, opts ...BuildOption) (*Table, error) {
	cfg := buildConfig{
		conflict: ConflictFail,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}

	_, span := cfg.tracerProvider.Tracer(instrumentationName).Start(ctx, "static.build",
		trace.WithAttributes(
			attribute.Int("destiny.routes", len(routes)),
			attribute.Int("destiny.middleware", len(middleware)),
			attribute.String("destiny.version", version),
		))
	defer span.End()

	table, err := build(routes, middleware, version, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("destiny.entries", table.Len()))
	return table, nil
}

func build(routes []Route, middleware []StaticMiddleware, version string, cfg buildConfig) (*Table, error) {
	var violations validation.Violations
	violations.Merge("", validateVersion(version))
	for i, m := range middleware {
		violations.Merge(fmt.Sprintf("middleware[%d].", i), validateMiddleware(m))
	}
	for i, route := range routes {
		violations.Merge(fmt.Sprintf("routes[%d].", i), validateRoute(route))
	}
	if cfg.notFound != nil {
		violations.Merge("notFound.", validateRoute(*cfg.notFound))
	}
	if !violations.IsEmpty() {
		return nil, &BuildError{Violations: violations}
	}

	responses := make(map[RequestKey][]byte, len(routes))
	owners := make(map[RequestKey]int, len(routes))
	for i, route := range routes {
		key := route.Key(version)
		if prev, exists := owners[key]; exists {
			if cfg.conflict == ConflictFail {
				violations.Add(fmt.Sprintf("routes[%d]", i),
					fmt.Errorf("%w %q (also used by routes[%d])", ErrDuplicateRoute, key.String(), prev))
				continue
			}
			cfg.logger.Warn("route overwrites an earlier route with the same key",
				"key", key.String(), "route", i, "previous", prev)
		}

		owners[key] = i
		responses[key] = renderResponse(route, middleware, version)
	}
	if !violations.IsEmpty() {
		return nil, &BuildError{Violations: violations}
	}

	var notFound []byte
	if cfg.notFound != nil {
		notFound = renderResponse(*cfg.notFound, middleware, version)
	}

	cfg.logger.Debug("static table built", "entries", len(responses), "version", version)
	return NewTable(version, responses, notFound), nil
}

// Lookup returns the stored response for key. The returned slice must not be
// modified.
func (t *Table) Lookup(key RequestKey) ([]byte, bool) {
	response, ok := t.responses[key]
	return response, ok
}

func (t *Table) NotFound() []byte {
	return t.notFound
}

func (t *Table) Version() string {
	return t.version
}

func (t *Table) Len() int {
	return len(t.responses)
}

// Keys returns every key, sorted by request line.
func (t *Table) Keys() []RequestKey {
	keys := make([]RequestKey, 0, len(t.responses))
	for key := range t.responses {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b RequestKey) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}

// IsBuildError reports whether err came from a failed table build.
func IsBuildError(err error) bool {
	var buildErr *BuildError
	return errors.As(err, &buildErr)
}
