package http

import "strings"

// Router collects route and middleware records declared in code and builds
// them into a Table.
type Router struct {
	Version    string
	Routes     []Route
	Middleware []StaticMiddleware

	prefix string
}

func NewRouter(version string) *Router {
	if version == "" {
		version = DefaultVersion
	}

	return &Router{
		Version:    version,
		Routes:     make([]Route, 0),
		Middleware: make([]StaticMiddleware, 0),
	}
}

func (router *Router) GET(path string, result Result, opts ...RouteOption) {
	router.Any([]Method{MethodGet}, path, result, opts...)
}

func (router *Router) HEAD(path string, result Result, opts ...RouteOption) {
	router.Any([]Method{MethodHead}, path, result, opts...)
}

func (router *Router) POST(path string, result Result, opts ...RouteOption) {
	router.Any([]Method{MethodPost}, path, result, opts...)
}

func (router *Router) PUT(path string, result Result, opts ...RouteOption) {
	router.Any([]Method{MethodPut}, path, result, opts...)
}

func (router *Router) PATCH(path string, result Result, opts ...RouteOption) {
	router.Any([]Method{MethodPatch}, path, result, opts...)
}

func (router *Router) DELETE(path string, result Result, opts ...RouteOption) {
	router.Any([]Method{MethodDelete}, path, result, opts...)
}

func (router *Router) OPTIONS(path string, result Result, opts ...RouteOption) {
	router.Any([]Method{MethodOptions}, path, result, opts...)
}

// Any declares the same static response for each method.
func (router *Router) Any(methods []Method, path string, result Result, opts ...RouteOption) {
	for _, method := range methods {
		route := Route{
			Method: method,
			Path:   path,
			Result: result,
		}
		for _, opt := range opts {
			opt(&route)
		}
		router.Handle(route)
	}
}

// Handle appends a fully specified route.
func (router *Router) Handle(route Route) {
	route.Path = joinPath(router.prefix, route.Path)
	router.Routes = append(router.Routes, route)
}

// Group declares routes under a common path prefix.
func (router *Router) Group(prefix string, groupFunc func(group *Router)) {
	group := &Router{
		Version: router.Version,
		prefix:  joinPath(router.prefix, prefix),
	}

	groupFunc(group)

	router.Routes = append(router.Routes, group.Routes...)
	router.Middleware = append(router.Middleware, group.Middleware...)
}

// Use appends middleware; it applies to every route regardless of when the
// route was declared.
func (router *Router) Use(middleware ...StaticMiddleware) {
	router.Middleware = append(router.Middleware, middleware...)
}

func (router *Router) Build(opts ...BuildOption) (*Table, error) {
	return Build(router.Routes, router.Middleware, router.Version, opts...)
}

func joinPath(prefix, path string) string {
	prefix = strings.TrimSuffix(trimPath(prefix), "/")
	path = trimPath(path)
	switch {
	case prefix == "":
		return path
	case path == "":
		return prefix
	default:
		return prefix + "/" + path
	}
}
