package http

import (
	"fmt"
	"slices"
)

type ResultKind uint8

const (
	ResultNone ResultKind = iota
	ResultString
	ResultBytes
	ResultDynamic
)

func (k ResultKind) String() string {
	switch k {
	case ResultString:
		return "string"
	case ResultBytes:
		return "bytes"
	case ResultDynamic:
		return "dynamic"
	default:
		return "none"
	}
}

// Result is the body a route answers with. Only the string and bytes variants
// can be rendered ahead of time.
type Result struct {
	kind  ResultKind
	text  string
	bytes []byte
}

func StringResult(text string) Result {
	return Result{kind: ResultString, text: text}
}

func BytesResult(b []byte) Result {
	return Result{kind: ResultBytes, bytes: slices.Clone(b)}
}

// DynamicResult marks a route whose body is computed per request. The static
// table refuses such routes.
func DynamicResult() Result {
	return Result{kind: ResultDynamic}
}

func (r Result) Kind() ResultKind {
	return r.kind
}

func (r Result) Static() bool {
	return r.kind == ResultString || r.kind == ResultBytes
}

// Body returns the bytes written after the header block.
func (r Result) Body() []byte {
	switch r.kind {
	case ResultString:
		return []byte(r.text)
	case ResultBytes:
		return r.bytes
	default:
		return nil
	}
}

type Route struct {
	Method      Method
	Path        string
	Status      uint16 // 0 means StatusOK
	ContentType ContentType
	Charset     string
	Result      Result
}

func (route Route) EffectiveStatus() uint16 {
	if route.Status == 0 {
		return StatusOK
	}
	return route.Status
}

func (route Route) Key(version string) RequestKey {
	return NewRequestKey(route.Method, trimPath(route.Path), version)
}

func (route Route) String() string {
	return fmt.Sprintf("%s /%s", route.Method, trimPath(route.Path))
}

type RouteOption func(route *Route)

func WithStatus(status uint16) RouteOption {
	return func(route *Route) {
		route.Status = status
	}
}

func WithContentType(contentType ContentType) RouteOption {
	return func(route *Route) {
		route.ContentType = contentType
	}
}

func WithCharset(charset string) RouteOption {
	return func(route *Route) {
		route.Charset = charset
	}
}
