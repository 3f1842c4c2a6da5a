package http

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	nethttp "net/http"
	"strings"
	"testing"

	"github.com/freekieb7/destiny/test"
)

func lookup(t *testing.T, table *Table, method Method, path string) string {
	t.Helper()

	response, ok := table.Lookup(NewRequestKey(method, path, table.Version()))
	if !ok {
		t.Fatalf("no response for %s /%s", method, path)
	}
	return string(response)
}

func TestBuildRendersStaticRoute(t *testing.T) {
	routes := []Route{{
		Method:      MethodGet,
		Path:        "test",
		ContentType: ContentTypeText,
		Charset:     "UTF-8",
		Result:      StringResult("HlloWRLD"),
	}}

	table, err := Build(routes, nil, "HTTP/1.1")
	test.AssertNoError(t, err)

	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"Content-Length: 8\r\n" +
		"\r\n" +
		"HlloWRLD"
	test.AssertEqual(t, want, lookup(t, table, MethodGet, "test"))

	// The rendered bytes are a valid HTTP/1.1 response.
	res, err := nethttp.ReadResponse(bufio.NewReader(strings.NewReader(want)), nil)
	test.AssertNoError(t, err)
	body, _ := io.ReadAll(res.Body)
	test.AssertEqual(t, 200, res.StatusCode)
	test.AssertEqual(t, int64(8), res.ContentLength)
	test.AssertEqual(t, "HlloWRLD", string(body))
}

func TestBuildBytesResult(t *testing.T) {
	body := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	table, err := Build([]Route{{
		Method:      MethodGet,
		Path:        "/logo.png",
		ContentType: ContentTypePNG,
		Result:      BytesResult(body),
	}}, nil, "HTTP/1.1")
	test.AssertNoError(t, err)

	response := lookup(t, table, MethodGet, "logo.png")
	test.AssertContains(t, response, "Content-Type: image/png\r\n")
	test.AssertContains(t, response, "Content-Length: 6\r\n")
	test.AssertTrue(t, strings.HasSuffix(response, "\r\n\r\n"+string(body)), "body must follow the header block")
}

func TestBuildStatusAndCharset(t *testing.T) {
	table, err := Build([]Route{{
		Method:      MethodPost,
		Path:        "created",
		Status:      StatusCreated,
		ContentType: ContentTypeJSON,
		Charset:     "ISO-8859-1",
		Result:      StringResult(`{"ok":true}`),
	}}, nil, "HTTP/1.0")
	test.AssertNoError(t, err)

	response := lookup(t, table, MethodPost, "created")
	test.AssertTrue(t, strings.HasPrefix(response, "HTTP/1.0 201 Created\r\n"), response)
	test.AssertContains(t, response, "Content-Type: application/json; charset=ISO-8859-1\r\n")
}

func TestMiddlewareAppliesByMethod(t *testing.T) {
	middleware := []StaticMiddleware{{
		AppliesToMethods: []Method{MethodGet},
		AppliesHeaders:   []Header{{Name: "X-Test", Value: "1"}},
	}}
	routes := []Route{
		{Method: MethodGet, Path: "a", Result: StringResult("a")},
		{Method: MethodPost, Path: "a", Result: StringResult("a")},
	}

	table, err := Build(routes, middleware, "HTTP/1.1")
	test.AssertNoError(t, err)

	test.AssertContains(t, lookup(t, table, MethodGet, "a"), "X-Test: 1\r\n")
	test.AssertNotContains(t, lookup(t, table, MethodPost, "a"), "X-Test")
}

func TestMiddlewareAppliesByStatusAndContentType(t *testing.T) {
	middleware := []StaticMiddleware{
		{AppliesToStatuses: []uint16{StatusNotFound}, AppliesHeaders: []Header{{Name: "X-Missing", Value: "yes"}}},
		{AppliesToContentTypes: []ContentType{ContentTypeHTML}, AppliesHeaders: []Header{{Name: "X-Html", Value: "yes"}}},
	}
	routes := []Route{
		{Method: MethodGet, Path: "gone", Status: StatusNotFound, Result: StringResult("")},
		{Method: MethodGet, Path: "page", ContentType: ContentTypeHTML, Result: StringResult("<p>")},
	}

	table, err := Build(routes, middleware, "HTTP/1.1")
	test.AssertNoError(t, err)

	gone := lookup(t, table, MethodGet, "gone")
	test.AssertContains(t, gone, "X-Missing: yes\r\n")
	test.AssertNotContains(t, gone, "X-Html")

	page := lookup(t, table, MethodGet, "page")
	test.AssertContains(t, page, "X-Html: yes\r\n")
	test.AssertNotContains(t, page, "X-Missing")
}

func TestMiddlewareLaterStatusWins(t *testing.T) {
	middleware := []StaticMiddleware{
		{AppliesStatus: StatusAccepted},
		{AppliesStatus: StatusTeapot},
	}
	table, err := Build([]Route{{Method: MethodGet, Path: "", Result: StringResult("x")}}, middleware, "HTTP/1.1")
	test.AssertNoError(t, err)

	test.AssertTrue(t, strings.HasPrefix(lookup(t, table, MethodGet, ""), "HTTP/1.1 418 I'm a teapot\r\n"), "later status must win")
}

func TestMiddlewareSelectionUsesDeclaredStatus(t *testing.T) {
	middleware := []StaticMiddleware{
		{AppliesStatus: StatusNotFound},
		// Selected against 200, so it still applies after the override above.
		{AppliesToStatuses: []uint16{StatusOK}, AppliesHeaders: []Header{{Name: "X-Ok", Value: "1"}}},
		{AppliesToStatuses: []uint16{StatusNotFound}, AppliesHeaders: []Header{{Name: "X-NotFound", Value: "1"}}},
	}
	table, err := Build([]Route{{Method: MethodGet, Path: "x", Result: StringResult("")}}, middleware, "HTTP/1.1")
	test.AssertNoError(t, err)

	response := lookup(t, table, MethodGet, "x")
	test.AssertTrue(t, strings.HasPrefix(response, "HTTP/1.1 404 Not Found\r\n"), response)
	test.AssertContains(t, response, "X-Ok: 1\r\n")
	test.AssertNotContains(t, response, "X-NotFound")
}

func TestMiddlewareHeaderFoldIsDeterministic(t *testing.T) {
	middleware := []StaticMiddleware{
		{AppliesHeaders: HeadersFromMap(map[string]string{"X-B": "1", "X-A": "1", "Server": "one"})},
		{AppliesHeaders: []Header{{Name: "server", Value: "two"}, {Name: "Content-Type", Value: "text/x-custom"}}},
	}
	routes := []Route{{Method: MethodGet, Path: "x", Result: StringResult("body")}}

	var first []byte
	for i := 0; i < 20; i++ {
		table, err := Build(routes, middleware, "HTTP/1.1")
		test.AssertNoError(t, err)

		response, _ := table.Lookup(NewRequestKey(MethodGet, "x", "HTTP/1.1"))
		if first == nil {
			first = response
			continue
		}
		test.AssertBytes(t, first, response)
	}

	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/x-custom\r\n" +
		"Server: two\r\n" +
		"X-A: 1\r\n" +
		"X-B: 1\r\n" +
		"Content-Length: 4\r\n" +
		"\r\n" +
		"body"
	test.AssertEqual(t, want, string(first))
}

func TestBuildRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name       string
		routes     []Route
		middleware []StaticMiddleware
		version    string
		target     error
	}{
		{
			name:    "dynamic result",
			routes:  []Route{{Method: MethodGet, Path: "x", Result: DynamicResult()}},
			version: "HTTP/1.1",
			target:  ErrDynamicResult,
		},
		{
			name:    "missing result",
			routes:  []Route{{Method: MethodGet, Path: "x"}},
			version: "HTTP/1.1",
			target:  ErrMissingResult,
		},
		{
			name:    "unknown method",
			routes:  []Route{{Method: "BREW", Path: "x", Result: StringResult("")}},
			version: "HTTP/1.1",
			target:  ErrUnknownMethod,
		},
		{
			name:    "unknown content type",
			routes:  []Route{{Method: MethodGet, Path: "x", ContentType: 200, Result: StringResult("")}},
			version: "HTTP/1.1",
			target:  ErrUnknownMimeType,
		},
		{
			name:       "content length is reserved",
			routes:     []Route{{Method: MethodGet, Path: "x", Result: StringResult("")}},
			middleware: []StaticMiddleware{{AppliesHeaders: []Header{{Name: "content-length", Value: "9"}}}},
			version:    "HTTP/1.1",
			target:     ErrReservedHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Build(tt.routes, tt.middleware, tt.version)
			test.AssertTrue(t, table == nil, "no table on failure")
			test.AssertTrue(t, IsBuildError(err), "expected a build error")
			test.AssertErrorIs(t, err, tt.target)
		})
	}
}

func TestBuildRejectsFramingBreakers(t *testing.T) {
	tests := []struct {
		name       string
		routes     []Route
		middleware []StaticMiddleware
		version    string
	}{
		{"empty version", []Route{{Method: MethodGet, Result: StringResult("")}}, nil, ""},
		{"space in path", []Route{{Method: MethodGet, Path: "a b", Result: StringResult("")}}, nil, "HTTP/1.1"},
		{"status out of range", []Route{{Method: MethodGet, Status: 42, Result: StringResult("")}}, nil, "HTTP/1.1"},
		{"header injection", []Route{{Method: MethodGet, Result: StringResult("")}}, []StaticMiddleware{{AppliesHeaders: []Header{{Name: "X", Value: "a\r\nB: c"}}}}, "HTTP/1.1"},
		{"bad header name", []Route{{Method: MethodGet, Result: StringResult("")}}, []StaticMiddleware{{AppliesHeaders: []Header{{Name: "X Y", Value: "a"}}}}, "HTTP/1.1"},
		{"bad middleware status", []Route{{Method: MethodGet, Result: StringResult("")}}, []StaticMiddleware{{AppliesStatus: 1000}}, "HTTP/1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.routes, tt.middleware, tt.version)
			test.AssertTrue(t, IsBuildError(err), "expected a build error")
		})
	}
}

func TestBuildReportsEveryViolation(t *testing.T) {
	_, err := Build([]Route{
		{Method: MethodGet, Path: "a", Result: DynamicResult()},
		{Method: "BREW", Path: "b", Result: StringResult("")},
	}, nil, "HTTP/1.1")

	var buildErr *BuildError
	test.AssertTrue(t, errors.As(err, &buildErr), "expected *BuildError")
	test.AssertEqual(t, 2, len(buildErr.Violations.Fields()))
	test.AssertContains(t, err.Error(), "routes[0].result")
	test.AssertContains(t, err.Error(), "routes[1].method")
}

func TestBuildDuplicateKeyFailsByDefault(t *testing.T) {
	long := strings.Repeat("x", KeyCapacity)
	routes := []Route{
		{Method: MethodGet, Path: long + "1", Result: StringResult("first")},
		{Method: MethodGet, Path: long + "2", Result: StringResult("second")},
	}

	_, err := Build(routes, nil, "HTTP/1.1")
	test.AssertErrorIs(t, err, ErrDuplicateRoute)
}

func TestBuildDuplicateKeyOverwrite(t *testing.T) {
	routes := []Route{
		{Method: MethodGet, Path: "same", Result: StringResult("first")},
		{Method: MethodGet, Path: "/same", Result: StringResult("second")},
	}

	table, err := Build(routes, nil, "HTTP/1.1", WithConflictPolicy(ConflictOverwrite))
	test.AssertNoError(t, err)
	test.AssertEqual(t, 1, table.Len())
	test.AssertTrue(t, strings.HasSuffix(lookup(t, table, MethodGet, "same"), "second"), "later route must win")
}

func TestBuildNotFound(t *testing.T) {
	table, err := Build(nil, nil, "HTTP/1.1")
	test.AssertNoError(t, err)
	test.AssertEqual(t, "HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n", string(table.NotFound()))

	custom, err := Build(nil, []StaticMiddleware{{AppliesHeaders: []Header{{Name: "Server", Value: "destiny"}}}}, "HTTP/1.1",
		WithNotFound(Route{Status: StatusNotFound, ContentType: ContentTypeHTML, Result: StringResult("<h1>gone</h1>")}))
	test.AssertNoError(t, err)

	notFound := string(custom.NotFound())
	test.AssertTrue(t, strings.HasPrefix(notFound, "HTTP/1.1 404 Not Found\r\n"), notFound)
	test.AssertContains(t, notFound, "Server: destiny\r\n")
	test.AssertTrue(t, strings.HasSuffix(notFound, "<h1>gone</h1>"), notFound)
}

func TestTableKeysSorted(t *testing.T) {
	table, err := Build([]Route{
		{Method: MethodGet, Path: "b", Result: StringResult("")},
		{Method: MethodGet, Path: "a", Result: StringResult("")},
		{Method: MethodDelete, Path: "a", Result: StringResult("")},
	}, nil, "HTTP/1.1")
	test.AssertNoError(t, err)

	var got []string
	for _, key := range table.Keys() {
		got = append(got, key.String())
	}
	test.AssertEqual(t, "DELETE /a HTTP/1.1,GET /a HTTP/1.1,GET /b HTTP/1.1", strings.Join(got, ","))
}

func TestNewTableDefaults(t *testing.T) {
	table := NewTable("HTTP/1.1", nil, nil)
	test.AssertEqual(t, 0, table.Len())
	test.AssertTrue(t, bytes.HasPrefix(table.NotFound(), []byte("HTTP/1.1 404 Not Found")), "default not found")
}

func TestParseConflictPolicy(t *testing.T) {
	policy, err := ParseConflictPolicy("overwrite")
	test.AssertNoError(t, err)
	test.AssertEqual(t, ConflictOverwrite, policy)

	policy, err = ParseConflictPolicy("")
	test.AssertNoError(t, err)
	test.AssertEqual(t, ConflictFail, policy)

	_, err = ParseConflictPolicy("ignore")
	test.AssertTrue(t, err != nil, "unknown policy")
}

func BenchmarkBuild(b *testing.B) {
	router := NewRouter(DefaultVersion)
	router.Use(StaticMiddleware{AppliesHeaders: []Header{{Name: "Server", Value: "destiny"}}})
	for i := 0; i < 100; i++ {
		router.GET("/route/"+strings.Repeat("x", i%10)+string(rune('a'+i%26))+string(rune('a'+i/26)), StringResult("hello"))
	}

	for b.Loop() {
		if _, err := router.Build(); err != nil {
			b.Fatal(err)
		}
	}
}
