package http

import (
	"strings"
	"testing"

	"github.com/freekieb7/destiny/test"
)

func TestRouterDeclaresRoutes(t *testing.T) {
	router := NewRouter("")
	router.GET("/", StringResult("home"), WithContentType(ContentTypeHTML))
	router.POST("/submit", StringResult(""), WithStatus(StatusNoContent))
	router.Any([]Method{MethodPut, MethodPatch}, "/item", StringResult("ok"))

	test.AssertEqual(t, DefaultVersion, router.Version)
	test.AssertEqual(t, 4, len(router.Routes))

	table, err := router.Build()
	test.AssertNoError(t, err)
	test.AssertEqual(t, 4, table.Len())

	test.AssertContains(t, lookup(t, table, MethodGet, ""), "Content-Type: text/html; charset=UTF-8\r\n")
	test.AssertTrue(t, strings.HasPrefix(lookup(t, table, MethodPost, "submit"), "HTTP/1.1 204 No Content\r\n"), "status option")
	test.AssertContains(t, lookup(t, table, MethodPut, "item"), "\r\n\r\nok")
	test.AssertContains(t, lookup(t, table, MethodPatch, "item"), "\r\n\r\nok")
}

func TestRouterGroupPrefixesPaths(t *testing.T) {
	router := NewRouter(DefaultVersion)
	router.Group("/api/", func(api *Router) {
		api.GET("/users", StringResult("[]"), WithContentType(ContentTypeJSON))
		api.Group("v2", func(v2 *Router) {
			v2.GET("", StringResult("v2"))
		})
	})

	paths := make([]string, 0, len(router.Routes))
	for _, route := range router.Routes {
		paths = append(paths, route.String())
	}
	test.AssertEqual(t, "GET /api/users,GET /api/v2", strings.Join(paths, ","))
}

func TestRouterMiddlewareAppliesToEarlierRoutes(t *testing.T) {
	router := NewRouter(DefaultVersion)
	router.GET("/a", StringResult("a"))
	router.Use(StaticMiddleware{AppliesHeaders: []Header{{Name: "Cache-Control", Value: "max-age=60"}}})
	router.GET("/b", StringResult("b"))

	table, err := router.Build()
	test.AssertNoError(t, err)

	test.AssertContains(t, lookup(t, table, MethodGet, "a"), "Cache-Control: max-age=60\r\n")
	test.AssertContains(t, lookup(t, table, MethodGet, "b"), "Cache-Control: max-age=60\r\n")
}

func TestRouterBuildOptions(t *testing.T) {
	router := NewRouter(DefaultVersion)
	router.GET("/x", StringResult("1"))
	router.GET("x", StringResult("2"))

	_, err := router.Build()
	test.AssertErrorIs(t, err, ErrDuplicateRoute)

	table, err := router.Build(WithConflictPolicy(ConflictOverwrite))
	test.AssertNoError(t, err)
	test.AssertTrue(t, strings.HasSuffix(lookup(t, table, MethodGet, "x"), "2"), "later route wins")
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		prefix, path, want string
	}{
		{"", "", ""},
		{"", "/a", "a"},
		{"/api", "", "api"},
		{"/api/", "/users", "api/users"},
		{"api", "users/", "api/users/"},
	}

	for _, tt := range tests {
		test.AssertEqual(t, tt.want, joinPath(tt.prefix, tt.path))
	}
}
