// Package config loads the JSON document that declares a server: where it
// listens, its routes and the static middleware folded into them.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/freekieb7/destiny/filesystem"
	"github.com/freekieb7/destiny/http"
	"github.com/freekieb7/destiny/net/socket"
	"github.com/freekieb7/destiny/validation"
)

const (
	EnvAddress      = "DESTINY_ADDRESS"
	EnvAdminAddress = "DESTINY_ADMIN_ADDRESS"
	EnvTelemetry    = "DESTINY_TELEMETRY"

	DefaultAddress     = "0.0.0.0:8080"
	DefaultServiceName = "destiny"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Server      Server       `json:"server"`
	Middleware  []Middleware `json:"middleware"`
	Routes      []Route      `json:"routes"`
	Directories []Directory  `json:"directories"`
	NotFound    *Route       `json:"notFound,omitempty"`

	// files resolves body files relative to the config file.
	files filesystem.Filesystem
}

type Server struct {
	Address      string    `json:"address"`
	Version      string    `json:"version"`
	BufferLength int       `json:"bufferLength"`
	ReadTimeout  Duration  `json:"readTimeout"`
	OnConflict   string    `json:"onConflict"`
	Admin        Admin     `json:"admin"`
	Telemetry    Telemetry `json:"telemetry"`
}

type Admin struct {
	Address string `json:"address"`
}

type Telemetry struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

type Middleware struct {
	Methods      []string          `json:"methods"`
	Statuses     []uint16          `json:"statuses"`
	ContentTypes []string          `json:"contentTypes"`
	Status       uint16            `json:"status"`
	Headers      map[string]string `json:"headers"`
}

type Route struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Status      uint16 `json:"status"`
	ContentType string `json:"contentType"`
	Charset     string `json:"charset"`
	Body        Body   `json:"body"`
}

// Directory serves every file below Path as a GET route under Prefix, with
// the content type taken from the file extension. A file named Index is also
// served at its directory's path.
type Directory struct {
	Path    string `json:"path"`
	Prefix  string `json:"prefix"`
	Index   string `json:"index"`
	Charset string `json:"charset"`
}

// Body holds exactly one of an inline text, base64 encoded bytes or a file
// path relative to the config file.
type Body struct {
	Text  *string `json:"text,omitempty"`
	Bytes []byte  `json:"bytes,omitempty"`
	File  string  `json:"file,omitempty"`
}

// Duration accepts "5s" style strings.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	if text == "" {
		*d = 0
		return nil
	}

	parsed, err := time.ParseDuration(text)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func Default() Config {
	return Config{
		Server: Server{
			Address:      DefaultAddress,
			Version:      http.DefaultVersion,
			BufferLength: socket.DefaultBufferLength,
			ReadTimeout:  Duration(5 * time.Second),
			OnConflict:   "fail",
			Telemetry: Telemetry{
				ServiceName: DefaultServiceName,
			},
		},
	}
}

// Load reads the config file name, applies environment overrides and
// validates the result.
func Load(name string) (*Config, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer file.Close()

	cfg, err := Parse(file, filepath.Dir(name))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", name, err)
	}
	return cfg, nil
}

// Parse decodes a config document on top of Default. Relative body files
// resolve against dir.
func Parse(r io.Reader, dir string) (*Config, error) {
	cfg := Default()
	cfg.files = filesystem.NewLocalFileSystem(dir)

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyEnv(lookup func(string) (string, bool)) error {
	if address, ok := lookup(EnvAddress); ok && address != "" {
		cfg.Server.Address = address
	}
	if address, ok := lookup(EnvAdminAddress); ok {
		cfg.Server.Admin.Address = address
	}
	if value, ok := lookup(EnvTelemetry); ok && value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTelemetry, err)
		}
		cfg.Server.Telemetry.Enabled = enabled
	}
	return nil
}

// Validate checks the server settings and the shape of every record. The
// records themselves are checked again, in full, when the table is built.
func (cfg *Config) Validate() error {
	var violations validation.Violations

	violations.Add("server.address", validation.Required("address", cfg.Server.Address))
	violations.Add("server.version", validation.Required("version", cfg.Server.Version))
	violations.Add("server.bufferLength", validation.Between("bufferLength", cfg.Server.BufferLength, 1, 1<<20))
	if cfg.Server.ReadTimeout < 0 {
		violations.Add("server.readTimeout", errors.New("readTimeout must not be negative"))
	}
	if _, err := http.ParseConflictPolicy(cfg.Server.OnConflict); err != nil {
		violations.Add("server.onConflict", err)
	}

	for i, m := range cfg.Middleware {
		for _, name := range m.ContentTypes {
			if _, err := http.ParseContentType(name); err != nil {
				violations.Add(fmt.Sprintf("middleware[%d].contentTypes", i), err)
			}
		}
	}
	for i, route := range cfg.Routes {
		violations.Merge(fmt.Sprintf("routes[%d].", i), route.validate())
	}
	for i, directory := range cfg.Directories {
		violations.Add(fmt.Sprintf("directories[%d].path", i), validation.Required("path", directory.Path))
	}
	if cfg.NotFound != nil {
		violations.Merge("notFound.", cfg.NotFound.validate())
	}

	if !violations.IsEmpty() {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, violations.Error())
	}
	return nil
}

func (route Route) validate() validation.Violations {
	var violations validation.Violations

	if route.ContentType != "" {
		if _, err := http.ParseContentType(route.ContentType); err != nil {
			violations.Add("contentType", err)
		}
	}

	set := 0
	if route.Body.Text != nil {
		set++
	}
	if route.Body.Bytes != nil {
		set++
	}
	if route.Body.File != "" {
		set++
	}
	if set != 1 {
		violations.Add("body", errors.New("exactly one of text, bytes or file is required"))
	}

	return violations
}

func (cfg *Config) ReadTimeout() time.Duration {
	return time.Duration(cfg.Server.ReadTimeout)
}

func (cfg *Config) ServiceName() string {
	if cfg.Server.Telemetry.ServiceName == "" {
		return DefaultServiceName
	}
	return cfg.Server.Telemetry.ServiceName
}

// HTTPRoutes converts the declared routes, reading body files from disk.
// Directory routes follow the explicit routes.
func (cfg *Config) HTTPRoutes() ([]http.Route, error) {
	routes := make([]http.Route, 0, len(cfg.Routes))
	for i, route := range cfg.Routes {
		converted, err := cfg.httpRoute(route)
		if err != nil {
			return nil, fmt.Errorf("config: routes[%d]: %w", i, err)
		}
		routes = append(routes, converted)
	}

	for i, directory := range cfg.Directories {
		directoryRoutes, err := cfg.directoryRoutes(directory)
		if err != nil {
			return nil, fmt.Errorf("config: directories[%d]: %w", i, err)
		}
		routes = append(routes, directoryRoutes...)
	}
	return routes, nil
}

func (cfg *Config) directoryRoutes(directory Directory) ([]http.Route, error) {
	files, err := cfg.fs().ListFiles(directory.Path)
	if err != nil {
		return nil, err
	}

	prefix := strings.Trim(directory.Prefix, "/")
	routes := make([]http.Route, 0, len(files))
	for _, file := range files {
		content, err := cfg.fs().ReadFile(path.Join(filepath.ToSlash(directory.Path), file))
		if err != nil {
			return nil, err
		}

		route := http.Route{
			Method:      http.MethodGet,
			Path:        path.Join(prefix, file),
			ContentType: http.ContentTypeForExtension(filesystem.GetFileExtension(file)),
			Charset:     directory.Charset,
			Result:      http.BytesResult(content),
		}
		routes = append(routes, route)

		if directory.Index != "" && path.Base(file) == directory.Index {
			index := route
			index.Path = path.Join(prefix, path.Dir(file))
			if index.Path == "." {
				index.Path = ""
			}
			routes = append(routes, index)
		}
	}
	return routes, nil
}

func (cfg *Config) fs() filesystem.Filesystem {
	if cfg.files == nil {
		cfg.files = filesystem.NewLocalFileSystem(".")
	}
	return cfg.files
}

func (cfg *Config) httpRoute(route Route) (http.Route, error) {
	contentType := http.ContentTypeText
	if route.ContentType != "" {
		parsed, err := http.ParseContentType(route.ContentType)
		if err != nil {
			return http.Route{}, err
		}
		contentType = parsed
	}

	result, err := cfg.result(route.Body)
	if err != nil {
		return http.Route{}, err
	}

	return http.Route{
		Method:      http.Method(route.Method),
		Path:        route.Path,
		Status:      route.Status,
		ContentType: contentType,
		Charset:     route.Charset,
		Result:      result,
	}, nil
}

func (cfg *Config) result(body Body) (http.Result, error) {
	switch {
	case body.Text != nil:
		return http.StringResult(*body.Text), nil
	case body.Bytes != nil:
		return http.BytesResult(body.Bytes), nil
	case body.File != "":
		data, err := cfg.fs().ReadFile(body.File)
		if err != nil {
			return http.Result{}, err
		}
		return http.BytesResult(data), nil
	default:
		return http.Result{}, http.ErrMissingResult
	}
}

// HTTPMiddleware converts the declared middleware. Headers given as a JSON
// object are ordered by name.
func (cfg *Config) HTTPMiddleware() ([]http.StaticMiddleware, error) {
	middleware := make([]http.StaticMiddleware, 0, len(cfg.Middleware))
	for i, m := range cfg.Middleware {
		converted := http.StaticMiddleware{
			AppliesToStatuses: m.Statuses,
			AppliesStatus:     m.Status,
			AppliesHeaders:    http.HeadersFromMap(m.Headers),
		}
		for _, method := range m.Methods {
			converted.AppliesToMethods = append(converted.AppliesToMethods, http.Method(method))
		}
		for _, name := range m.ContentTypes {
			contentType, err := http.ParseContentType(name)
			if err != nil {
				return nil, fmt.Errorf("config: middleware[%d]: %w", i, err)
			}
			converted.AppliesToContentTypes = append(converted.AppliesToContentTypes, contentType)
		}
		middleware = append(middleware, converted)
	}
	return middleware, nil
}

// BuildOptions returns the table options implied by the server settings.
func (cfg *Config) BuildOptions() ([]http.BuildOption, error) {
	policy, err := http.ParseConflictPolicy(cfg.Server.OnConflict)
	if err != nil {
		return nil, err
	}

	opts := []http.BuildOption{http.WithConflictPolicy(policy)}
	if cfg.NotFound != nil {
		route, err := cfg.httpRoute(*cfg.NotFound)
		if err != nil {
			return nil, fmt.Errorf("config: notFound: %w", err)
		}
		opts = append(opts, http.WithNotFound(route))
	}
	return opts, nil
}

// Records converts everything needed to build a table.
func (cfg *Config) Records() ([]http.Route, []http.StaticMiddleware, []http.BuildOption, error) {
	routes, err := cfg.HTTPRoutes()
	if err != nil {
		return nil, nil, nil, err
	}
	middleware, err := cfg.HTTPMiddleware()
	if err != nil {
		return nil, nil, nil, err
	}
	opts, err := cfg.BuildOptions()
	if err != nil {
		return nil, nil, nil, err
	}
	return routes, middleware, opts, nil
}
