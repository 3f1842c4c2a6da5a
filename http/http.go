package http

const (
	DefaultVersion = "HTTP/1.1"
	DefaultCharset = "UTF-8"
)

type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodConnect Method = "CONNECT"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
)

var methods = []Method{
	MethodGet,
	MethodHead,
	MethodPost,
	MethodPut,
	MethodPatch,
	MethodDelete,
	MethodConnect,
	MethodOptions,
	MethodTrace,
}

func (m Method) String() string {
	return string(m)
}

var (
	crlf               = []byte("\r\n")
	headerSeparator    = []byte(": ")
	headerContentType  = "Content-Type"
	headerContentLen   = "Content-Length"
	charsetParamPrefix = "; charset="
)

type Header struct {
	Name  string
	Value string
}
