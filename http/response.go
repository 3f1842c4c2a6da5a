package http

// renderResponse produces the complete response bytes of route once the
// matching middleware has been folded in.
func renderResponse(route Route, middleware []StaticMiddleware, version string) []byte {
	status, headers := fold(route, middleware)
	body := route.Result.Body()

	size := len(version) + 64 + len(body)
	for _, h := range headers {
		size += len(h.Name) + len(h.Value) + 4
	}

	dst := make([]byte, 0, size)
	dst = appendStatusLine(dst, version, status)
	for _, h := range headers {
		dst = appendHeader(dst, h.Name, h.Value)
	}
	dst = appendContentLength(dst, len(body))
	dst = append(dst, crlf...)
	return append(dst, body...)
}

// renderNotFound is the minimal fallback for request lines without a route.
func renderNotFound(version string) []byte {
	dst := make([]byte, 0, len(version)+48)
	dst = appendStatusLine(dst, version, StatusNotFound)
	dst = appendContentLength(dst, 0)
	return append(dst, crlf...)
}

func appendContentLength(dst []byte, n int) []byte {
	dst = append(dst, headerContentLen...)
	dst = append(dst, headerSeparator...)
	dst = appendUint(dst, uint64(n))
	return append(dst, crlf...)
}
