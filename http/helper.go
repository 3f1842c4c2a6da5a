package http

import "strings"

// appendUint appends the decimal form of n without an intermediate string.
func appendUint(dst []byte, n uint64) []byte {
	if n == 0 {
		return append(dst, '0')
	}

	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = '0' + byte(n%10)
		n /= 10
	}

	return append(dst, buf[i:]...)
}

func appendHeader(dst []byte, name, value string) []byte {
	dst = append(dst, name...)
	dst = append(dst, headerSeparator...)
	dst = append(dst, value...)
	return append(dst, crlf...)
}

// trimPath drops a single leading slash; routes are stored rooted at "/".
func trimPath(path string) string {
	return strings.TrimPrefix(path, "/")
}
