package http

import "bytes"

// KeyCapacity is the fixed width of a RequestKey.
const KeyCapacity = 32

// RequestKey holds the ASCII request line "METHOD /path VERSION", truncated to
// KeyCapacity bytes or zero padded up to it. Request lines that only differ
// past the capacity map to the same key.
type RequestKey [KeyCapacity]byte

// NewRequestKey derives the key a route with path (no leading slash) is
// stored under.
func NewRequestKey(method Method, path, version string) RequestKey {
	var key RequestKey
	w := keyWriter{key: &key}
	w.writeString(string(method))
	w.writeString(" /")
	w.writeString(path)
	w.writeByte(' ')
	w.writeString(version)
	return key
}

// KeyFromTokens derives the key of a received request line from its method,
// path and version tokens.
func KeyFromTokens(method, path, version string) RequestKey {
	var key RequestKey
	w := keyWriter{key: &key}
	w.writeString(method)
	w.writeByte(' ')
	w.writeString(path)
	w.writeByte(' ')
	w.writeString(version)
	return key
}

// KeyFromString stores a request line as rendered by String, truncating or
// padding it like every other key.
func KeyFromString(line string) RequestKey {
	var key RequestKey
	copy(key[:], line)
	return key
}

func (key RequestKey) String() string {
	n := bytes.IndexByte(key[:], 0)
	if n < 0 {
		n = KeyCapacity
	}
	return string(key[:n])
}

type keyWriter struct {
	key *RequestKey
	n   int
}

func (w *keyWriter) writeString(s string) {
	w.n += copy(w.key[w.n:], s)
}

func (w *keyWriter) writeByte(b byte) {
	if w.n < KeyCapacity {
		w.key[w.n] = b
		w.n++
	}
}
