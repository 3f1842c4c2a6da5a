package http

import (
	"fmt"
	"strings"
)

type ContentType uint8

const (
	ContentTypeText ContentType = iota
	ContentTypeHTML
	ContentTypeCSS
	ContentTypeJavaScript
	ContentTypeJSON
	ContentTypeXML
	ContentTypeCSV
	ContentTypeMarkdown
	ContentTypeSVG
	ContentTypePNG
	ContentTypeJPEG
	ContentTypeGIF
	ContentTypeWebP
	ContentTypeICO
	ContentTypePDF
	ContentTypeWASM
	ContentTypeWOFF2
	ContentTypeOctetStream

	contentTypeCount
)

var contentTypes = [contentTypeCount]struct {
	name    string
	mime    string
	textual bool
}{
	ContentTypeText:        {"text", "text/plain", true},
	ContentTypeHTML:        {"html", "text/html", true},
	ContentTypeCSS:         {"css", "text/css", true},
	ContentTypeJavaScript:  {"javascript", "text/javascript", true},
	ContentTypeJSON:        {"json", "application/json", true},
	ContentTypeXML:         {"xml", "application/xml", true},
	ContentTypeCSV:         {"csv", "text/csv", true},
	ContentTypeMarkdown:    {"markdown", "text/markdown", true},
	ContentTypeSVG:         {"svg", "image/svg+xml", true},
	ContentTypePNG:         {"png", "image/png", false},
	ContentTypeJPEG:        {"jpeg", "image/jpeg", false},
	ContentTypeGIF:         {"gif", "image/gif", false},
	ContentTypeWebP:        {"webp", "image/webp", false},
	ContentTypeICO:         {"ico", "image/x-icon", false},
	ContentTypePDF:         {"pdf", "application/pdf", false},
	ContentTypeWASM:        {"wasm", "application/wasm", false},
	ContentTypeWOFF2:       {"woff2", "font/woff2", false},
	ContentTypeOctetStream: {"octetStream", "application/octet-stream", false},
}

var extensions = map[string]ContentType{
	"txt":   ContentTypeText,
	"text":  ContentTypeText,
	"html":  ContentTypeHTML,
	"htm":   ContentTypeHTML,
	"css":   ContentTypeCSS,
	"js":    ContentTypeJavaScript,
	"mjs":   ContentTypeJavaScript,
	"json":  ContentTypeJSON,
	"xml":   ContentTypeXML,
	"csv":   ContentTypeCSV,
	"md":    ContentTypeMarkdown,
	"svg":   ContentTypeSVG,
	"png":   ContentTypePNG,
	"jpg":   ContentTypeJPEG,
	"jpeg":  ContentTypeJPEG,
	"gif":   ContentTypeGIF,
	"webp":  ContentTypeWebP,
	"ico":   ContentTypeICO,
	"pdf":   ContentTypePDF,
	"wasm":  ContentTypeWASM,
	"woff2": ContentTypeWOFF2,
}

// ContentTypeForExtension maps a lower case file extension without the dot
// to a content type, falling back to ContentTypeOctetStream.
func ContentTypeForExtension(ext string) ContentType {
	if contentType, ok := extensions[ext]; ok {
		return contentType
	}
	return ContentTypeOctetStream
}

func ParseContentType(name string) (ContentType, error) {
	for i, ct := range contentTypes {
		if strings.EqualFold(ct.name, name) {
			return ContentType(i), nil
		}
	}
	return 0, fmt.Errorf("http: unknown content type %q", name)
}

func (ct ContentType) Valid() bool {
	return ct < contentTypeCount
}

func (ct ContentType) String() string {
	if !ct.Valid() {
		return fmt.Sprintf("ContentType(%d)", uint8(ct))
	}
	return contentTypes[ct].name
}

func (ct ContentType) MIME() string {
	if !ct.Valid() {
		return contentTypes[ContentTypeOctetStream].mime
	}
	return contentTypes[ct].mime
}

// Textual content types get DefaultCharset when a route leaves Charset empty.
func (ct ContentType) Textual() bool {
	return ct.Valid() && contentTypes[ct].textual
}

func (ct ContentType) headerValue(charset string) string {
	if charset == "" && ct.Textual() {
		charset = DefaultCharset
	}
	if charset == "" {
		return ct.MIME()
	}
	return ct.MIME() + charsetParamPrefix + charset
}
