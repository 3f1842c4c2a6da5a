package http

import (
	"slices"
	"strings"
)

// StaticMiddleware rewrites the status and headers of every route it applies
// to. It runs once while the table is built, never per request. An empty
// predicate slice matches everything on that axis.
type StaticMiddleware struct {
	AppliesToMethods      []Method
	AppliesToStatuses     []uint16
	AppliesToContentTypes []ContentType

	AppliesStatus  uint16 // 0 leaves the status alone
	AppliesHeaders []Header
}

func (m StaticMiddleware) Applies(method Method, status uint16, contentType ContentType) bool {
	if len(m.AppliesToMethods) != 0 && !slices.Contains(m.AppliesToMethods, method) {
		return false
	}
	if len(m.AppliesToStatuses) != 0 && !slices.Contains(m.AppliesToStatuses, status) {
		return false
	}
	if len(m.AppliesToContentTypes) != 0 && !slices.Contains(m.AppliesToContentTypes, contentType) {
		return false
	}
	return true
}

// HeadersFromMap orders headers by name so folding a map stays deterministic.
func HeadersFromMap(headers map[string]string) []Header {
	result := make([]Header, 0, len(headers))
	for name, value := range headers {
		result = append(result, Header{Name: name, Value: value})
	}
	slices.SortFunc(result, func(a, b Header) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result
}

// headerList keeps insertion order; setting an existing name (case
// insensitive) replaces its value in place.
type headerList []Header

func (list *headerList) set(name, value string) {
	for i := range *list {
		if strings.EqualFold((*list)[i].Name, name) {
			(*list)[i].Value = value
			return
		}
	}
	*list = append(*list, Header{Name: name, Value: value})
}

// fold applies the matching middleware in declaration order. Matching is
// decided against the route's declared status, before any override.
func fold(route Route, middleware []StaticMiddleware) (uint16, headerList) {
	status := route.EffectiveStatus()
	headers := headerList{{Name: headerContentType, Value: route.ContentType.headerValue(route.Charset)}}

	selected := make([]StaticMiddleware, 0, len(middleware))
	for _, m := range middleware {
		if m.Applies(route.Method, status, route.ContentType) {
			selected = append(selected, m)
		}
	}

	for _, m := range selected {
		if m.AppliesStatus != 0 {
			status = m.AppliesStatus
		}
		for _, h := range m.AppliesHeaders {
			headers.set(h.Name, h.Value)
		}
	}

	return status, headers
}
