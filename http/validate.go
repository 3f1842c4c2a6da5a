package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/freekieb7/destiny/validation"
)

var (
	ErrDynamicResult   = errors.New("dynamic results cannot be resolved statically")
	ErrMissingResult   = errors.New("a static result is required")
	ErrReservedHeader  = errors.New("header is computed from the body and cannot be set")
	ErrDuplicateRoute  = errors.New("duplicate route key")
	ErrUnknownMethod   = errors.New("unsupported method")
	ErrUnknownMimeType = errors.New("unknown content type")
)

func validateVersion(version string) validation.Violations {
	var violations validation.Violations
	violations.Add("version", validation.Required("version", version))
	violations.Add("version", validation.Printable("version", version))
	return violations
}

func validateMethod(method Method) error {
	if validation.OneOf("method", method, methods...) != nil {
		return fmt.Errorf("%w %q", ErrUnknownMethod, string(method))
	}
	return nil
}

func validateStatus(name string, status uint16) error {
	return validation.Between(name, int(status), 100, 599)
}

func validateContentType(contentType ContentType) error {
	if !contentType.Valid() {
		return fmt.Errorf("%w %d", ErrUnknownMimeType, uint8(contentType))
	}
	return nil
}

func validateRoute(route Route) validation.Violations {
	var violations validation.Violations

	violations.Add("method", validateMethod(route.Method))
	violations.Add("path", validation.Printable("path", route.Path))
	if route.Status != 0 {
		violations.Add("status", validateStatus("status", route.Status))
	}
	violations.Add("contentType", validateContentType(route.ContentType))
	violations.Add("charset", validation.Printable("charset", route.Charset))

	switch route.Result.Kind() {
	case ResultString, ResultBytes:
	case ResultDynamic:
		violations.Add("result", ErrDynamicResult)
	default:
		violations.Add("result", ErrMissingResult)
	}

	return violations
}

func validateMiddleware(m StaticMiddleware) validation.Violations {
	var violations validation.Violations

	for _, method := range m.AppliesToMethods {
		violations.Add("appliesToMethods", validateMethod(method))
	}
	for _, status := range m.AppliesToStatuses {
		violations.Add("appliesToStatuses", validateStatus("status", status))
	}
	for _, contentType := range m.AppliesToContentTypes {
		violations.Add("appliesToContentTypes", validateContentType(contentType))
	}
	if m.AppliesStatus != 0 {
		violations.Add("appliesStatus", validateStatus("appliesStatus", m.AppliesStatus))
	}
	for _, h := range m.AppliesHeaders {
		violations.Add("appliesHeaders", validation.Token("header name", h.Name))
		violations.Add("appliesHeaders", validation.FieldValue("header "+h.Name, h.Value))
		if strings.EqualFold(h.Name, headerContentLen) {
			violations.Add("appliesHeaders", fmt.Errorf("%s: %w", h.Name, ErrReservedHeader))
		}
	}

	return violations
}
