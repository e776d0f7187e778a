package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalService = errors.New("external service error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrEntitlement     = errors.New("entitlement error")
	ErrTransient       = errors.New("transient failure")
)

// Wrap builds an error message that includes pipeline context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind names the coarse classification of a pipeline error.
type Kind string

const (
	KindExternalService Kind = "external_service"
	KindValidation      Kind = "validation"
	KindConfiguration   Kind = "configuration"
	KindNotFound        Kind = "not_found"
	KindEntitlement     Kind = "entitlement"
	KindTransient       Kind = "transient"
)

// Classify maps an error to its marker kind. Unmarked errors classify as transient.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrEntitlement):
		return KindEntitlement
	case errors.Is(err, ErrExternalService):
		return KindExternalService
	default:
		return KindTransient
	}
}

// UserMessage extracts a display-ready message: the detail text after the
// marker prefix when present, otherwise the full error text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	text := strings.TrimSpace(err.Error())
	for _, marker := range []error{
		ErrExternalService,
		ErrValidation,
		ErrConfiguration,
		ErrNotFound,
		ErrEntitlement,
		ErrTransient,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(text, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
	}
	return text
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
