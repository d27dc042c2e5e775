package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network unreachable")
	ErrTemporary    = errors.New("temporary failure")
	ErrBusy         = errors.New("processing already running")
	ErrUnsupported  = errors.New("unsupported")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// BackendMessenger is implemented by errors that carry a message produced by
// the remote service.
type BackendMessenger interface {
	BackendMessage() string
}

// ErrorMessage picks the most user-facing text available for err: the
// backend message, then the error's own text, then fallback.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var bm BackendMessenger
	if errors.As(err, &bm) {
		if msg := strings.TrimSpace(bm.BackendMessage()); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}
