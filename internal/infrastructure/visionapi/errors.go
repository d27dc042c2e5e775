package visionapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx backend response. It unwraps to the domain
// error kind matching its status code.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Message    string
	ErrorField string

	// ResultError is the errorMessage of a capability result sent as the
	// body of a failed response.
	ResultError string
	Body        string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "vision status error"
	}
	detail := e.BackendMessage()
	if detail == "" {
		detail = strings.TrimSpace(e.Body)
	}
	if detail == "" {
		return fmt.Sprintf("vision %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("vision %s status: %s: %s", e.Operation, e.Status, detail)
}

func (e *HTTPStatusError) BackendMessage() string {
	if e == nil {
		return ""
	}
	for _, msg := range []string{e.Message, e.ErrorField, e.ResultError} {
		if msg = strings.TrimSpace(msg); msg != "" {
			return msg
		}
	}
	return ""
}

func (e *HTTPStatusError) Unwrap() error {
	if e == nil {
		return nil
	}
	return kindForStatus(e.StatusCode)
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusConflict:
		return domain.ErrConflict
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return domain.ErrTemporary
	case status >= http.StatusInternalServerError:
		return domain.ErrServer
	default:
		return nil
	}
}

// EnvelopeError is a 2xx response whose {success, data, error} envelope
// reported a failure.
type EnvelopeError struct {
	Operation string
	Message   string
}

func (e *EnvelopeError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("vision %s: request failed", e.Operation)
	}
	return fmt.Sprintf("vision %s: %s", e.Operation, e.Message)
}

func (e *EnvelopeError) BackendMessage() string { return e.Message }

func newStatusError(operation string, resp *http.Response) *HTTPStatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	out := &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
	var payload struct {
		Message      string `json:"message"`
		Error        string `json:"error"`
		ErrorMessage string `json:"errorMessage"`
	}
	if json.Unmarshal(body, &payload) == nil {
		out.Message = payload.Message
		out.ErrorField = payload.Error
		out.ResultError = payload.ErrorMessage
	}
	return out
}

// ExtractMessage returns the backend message, then the backend error field,
// then a result errorMessage, then the error text, then fallback.
func ExtractMessage(err error, fallback string) string {
	return domain.ErrorMessage(err, fallback)
}

// StatusCode reports the HTTP status carried by err, or 0 when no response
// was received.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func classifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		retryable := isRetryableHTTPStatus(statusErr.StatusCode)
		return resilience.ErrorClassification{
			Retryable:     retryable,
			RecordFailure: retryable || statusErr.StatusCode >= http.StatusInternalServerError,
		}
	}
	if domain.IsKind(err, domain.ErrNetwork) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

// classifierFor forbids retries on endpoints with side effects.
func classifierFor(ep endpoint) resilience.ErrorClassifier {
	return func(err error) resilience.ErrorClassification {
		class := classifyError(err)
		if !ep.idempotent {
			class.Retryable = false
		}
		return class
	}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
