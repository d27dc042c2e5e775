package visionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

// bodyBuilder produces a fresh request body per attempt.
type bodyBuilder func() (body io.Reader, contentType string, err error)

func jsonBody(payload any) bodyBuilder {
	return func() (io.Reader, string, error) {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", fmt.Errorf("marshal request: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody sends file under the "file" part plus non-empty fields.
func multipartBody(file domain.FileRef, fields map[string]string) bodyBuilder {
	return func() (io.Reader, string, error) {
		src, err := file.Open()
		if err != nil {
			return nil, "", err
		}
		defer src.Close()

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
		contentType := file.MimeType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := io.Copy(part, src); err != nil {
			return nil, "", fmt.Errorf("copy file part: %w", err)
		}

		keys := make([]string, 0, len(fields))
		for k, v := range fields {
			if strings.TrimSpace(v) != "" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := w.WriteField(k, fields[k]); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", k, err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("close multipart writer: %w", err)
		}
		return &buf, w.FormDataContentType(), nil
	}
}

func (c *Client) call(ctx context.Context, ep endpoint, query url.Values, build bodyBuilder, out any) error {
	op := func(ctx context.Context) error {
		return c.roundTrip(ctx, ep, query, build, out)
	}
	if c.executor == nil {
		return op(ctx)
	}
	return c.executor.Execute(ctx, ep.name, op, classifierFor(ep))
}

func (c *Client) roundTrip(ctx context.Context, ep endpoint, query url.Values, build bodyBuilder, out any) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeouts[ep.timeout])
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(attemptCtx); err != nil {
			return fmt.Errorf("vision %s rate limit: %w", ep.name, err)
		}
	}

	var body io.Reader
	contentType := ""
	if build != nil {
		var err error
		body, contentType, err = build()
		if err != nil {
			return fmt.Errorf("build %s request: %w", ep.name, err)
		}
	}

	target := c.baseURL + ep.path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(attemptCtx, ep.method, target, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", ep.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if strings.HasPrefix(contentType, "multipart/") {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	if !ep.anonymous {
		if token := c.bearerToken(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	if c.metrics != nil {
		c.metrics.StartRequest()
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(ep, 0, start)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("vision %s request: %w", ep.name, ctxErr)
		}
		return domain.WrapError(domain.ErrNetwork, "vision "+ep.name, err)
	}
	defer resp.Body.Close()
	c.observe(ep, resp.StatusCode, start)

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(ctx)
	}
	if resp.StatusCode >= 300 {
		return newStatusError(ep.name, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.WrapError(domain.ErrNetwork, "read "+ep.name+" response", err)
	}
	return decodeResponse(ep.name, data, !ep.bare, out)
}

func (c *Client) bearerToken(ctx context.Context) string {
	token, ok, err := c.store.Get(ctx, domain.TokenStorageKey)
	if err != nil {
		c.logger.Warn("token_read_failed", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func (c *Client) observe(ep endpoint, status int, start time.Time) {
	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.ObserveRequest(ep.name, status, elapsed)
	}
	c.logger.Debug("http_request",
		"endpoint", ep.name,
		"method", ep.method,
		"path", ep.path,
		"status", status,
		"duration_ms", float64(elapsed.Microseconds())/1000.0,
	)
}

var envelopeKeys = map[string]bool{
	"success":   true,
	"data":      true,
	"error":     true,
	"message":   true,
	"timestamp": true,
}

// decodeResponse accepts both a bare payload and, when unwrap is set, a
// {success, data, error} envelope. An object is an envelope only when it has
// a success flag and no keys outside the envelope set.
func decodeResponse(operation string, data []byte, unwrap bool, out any) error {
	if out == nil {
		return nil
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return domain.WrapError(domain.ErrServer, "decode "+operation+" response", fmt.Errorf("empty body"))
	}

	if unwrap && trimmed[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err == nil && isEnvelope(fields) {
			var env struct {
				Success bool            `json:"success"`
				Data    json.RawMessage `json:"data"`
				Error   string          `json:"error"`
				Message string          `json:"message"`
			}
			if err := json.Unmarshal(trimmed, &env); err != nil {
				return fmt.Errorf("decode %s envelope: %w", operation, err)
			}
			hasData := len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null"))
			if !env.Success && !hasData {
				msg := env.Error
				if msg == "" {
					msg = env.Message
				}
				return &EnvelopeError{Operation: operation, Message: msg}
			}
			if !hasData {
				return nil
			}
			trimmed = env.Data
		}
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func isEnvelope(fields map[string]json.RawMessage) bool {
	if _, ok := fields["success"]; !ok {
		return false
	}
	_, hasData := fields["data"]
	_, hasError := fields["error"]
	if !hasData && !hasError {
		return false
	}
	for k := range fields {
		if !envelopeKeys[k] {
			return false
		}
	}
	return true
}
