// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON or form-encoded; handlers read fields by name either way.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"loantracker/internal/core"
)

// maxBodyBytes bounds every request body the API reads.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetBool reads a boolean field. Missing or unparsable values are false.
func (p *RequestBodyParser) GetBool(key string) bool {
	v := strings.ToLower(p.Get(key))
	switch v {
	case "on", "yes":
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. An empty value
// yields fallback.
func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, core.ErrInvalidDate
}

// maxExpiryDays bounds link lifetimes to ten years.
const maxExpiryDays = 3650

// parseExpiry reads a link lifetime from expiresInDays or a Go duration in
// expiresIn. Zero means the configured default.
func parseExpiry(p *RequestBodyParser) (time.Duration, error) {
	if v := p.Get("expiresInDays"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 || days > maxExpiryDays {
			return 0, core.ErrInvalidExpiry
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	if v := p.Get("expiresIn"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 || d > maxExpiryDays*24*time.Hour {
			return 0, core.ErrInvalidExpiry
		}
		return d, nil
	}
	return 0, nil
}
