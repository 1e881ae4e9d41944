// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing request data: the reporting
// period query, JSON and form bodies, and record identifiers.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"churchclerk/internal/core"
)

const maxJSONBody = 1 << 20

// ParsePeriod reads start_date and end_date from the query. Anything other
// than two valid YYYY-MM-DD values selects the whole history.
func ParsePeriod(query url.Values) core.Period {
	return core.NewPeriod(
		strings.TrimSpace(query.Get("start_date")),
		strings.TrimSpace(query.Get("end_date")),
	)
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
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
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
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

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether the key was present at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// Bool returns the value of a checkbox-like field.
func (p *RequestBodyParser) Bool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Int returns an integer field, or def when missing or malformed.
func (p *RequestBodyParser) Int(key string, def int) int {
	v := p.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Strings returns a list field. JSON arrays and repeated form keys are
// both accepted.
func (p *RequestBodyParser) Strings(key string) []string {
	var out []string
	if p.jsonData != nil {
		if arr, ok := p.jsonData[key].([]any); ok {
			for _, v := range arr {
				if s := sanitizeInput(stringValue(v)); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	if p.formData != nil {
		for _, v := range p.formData[key] {
			if s := sanitizeInput(v); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Date parses a YYYY-MM-DD field. Missing values return a zero Date and no
// error; the record's own validation decides whether it is required.
func (p *RequestBodyParser) Date(key string) (core.Date, error) {
	v := p.Get(key)
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: expected YYYY-MM-DD", key)
	}
	return d, nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
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

var errMissingID = errors.New("missing record id")

// PathID returns the {id} wildcard of the matched route.
func PathID(r *http.Request) (string, error) {
	id := sanitizeInput(r.PathValue("id"))
	if id == "" {
		return "", errMissingID
	}
	return id, nil
}

// OptionalBool parses tri-state query flags such as picked_up=true|false.
func OptionalBool(query url.Values, key string) *bool {
	v, err := strconv.ParseBool(strings.TrimSpace(query.Get(key)))
	if err != nil {
		return nil
	}
	return &v
}
