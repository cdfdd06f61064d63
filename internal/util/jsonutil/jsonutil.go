package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrEmpty is returned for blank payloads.
var ErrEmpty = errors.New("jsonutil: empty payload")

// Decode parses model output into a generic JSON value. Surrounding
// whitespace and a markdown code fence are tolerated; anything else that is
// not valid JSON is an error. Numbers are kept as json.Number.
func Decode(raw []byte) (any, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, ErrEmpty
	}
	if v, err := decode(text); err == nil {
		return v, nil
	}
	v, err := decode(StripFences(text))
	if err != nil {
		return nil, fmt.Errorf("jsonutil: %w", err)
	}
	return v, nil
}

// RepairCandidate returns what jsonrepair would make of an invalid payload.
// It is a diagnostic only; callers must not accept the result.
func RepairCandidate(raw []byte) (string, bool) {
	fixed, err := jsonrepair.JSONRepair(StripFences(string(raw)))
	if err != nil {
		return "", false
	}
	if _, err := decode(fixed); err != nil {
		return "", false
	}
	return fixed, true
}

// StripFences removes a ```json ... ``` wrapper if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func decode(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("jsonutil: trailing data after JSON value")
	}
	return v, nil
}

// MarshalNoEscape encodes v into JSON without escaping <, >, & into \u003c, etc.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Remarshal copies a decoded value into out through a JSON round trip.
func Remarshal(v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
