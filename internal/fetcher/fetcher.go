// Package fetcher retrieves video metadata from the upstream extraction API.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
)

// ErrEmptyTarget is returned when no target URL is supplied.
var ErrEmptyTarget = errors.New("target url is empty")

// ErrNoResult is returned when a fetcher reports success without a result.
var ErrNoResult = errors.New("fetcher returned no result")

// Fetcher performs one upstream request for a target URL.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (*Result, error)
}

// Result is what the upstream answered. Non-2xx statuses are not errors.
type Result struct {
	Status int
	Data   json.RawMessage
}

// rawPayload wraps a body that is not valid JSON.
type rawPayload struct {
	Raw string `json:"raw"`
}

// DecodePayload returns body unchanged when it is valid JSON, and
// {"raw": body} otherwise.
func DecodePayload(body []byte) json.RawMessage {
	trimmed := strings.TrimSpace(string(body))
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rawPayload{Raw: string(body)}); err != nil {
		// string fields always marshal
		return json.RawMessage(`{"raw":""}`)
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
}

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// randomToken returns an 8 character base36 string sent alongside the form.
func randomToken() string {
	var b strings.Builder
	b.Grow(8)
	for i := 0; i < 8; i++ {
		b.WriteByte(tokenAlphabet[rand.Intn(len(tokenAlphabet))])
	}
	return b.String()
}

func checkTarget(target string) error {
	if strings.TrimSpace(target) == "" {
		return ErrEmptyTarget
	}
	return nil
}
