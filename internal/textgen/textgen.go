// Package textgen defines the boundary to the external text-generation
// capability: the request shape, the failure taxonomy, response decoding and
// the invoker that applies timeouts, retries and throttling to every call.
package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks network, timeout and throttling failures worth retrying.
	ErrTransient = errors.New("textgen: transient failure")
	// ErrMalformed marks a response that could not be decoded even after sanitizing.
	ErrMalformed = errors.New("textgen: malformed response")
	// ErrUnavailable marks a capability that is not configured or not reachable.
	ErrUnavailable = errors.New("textgen: capability unavailable")
)

// Transient wraps err so that errors.Is(err, ErrTransient) holds.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Retryable reports whether err is worth another attempt. Malformed replies
// are retried too.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrMalformed)
}

// Payload is one item as presented to the model. ID is the batch-local index
// the model must echo back.
type Payload struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Source   string `json:"source,omitempty"`
	URL      string `json:"url,omitempty"`
	Category string `json:"category,omitempty"`
	Score    int    `json:"score,omitempty"`
}

// Request is a role instruction plus a batch of item payloads.
type Request struct {
	Task        string
	Instruction string
	Items       []Payload
	Context     string
}

// Prompt renders the user message sent next to the instruction.
func (r Request) Prompt() (string, error) {
	var b strings.Builder
	if ctx := strings.TrimSpace(r.Context); ctx != "" {
		b.WriteString(ctx)
		b.WriteString("\n\n")
	}
	if len(r.Items) > 0 {
		raw, err := json.MarshalIndent(r.Items, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal payloads: %w", err)
		}
		b.WriteString("Items:\n")
		b.Write(raw)
	}
	return strings.TrimSpace(b.String()), nil
}

// Generator is the external capability. Implementations return the raw model
// text and classify failures with ErrTransient or ErrUnavailable.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Pinger is implemented by generators that can verify reachability up front.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
