// Package gateway routes model calls across an ordered chain of backends.
// Each backend gets a fixed retry budget before the chain advances; the
// caller sees an error only when every backend's budget is spent.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Request is one model invocation
type Request struct {
	System string
	Prompt string
}

// Backend produces raw model output for a request
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Attempt records one failed backend call
type Attempt struct {
	Backend string
	Err     error
}

// ExhaustedError is returned when the whole backend chain failed
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all model backends exhausted after %d attempts", len(e.Attempts))
}

// Gateway tries backends strictly in order
type Gateway struct {
	backends   []Backend
	maxRetries int
	timeout    time.Duration
	logger     *slog.Logger
}

// New creates a gateway over an ordered backend chain
func New(backends []Backend, maxRetries int, timeout time.Duration, logger *slog.Logger) *Gateway {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Gateway{
		backends:   backends,
		maxRetries: maxRetries,
		timeout:    timeout,
		logger:     logger,
	}
}

// Generate runs the request through the backend chain and decodes the
// response into out. A *string out receives the cleaned raw text; any other
// pointer is JSON-unmarshaled. A malformed JSON response is retried against
// the same backend with a correction prompt, consuming one attempt from that
// backend's budget.
func (g *Gateway) Generate(ctx context.Context, req Request, out any) error {
	var attempts []Attempt

	for _, backend := range g.backends {
		prompt := req.Prompt

		for attempt := 1; attempt <= g.maxRetries; attempt++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			raw, err := g.call(ctx, backend, Request{System: req.System, Prompt: prompt})
			if err != nil {
				g.logger.Warn("model call failed",
					slog.String("backend", backend.Name()),
					slog.Int("attempt", attempt),
					slog.Any("error", err),
				)
				attempts = append(attempts, Attempt{Backend: backend.Name(), Err: err})
				prompt = req.Prompt
				continue
			}

			cleaned := ExtractPayload(raw)

			if out == nil {
				return nil
			}
			if s, ok := out.(*string); ok {
				*s = cleaned
				return nil
			}

			if jerr := json.Unmarshal([]byte(cleaned), out); jerr != nil {
				g.logger.Warn("model returned malformed JSON",
					slog.String("backend", backend.Name()),
					slog.Int("attempt", attempt),
					slog.Any("error", jerr),
				)
				attempts = append(attempts, Attempt{Backend: backend.Name(), Err: jerr})
				prompt = correctionPrompt(req.Prompt, cleaned, jerr)
				continue
			}

			return nil
		}
	}

	return &ExhaustedError{Attempts: attempts}
}

func (g *Gateway) call(ctx context.Context, backend Backend, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return backend.Generate(ctx, req)
}

func correctionPrompt(original, invalid string, err error) string {
	return fmt.Sprintf(
		"%s\n\nYour previous response was not valid JSON (%v). Respond again with only the corrected JSON, no prose and no code fences.\n\nPrevious response:\n%s",
		original, err, invalid,
	)
}

// ExtractPayload strips markdown code fences and surrounding prose from a
// model response, leaving the JSON body when one is present.
func ExtractPayload(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Prose around a JSON object or array: cut to the outermost brackets.
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}

	var end int
	if s[start] == '{' {
		end = strings.LastIndexByte(s, '}')
	} else {
		end = strings.LastIndexByte(s, ']')
	}
	if end <= start {
		return s
	}

	// Only trim when there actually is surrounding prose.
	if start == 0 && end == len(s)-1 {
		return s
	}
	return s[start : end+1]
}
