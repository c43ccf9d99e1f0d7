// Package correct wraps a seq2seq model behind a fixed grammar-correction
// instruction prefix.
package correct

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Prefix is the instruction prepended to every input, both at inference time
// and when building fine-tuning examples (see internal/trainer). The model
// only behaves as a corrector when this exact prefix is present.
const Prefix = "correct: "

// DefaultMaxLength caps input truncation and output generation length.
const DefaultMaxLength = 256

// Generator is the slice of the seq2seq client the corrector needs.
type Generator interface {
	Generate(ctx context.Context, model, inputs string, maxLength int) (string, error)
}

// Corrector rewrites text with improved grammar.
type Corrector struct {
	gen       Generator
	model     string
	maxLength int
}

// New creates a corrector running the named model on gen.
func New(gen Generator, model string, maxLength int) *Corrector {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Corrector{gen: gen, model: model, maxLength: maxLength}
}

// Correct returns a grammatically corrected rewrite of text. Failure is
// fatal for the request: there is no retry or fallback.
func (c *Corrector) Correct(ctx context.Context, text string) (string, error) {
	start := time.Now()

	out, err := c.gen.Generate(ctx, c.model, Prefix+strings.TrimSpace(text), c.maxLength)
	if err != nil {
		return "", fmt.Errorf("grammar correction: %w", err)
	}

	slog.Debug("correction complete", "model", c.model,
		"in_length", len(text), "out_length", len(out), "duration", time.Since(start))
	return out, nil
}
