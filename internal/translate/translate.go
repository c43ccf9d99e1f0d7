// Package translate routes text through per-language translation models.
//
// Each target language maps to its own opus-mt model. Models are loaded
// lazily on the first request for a language and stay resident for the
// lifetime of the process; a singleflight group guarantees at most one
// concurrent load per language, so two racing first requests cannot load
// the same model twice.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Outcome distinguishes the three ways a translation request can succeed.
type Outcome int

const (
	// OutcomeTranslated means the text was run through a translation model.
	OutcomeTranslated Outcome = iota

	// OutcomeIdentity means the target equals the source language (or was
	// empty), so the text is returned unchanged at zero cost.
	OutcomeIdentity

	// OutcomeUnsupported means no model is configured for the target code.
	// The text is returned unchanged, but callers should surface this to
	// the user rather than pass it off as a translation.
	OutcomeUnsupported
)

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeTranslated:
		return "translated"
	case OutcomeIdentity:
		return "identity"
	case OutcomeUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// ModelLoader is the slice of the seq2seq client the translator needs.
type ModelLoader interface {
	LoadModel(ctx context.Context, model string) error
	Generate(ctx context.Context, model, inputs string, maxLength int) (string, error)
}

// Translator translates text from a fixed source language into any of a
// static table of target languages. Safe for concurrent use.
type Translator struct {
	client    ModelLoader
	source    string
	models    map[string]string // target code -> model name
	maxLength int

	mu     sync.RWMutex
	loaded map[string]bool // model names confirmed resident on the server
	group  singleflight.Group

	// OnModelLoad, when set, is called once per successful lazy model load
	// with the target language code. Used for load-count instrumentation.
	OnModelLoad func(code string)
}

// New creates a translator. models maps ISO-639-1 target codes to model
// names; the table is fixed for the life of the translator.
func New(client ModelLoader, source string, models map[string]string, maxLength int) *Translator {
	if source == "" {
		source = "en"
	}
	return &Translator{
		client:    client,
		source:    source,
		models:    models,
		maxLength: maxLength,
		loaded:    make(map[string]bool),
	}
}

// Supported reports whether a translation model is configured for code.
func (t *Translator) Supported(code string) bool {
	_, ok := t.models[code]
	return ok
}

// Translate translates text into the target language. Empty and
// source-language codes are identity. Unknown codes return the text
// unchanged with OutcomeUnsupported — the caller decides how loudly to
// report that.
func (t *Translator) Translate(ctx context.Context, text, code string) (string, Outcome, error) {
	if code == "" || code == t.source {
		return text, OutcomeIdentity, nil
	}

	model, ok := t.models[code]
	if !ok {
		slog.Warn("unsupported target language", "code", code)
		return text, OutcomeUnsupported, nil
	}

	if err := t.ensureLoaded(ctx, code, model); err != nil {
		return "", OutcomeTranslated, err
	}

	start := time.Now()
	out, err := t.client.Generate(ctx, model, text, t.maxLength)
	if err != nil {
		return "", OutcomeTranslated, fmt.Errorf("translating to %q: %w", code, err)
	}

	slog.Debug("translation complete", "code", code, "model", model,
		"in_length", len(text), "out_length", len(out), "duration", time.Since(start))
	return out, OutcomeTranslated, nil
}

// ensureLoaded loads the model for code exactly once across all goroutines.
// Concurrent first requests for the same language share one load; later
// requests hit the resident entry and skip the round trip entirely.
func (t *Translator) ensureLoaded(ctx context.Context, code, model string) error {
	t.mu.RLock()
	ok := t.loaded[model]
	t.mu.RUnlock()
	if ok {
		return nil
	}

	_, err, _ := t.group.Do(model, func() (any, error) {
		// Re-check under the group: a previous flight may have finished
		// between the RUnlock above and entering Do.
		t.mu.RLock()
		done := t.loaded[model]
		t.mu.RUnlock()
		if done {
			return nil, nil
		}

		slog.Info("loading translation model", "code", code, "model", model)
		if err := t.client.LoadModel(ctx, model); err != nil {
			return nil, fmt.Errorf("loading translation model for %q: %w", code, err)
		}

		t.mu.Lock()
		t.loaded[model] = true
		t.mu.Unlock()

		if t.OnModelLoad != nil {
			t.OnModelLoad(code)
		}
		return nil, nil
	})
	return err
}
