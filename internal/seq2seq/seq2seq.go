// Package seq2seq implements a client for a text2text model server.
//
// The server is an opaque collaborator hosting sequence-to-sequence models
// (T5 grammar correction, Helsinki-NLP opus-mt translation). It exposes
// three endpoints:
//
//	POST /models/load  {"model": "..."}                         — pin a named model in memory
//	POST /generate     {"model": ..., "inputs": ..., "parameters": {...}}
//	POST /finetune     {"base_model": ..., "examples": [...], ...} — blocking fine-tune job
//
// Generation uses greedy decoding: no sampling parameters are ever sent.
package seq2seq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client talks to one seq2seq model server.
type Client struct {
	endpoint string
	httpc    *http.Client
}

// New creates a client for the server at endpoint (scheme://host:port).
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
	}
}

// generateParams caps both input truncation and output length, mirroring
// the tokenizer max_length the models were built around.
type generateParams struct {
	MaxLength  int  `json:"max_length"`
	Truncation bool `json:"truncation"`
}

type generateRequest struct {
	Model      string         `json:"model"`
	Inputs     string         `json:"inputs"`
	Parameters generateParams `json:"parameters"`
}

// LoadModel asks the server to load the named model into memory. It blocks
// until the load completes; loading an already-resident model is a cheap
// no-op server-side.
func (c *Client) LoadModel(ctx context.Context, model string) error {
	body, err := json.Marshal(map[string]string{"model": model})
	if err != nil {
		return fmt.Errorf("marshalling load request: %w", err)
	}

	start := time.Now()
	if err := c.post(ctx, "/models/load", body, nil); err != nil {
		return fmt.Errorf("loading model %q: %w", model, err)
	}
	slog.Info("model loaded", "model", model, "duration", time.Since(start))
	return nil
}

// Generate runs text2text generation on the named model with input and
// output capped at maxLength tokens, and returns the decoded text.
func (c *Client) Generate(ctx context.Context, model, inputs string, maxLength int) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  model,
		Inputs: inputs,
		Parameters: generateParams{
			MaxLength:  maxLength,
			Truncation: true,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshalling generate request: %w", err)
	}

	data, err := c.postRaw(ctx, "/generate", body)
	if err != nil {
		return "", fmt.Errorf("generate with %q: %w", model, err)
	}

	text, ok := extractGeneratedText(data)
	if !ok {
		return "", fmt.Errorf("generate with %q: unrecognized response: %.200s", model, data)
	}
	return text, nil
}

// FinetuneRequest describes a blocking supervised fine-tuning job.
type FinetuneRequest struct {
	BaseModel string    `json:"base_model"`
	Examples  []Example `json:"examples"`
	Epochs    int       `json:"epochs"`
	BatchSize int       `json:"batch_size"`
	MaxLength int       `json:"max_length"`
	OutputDir string    `json:"output_dir"`
}

// Example is one labeled training pair.
type Example struct {
	InputText  string `json:"input_text"`
	TargetText string `json:"target_text"`
}

// FinetuneResult reports where the trained model and tokenizer were saved.
type FinetuneResult struct {
	OutputDir string `json:"output_dir"`
	Steps     int    `json:"steps"`
}

// Finetune runs a fine-tuning job on the server and blocks until the model
// and tokenizer have been persisted to the job's output directory.
func (c *Client) Finetune(ctx context.Context, req FinetuneRequest) (*FinetuneResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshalling finetune request: %w", err)
	}

	var result FinetuneResult
	if err := c.post(ctx, "/finetune", body, &result); err != nil {
		return nil, fmt.Errorf("finetune of %q: %w", req.BaseModel, err)
	}
	return &result, nil
}

// post sends a JSON body and optionally decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	data, err := c.postRaw(ctx, path, body)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model server request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("model server status %d: %s", resp.StatusCode, respBody)
	}

	return io.ReadAll(resp.Body)
}

// extractGeneratedText accepts both response shapes in the wild:
// {"generated_text": "..."} and the HF pipeline list form
// [{"generated_text": "..."}].
func extractGeneratedText(data []byte) (string, bool) {
	var obj struct {
		GeneratedText *string `json:"generated_text"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.GeneratedText != nil {
		return *obj.GeneratedText, true
	}

	var list []struct {
		GeneratedText *string `json:"generated_text"`
	}
	if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 && list[0].GeneratedText != nil {
		return *list[0].GeneratedText, true
	}

	return "", false
}
