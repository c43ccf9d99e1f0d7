// Package whisper implements the stt.Transcriber interface against a
// Whisper-compatible HTTP server.
//
// Two endpoint flavors are supported:
//   - "openai": OpenAI-compatible transcription API (whisper.cpp server,
//     faster-whisper, or api.openai.com itself)
//   - "asr":    ahmetoner/whisper-asr-webservice (POST /asr with query params)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/nadzzz/lingopipe/internal/config"
	"github.com/nadzzz/lingopipe/internal/stt"
)

// Client transcribes audio files via a remote Whisper server.
type Client struct {
	endpoint string
	flavor   string // "openai" or "asr"
	model    string
	language string
	apiKey   string
	httpc    *http.Client
}

// New creates a whisper client from config.
func New(cfg config.STTConfig) *Client {
	flavor := cfg.Flavor
	if flavor == "" {
		flavor = "openai"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &Client{
		endpoint: cfg.Endpoint,
		flavor:   flavor,
		model:    cfg.Model,
		language: cfg.Language,
		apiKey:   cfg.APIKey,
		httpc:    &http.Client{Timeout: timeout},
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "whisper" }

// Transcribe uploads the audio file at path and returns the transcription.
func (c *Client) Transcribe(ctx context.Context, path string, opts stt.TranscribeOpts) (string, error) {
	switch c.flavor {
	case "asr":
		return c.transcribeASR(ctx, path, opts)
	default:
		return c.transcribeOpenAI(ctx, path, opts)
	}
}

// transcribeASR handles the ahmetoner/whisper-asr-webservice format.
// API: POST /asr?task=transcribe&language=en&output=json
// Body: multipart/form-data with field "audio_file"
func (c *Client) transcribeASR(ctx context.Context, path string, opts stt.TranscribeOpts) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := attachFile(writer, "audio_file", path); err != nil {
		return "", err
	}
	writer.Close()

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("encode", "true")

	lang := opts.Language
	if lang == "" {
		lang = c.language
	}
	if lang != "" {
		q.Set("language", lang)
	}
	if opts.Prompt != "" {
		q.Set("initial_prompt", opts.Prompt)
	}

	reqURL := c.endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	slog.Debug("whisper-asr request", "url", reqURL)

	return c.doTranscription(req)
}

// transcribeOpenAI handles OpenAI-compatible whisper endpoints.
func (c *Client) transcribeOpenAI(ctx context.Context, path string, opts stt.TranscribeOpts) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := attachFile(writer, "file", path); err != nil {
		return "", err
	}

	if c.model != "" {
		_ = writer.WriteField("model", c.model)
	}
	lang := opts.Language
	if lang == "" {
		lang = c.language
	}
	if lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if opts.Prompt != "" {
		_ = writer.WriteField("prompt", opts.Prompt)
	}
	_ = writer.WriteField("response_format", "json")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	return c.doTranscription(req)
}

// doTranscription executes the request and decodes the {"text": ...} body
// both flavors return.
func (c *Client) doTranscription(req *http.Request) (string, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding transcription: %w", err)
	}

	slog.Debug("transcription complete", "text_length", len(result.Text))
	return result.Text, nil
}

// Close is a no-op for the whisper client.
func (c *Client) Close() error { return nil }

// attachFile streams the file at path into a multipart form field.
func attachFile(writer *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("writing audio: %w", err)
	}
	return nil
}
