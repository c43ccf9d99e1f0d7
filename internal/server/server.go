// Package server exposes the lingopipe HTTP surface.
//
// Three routes make up the public API: the embedded recorder UI at /, the
// pipeline endpoint at /transcribe, and the synthesized audio files under
// /static/audio/. Prometheus metrics and Swagger docs ride along on the
// same listener.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/lingopipe/docs" // swagger spec registration
	"github.com/nadzzz/lingopipe/internal/metrics"
	"github.com/nadzzz/lingopipe/internal/pipeline"
)

//go:embed index.html
var indexHTML embed.FS

// Processor runs one upload through the pipeline. Satisfied by
// *pipeline.Pipeline.
type Processor interface {
	Process(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error)
}

// Server is the public HTTP server.
type Server struct {
	port      int
	maxUpload int64
	audioDir  string
	processor Processor
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	server    *http.Server
}

// New creates a server. audioDir is the directory synthesized audio is
// served from; gatherer backs the /metrics endpoint.
func New(port int, maxUpload int64, audioDir string, processor Processor, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	return &Server{
		port:      port,
		maxUpload: maxUpload,
		audioDir:  audioDir,
		processor: processor,
		metrics:   m,
		gatherer:  gatherer,
	}
}

// Listen starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Listen(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		slog.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Handler builds the route table. Exposed separately so tests can drive
// the mux without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	mux.HandleFunc("GET /static/audio/{filename}", s.handleAudio)

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// Swagger UI — serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// handleIndex serves the embedded browser recorder UI.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := indexHTML.ReadFile("index.html")
	if err != nil {
		http.Error(w, "ui unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

// handleTranscribe processes one uploaded audio clip.
//
// @Summary     Transcribe, correct, translate, and re-synthesize an audio clip
// @Description Accepts a multipart form with an audio file and an optional target language.
// @Description The clip is transcribed, grammar-corrected, translated, and rendered back
// @Description to speech; all four artifacts are returned in one JSON object.
// @Tags        transcribe
// @Accept      multipart/form-data
// @Produce     json
// @Param       audio_data       formData  file    true   "Audio clip (webm, wav, ogg, mp3, ...)"
// @Param       target_language  formData  string  false  "ISO-639-1 target language code (default en)"
// @Success     200  {object}  pipeline.Result  "Pipeline result"
// @Failure     400  {object}  map[string]string  "No audio uploaded"
// @Failure     500  {object}  map[string]string  "Internal processing error"
// @Router      /transcribe [post]
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio_data")
	if err != nil {
		s.metrics.RequestsTotal.WithLabelValues("client_error").Inc()
		writeError(w, http.StatusBadRequest, "no audio uploaded")
		return
	}
	defer file.Close()

	targetLang := r.FormValue("target_language")
	if targetLang == "" {
		targetLang = "en"
	}

	result, err := s.processor.Process(r.Context(), pipeline.Upload{
		Filename:       header.Filename,
		Data:           file,
		TargetLanguage: targetLang,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrNoAudio) {
			s.metrics.RequestsTotal.WithLabelValues("client_error").Inc()
			writeError(w, http.StatusBadRequest, "no audio uploaded")
			return
		}
		// The cause stays server-side: internal paths and model endpoints
		// must not leak to clients.
		slog.Error("pipeline failed", "error", err)
		s.metrics.RequestsTotal.WithLabelValues("server_error").Inc()
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	s.metrics.RequestsTotal.WithLabelValues("ok").Inc()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// handleAudio serves a previously synthesized audio file by name.
//
// @Summary     Fetch a synthesized audio file
// @Tags        transcribe
// @Produce     audio/mpeg
// @Param       filename  path  string  true  "Audio filename ({requestId}.mp3)"
// @Success     200  {file}    file
// @Failure     404  {string}  string  "Not found"
// @Router      /static/audio/{filename} [get]
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	// Reject anything that is not a bare filename.
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.audioDir, name))
}

// Close gracefully shuts down the HTTP server.
func (s *Server) Close() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
