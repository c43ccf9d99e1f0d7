// Package pipeline implements the core request orchestration.
//
// Each uploaded clip runs through five stages in strict order: persist the
// upload, transcode it to the format the speech model expects, transcribe,
// correct the grammar, translate, and synthesize the result back to speech.
// Only the transcode stage has a fallback — every other failure is fatal
// for the request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/lingopipe/internal/metrics"
	"github.com/nadzzz/lingopipe/internal/stt"
	"github.com/nadzzz/lingopipe/internal/translate"
	"github.com/nadzzz/lingopipe/internal/tts"
)

// ErrNoAudio indicates the request carried no audio payload. It maps to a
// client error at the HTTP boundary.
var ErrNoAudio = errors.New("no audio uploaded")

// Upload is one incoming audio clip plus its processing options.
type Upload struct {
	// Filename is the client-supplied name of the uploaded file.
	Filename string

	// Data is the raw uploaded bytes.
	Data io.Reader

	// TargetLanguage is the ISO-639-1 code to translate into. Empty or
	// "en" means no translation.
	TargetLanguage string
}

// Result is the JSON-serializable outcome of one pipeline run.
type Result struct {
	// Raw is the whitespace-trimmed transcription.
	Raw string `json:"raw"`

	// Corrected is the grammar-corrected rewrite of Raw.
	Corrected string `json:"corrected"`

	// Translated is Corrected rendered in the target language. Equal to
	// Corrected when no translation applied.
	Translated string `json:"translated"`

	// AudioURL is the path to the synthesized MP3, or empty when there
	// was no text to synthesize.
	AudioURL string `json:"audio_url"`

	// Warning is set when the request succeeded in a degraded way, e.g.
	// an unsupported target language was returned untranslated.
	Warning string `json:"warning,omitempty"`
}

// Transcoder is the external audio converter the pipeline uses.
type Transcoder interface {
	Normalize(ctx context.Context, inPath, outPath string) error
	EncodeMP3(ctx context.Context, wav []byte, outPath string) error
}

// Corrector rewrites text with improved grammar.
type Corrector interface {
	Correct(ctx context.Context, text string) (string, error)
}

// Translator renders text in a target language.
type Translator interface {
	Translate(ctx context.Context, text, code string) (string, translate.Outcome, error)
}

// Pipeline sequences the adapters for one request at a time. All adapters
// are process-wide and shared across concurrent requests.
type Pipeline struct {
	transcoder  Transcoder
	transcriber stt.Transcriber
	corrector   Corrector
	translator  Translator
	synthesizer tts.Synthesizer
	metrics     *metrics.Metrics

	uploadDir      string
	audioDir       string
	audioURLPrefix string
}

// New creates a pipeline writing artifacts under uploadDir and audioDir.
func New(
	transcoder Transcoder,
	transcriber stt.Transcriber,
	corrector Corrector,
	translator Translator,
	synthesizer tts.Synthesizer,
	m *metrics.Metrics,
	uploadDir, audioDir string,
) *Pipeline {
	return &Pipeline{
		transcoder:     transcoder,
		transcriber:    transcriber,
		corrector:      corrector,
		translator:     translator,
		synthesizer:    synthesizer,
		metrics:        m,
		uploadDir:      uploadDir,
		audioDir:       audioDir,
		audioURLPrefix: "/static/audio/",
	}
}

// Process runs one upload through the full pipeline.
//
// Every artifact of a request shares one identifier: the upload is saved as
// {id}_{filename}, the transcoded waveform as {id}.wav, and the synthesized
// audio as {id}.mp3.
func (p *Pipeline) Process(ctx context.Context, up Upload) (*Result, error) {
	if up.Data == nil {
		return nil, ErrNoAudio
	}

	start := time.Now()
	id := newRequestID()
	logger := slog.With("request_id", id, "filename", up.Filename, "target_language", up.TargetLanguage)
	logger.Info("pipeline started")

	// Stage 1: persist the upload.
	inPath := filepath.Join(p.uploadDir, id+"_"+sanitizeFilename(up.Filename))
	if err := saveUpload(inPath, up.Data); err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	// Stage 2: transcode to mono 16 kHz WAV. On failure, assume the upload
	// is already in a usable format; transcription quality may degrade but
	// the request continues.
	wavPath := filepath.Join(p.uploadDir, id+".wav")
	stageStart := time.Now()
	if err := p.transcoder.Normalize(ctx, inPath, wavPath); err != nil {
		logger.Warn("transcode failed, using original upload", "error", err)
		p.metrics.TranscodeFallbacks.Inc()
		wavPath = inPath
	}
	p.metrics.ObserveStage("transcode", stageStart)

	// Stage 3: transcribe.
	stageStart = time.Now()
	raw, err := p.transcriber.Transcribe(ctx, wavPath, stt.TranscribeOpts{})
	if err != nil {
		logger.Error("transcription failed", "error", err)
		return nil, fmt.Errorf("transcription: %w", err)
	}
	raw = strings.TrimSpace(raw)
	p.metrics.ObserveStage("transcribe", stageStart)
	logger.Info("transcription complete", "text_length", len(raw))

	// Stage 4: grammar correction.
	stageStart = time.Now()
	corrected, err := p.corrector.Correct(ctx, raw)
	if err != nil {
		logger.Error("correction failed", "error", err)
		return nil, err
	}
	p.metrics.ObserveStage("correct", stageStart)

	// Stage 5: translation.
	stageStart = time.Now()
	translated, outcome, err := p.translator.Translate(ctx, corrected, up.TargetLanguage)
	if err != nil {
		logger.Error("translation failed", "error", err)
		return nil, err
	}
	p.metrics.ObserveStage("translate", stageStart)
	p.metrics.TranslationOutcomes.WithLabelValues(outcome.String()).Inc()

	result := &Result{
		Raw:        raw,
		Corrected:  corrected,
		Translated: translated,
	}
	if outcome == translate.OutcomeUnsupported {
		result.Warning = fmt.Sprintf("unsupported target language %q: returning untranslated text", up.TargetLanguage)
	}

	// Stage 6: synthesize the translated text and encode to MP3. Silent
	// input yields empty text; there is nothing to speak, so the audio
	// URL stays empty.
	if translated != "" {
		stageStart = time.Now()
		audioLang := up.TargetLanguage
		if outcome != translate.OutcomeTranslated {
			audioLang = "en"
		}
		synth, err := p.synthesizer.Synthesize(ctx, translated, tts.SynthesizeOpts{Language: audioLang})
		if err != nil {
			logger.Error("synthesis failed", "error", err)
			return nil, fmt.Errorf("speech synthesis: %w", err)
		}

		mp3Path := filepath.Join(p.audioDir, id+".mp3")
		if err := p.transcoder.EncodeMP3(ctx, synth.Audio, mp3Path); err != nil {
			logger.Error("mp3 encoding failed", "error", err)
			return nil, fmt.Errorf("encoding audio: %w", err)
		}
		p.metrics.ObserveStage("synthesize", stageStart)
		result.AudioURL = p.audioURLPrefix + id + ".mp3"
	} else {
		logger.Info("no text to synthesize, skipping audio output")
	}

	p.metrics.RequestDuration.Observe(time.Since(start).Seconds())
	logger.Info("pipeline complete",
		"outcome", outcome.String(),
		"audio_url", result.AudioURL,
		"duration", time.Since(start))
	return result, nil
}

// newRequestID returns a 32-char hex token correlating all artifacts of
// one request by filename prefix.
func newRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// sanitizeFilename strips any path components from a client-supplied name.
func sanitizeFilename(name string) string {
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "upload"
	}
	return name
}

// saveUpload writes the uploaded bytes to path.
func saveUpload(path string, data io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
