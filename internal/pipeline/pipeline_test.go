package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/lingopipe/internal/metrics"
	"github.com/nadzzz/lingopipe/internal/pipeline"
	"github.com/nadzzz/lingopipe/internal/stt"
	"github.com/nadzzz/lingopipe/internal/translate"
	"github.com/nadzzz/lingopipe/internal/tts"
)

type fakeTranscoder struct {
	normalizeErr error
	normalized   [][2]string // in, out pairs
	encoded      []string    // mp3 output paths
}

func (f *fakeTranscoder) Normalize(_ context.Context, inPath, outPath string) error {
	f.normalized = append(f.normalized, [2]string{inPath, outPath})
	if f.normalizeErr != nil {
		return f.normalizeErr
	}
	return os.WriteFile(outPath, []byte("wav"), 0o600)
}

func (f *fakeTranscoder) EncodeMP3(_ context.Context, wav []byte, outPath string) error {
	f.encoded = append(f.encoded, outPath)
	return os.WriteFile(outPath, wav, 0o600)
}

type fakeTranscriber struct {
	gotPath string
	out     string
	err     error
}

func (f *fakeTranscriber) Name() string { return "fake" }
func (f *fakeTranscriber) Transcribe(_ context.Context, path string, _ stt.TranscribeOpts) (string, error) {
	f.gotPath = path
	return f.out, f.err
}
func (f *fakeTranscriber) Close() error { return nil }

type fakeCorrector struct {
	gotText string
	out     string
	err     error
}

func (f *fakeCorrector) Correct(_ context.Context, text string) (string, error) {
	f.gotText = text
	if f.err != nil {
		return "", f.err
	}
	if f.out != "" {
		return f.out, nil
	}
	return text, nil
}

type fakeTranslator struct {
	gotText string
	gotCode string
	out     string
	outcome translate.Outcome
	err     error
}

func (f *fakeTranslator) Translate(_ context.Context, text, code string) (string, translate.Outcome, error) {
	f.gotText = text
	f.gotCode = code
	if f.err != nil {
		return "", f.outcome, f.err
	}
	if f.outcome != translate.OutcomeTranslated {
		return text, f.outcome, nil
	}
	return f.out, f.outcome, nil
}

type fakeSynthesizer struct {
	gotText string
	gotLang string
	err     error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	f.gotText = text
	f.gotLang = opts.Language
	if f.err != nil {
		return nil, f.err
	}
	return &tts.SynthesizeResult{Audio: []byte("RIFFwav"), ContentType: "audio/wav"}, nil
}
func (f *fakeSynthesizer) Close() error { return nil }

type fixture struct {
	transcoder  *fakeTranscoder
	transcriber *fakeTranscriber
	corrector   *fakeCorrector
	translator  *fakeTranslator
	synthesizer *fakeSynthesizer
	uploadDir   string
	audioDir    string
	pipe        *pipeline.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		transcoder:  &fakeTranscoder{},
		transcriber: &fakeTranscriber{out: "  i has a apple  "},
		corrector:   &fakeCorrector{out: "I have an apple"},
		translator:  &fakeTranslator{outcome: translate.OutcomeIdentity},
		synthesizer: &fakeSynthesizer{},
		uploadDir:   t.TempDir(),
		audioDir:    t.TempDir(),
	}
	f.pipe = pipeline.New(f.transcoder, f.transcriber, f.corrector, f.translator,
		f.synthesizer, metrics.New(prometheus.NewRegistry()), f.uploadDir, f.audioDir)
	return f
}

func (f *fixture) process(t *testing.T, lang string) *pipeline.Result {
	t.Helper()
	result, err := f.pipe.Process(context.Background(), pipeline.Upload{
		Filename:       "recording.webm",
		Data:           strings.NewReader("uploaded audio bytes"),
		TargetLanguage: lang,
	})
	require.NoError(t, err)
	return result
}

func TestProcessHappyPath(t *testing.T) {
	f := newFixture(t)
	result := f.process(t, "en")

	assert.Equal(t, "i has a apple", result.Raw, "transcription is trimmed")
	assert.Equal(t, "I have an apple", result.Corrected)
	assert.Equal(t, "I have an apple", result.Translated, "identity for en")
	assert.Empty(t, result.Warning)

	// The corrector sees the trimmed raw text; the synthesizer speaks the
	// translated text.
	assert.Equal(t, "i has a apple", f.corrector.gotText)
	assert.Equal(t, "I have an apple", f.synthesizer.gotText)

	// The audio URL points at an existing MP3.
	require.Len(t, f.transcoder.encoded, 1)
	mp3Path := f.transcoder.encoded[0]
	assert.Equal(t, "/static/audio/"+filepath.Base(mp3Path), result.AudioURL)
	_, err := os.Stat(mp3Path)
	assert.NoError(t, err)
}

func TestProcessArtifactCorrelation(t *testing.T) {
	f := newFixture(t)
	result := f.process(t, "en")

	// The transcriber received {id}.wav; derive the request id from it.
	wavName := filepath.Base(f.transcriber.gotPath)
	id := strings.TrimSuffix(wavName, ".wav")
	require.Len(t, id, 32, "request id is a 32-char hex token")

	// Upload, waveform, and synthesized audio all share the id prefix.
	_, err := os.Stat(filepath.Join(f.uploadDir, id+"_recording.webm"))
	assert.NoError(t, err, "upload persisted as {id}_{filename}")
	_, err = os.Stat(filepath.Join(f.uploadDir, id+".wav"))
	assert.NoError(t, err, "waveform persisted as {id}.wav")
	assert.Equal(t, "/static/audio/"+id+".mp3", result.AudioURL)
}

func TestProcessTranscodeFallback(t *testing.T) {
	f := newFixture(t)
	f.transcoder.normalizeErr = errors.New("ffmpeg exited 1")

	result := f.process(t, "en")

	// The pipeline completes using the original upload.
	assert.Equal(t, "i has a apple", result.Raw)
	assert.Contains(t, filepath.Base(f.transcriber.gotPath), "_recording.webm",
		"transcriber received the original upload, not the waveform")
}

func TestProcessTranslated(t *testing.T) {
	f := newFixture(t)
	f.translator.outcome = translate.OutcomeTranslated
	f.translator.out = "Tengo una manzana"

	result := f.process(t, "es")

	assert.Equal(t, "I have an apple", f.translator.gotText)
	assert.Equal(t, "es", f.translator.gotCode)
	assert.Equal(t, "Tengo una manzana", result.Translated)
	assert.Equal(t, "Tengo una manzana", f.synthesizer.gotText)
	assert.Equal(t, "es", f.synthesizer.gotLang, "audio voice follows the target language")
	assert.Empty(t, result.Warning)
}

func TestProcessUnsupportedLanguage(t *testing.T) {
	f := newFixture(t)
	f.translator.outcome = translate.OutcomeUnsupported

	result := f.process(t, "zz")

	assert.Equal(t, result.Corrected, result.Translated, "text returned untranslated")
	assert.Contains(t, result.Warning, `"zz"`)
	assert.Equal(t, "en", f.synthesizer.gotLang, "voice falls back to the source language")
}

func TestProcessSilentAudio(t *testing.T) {
	f := newFixture(t)
	f.transcriber.out = "   "
	f.corrector.out = ""

	result := f.process(t, "en")

	assert.Empty(t, result.Raw)
	assert.Empty(t, result.Translated)
	assert.Empty(t, result.AudioURL, "nothing to synthesize")
	assert.Empty(t, f.synthesizer.gotText, "synthesizer never called")
	assert.Empty(t, f.transcoder.encoded)
}

func TestProcessTranscriptionFailure(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = errors.New("model crashed")

	_, err := f.pipe.Process(context.Background(), pipeline.Upload{
		Filename: "recording.webm",
		Data:     strings.NewReader("bytes"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcription")
}

func TestProcessSynthesisFailure(t *testing.T) {
	f := newFixture(t)
	f.synthesizer.err = errors.New("engine gone")

	_, err := f.pipe.Process(context.Background(), pipeline.Upload{
		Filename: "recording.webm",
		Data:     strings.NewReader("bytes"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speech synthesis")
}

func TestProcessNoData(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipe.Process(context.Background(), pipeline.Upload{Filename: "x"})
	assert.ErrorIs(t, err, pipeline.ErrNoAudio)
}

func TestProcessFilenameSanitized(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipe.Process(context.Background(), pipeline.Upload{
		Filename: "../../etc/passwd",
		Data:     strings.NewReader("bytes"),
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(f.uploadDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "..")
		assert.True(t, strings.HasSuffix(e.Name(), "passwd") || strings.HasSuffix(e.Name(), ".wav"))
	}
}
