package piper

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/lingopipe/internal/config"
	"github.com/nadzzz/lingopipe/internal/tts"
)

// fakeWyomingServer accepts one connection and answers a synthesize event
// with the given PCM payload, or an error event when errText is set.
func fakeWyomingServer(t *testing.T, pcm []byte, errText string, gotEvent *wyomingEvent) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		evt, _, err := readEvent(conn)
		if err != nil {
			return
		}
		if gotEvent != nil {
			*gotEvent = *evt
		}

		if errText != "" {
			_ = writeEvent(conn, wyomingEvent{
				Type: "error",
				Data: map[string]any{"text": errText},
			}, nil)
			return
		}

		_ = writeEvent(conn, wyomingEvent{
			Type: "audio-start",
			Data: map[string]any{"rate": float64(22050), "channels": float64(1), "width": float64(2)},
		}, nil)
		_ = writeEvent(conn, wyomingEvent{Type: "audio-chunk"}, pcm)
		_ = writeEvent(conn, wyomingEvent{Type: "audio-stop"}, nil)
	}()

	return ln.Addr().String()
}

func TestSynthesize(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	var gotEvent wyomingEvent
	addr := fakeWyomingServer(t, pcm, "", &gotEvent)

	s := New(config.TTSConfig{Endpoint: addr, LengthScale: 1.2, TimeoutSeconds: 5})

	result, err := s.Synthesize(context.Background(), "I have an apple", tts.SynthesizeOpts{Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, "audio/wav", result.ContentType)
	assert.Equal(t, 22050, result.SampleRate)
	assert.Equal(t, 1, result.Channels)

	// WAV container: 44-byte header followed by the PCM payload.
	require.Len(t, result.Audio, 44+len(pcm))
	assert.Equal(t, "RIFF", string(result.Audio[:4]))
	assert.Equal(t, "WAVE", string(result.Audio[8:12]))
	assert.Equal(t, pcm, result.Audio[44:])

	// The synthesize event carries the voice and the fixed speech rate.
	assert.Equal(t, "synthesize", gotEvent.Type)
	assert.Equal(t, "I have an apple", gotEvent.Data["text"])
	assert.Equal(t, 1.2, gotEvent.Data["length_scale"])
	voice, ok := gotEvent.Data["voice"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "en_US-lessac-medium", voice["name"])
}

func TestSynthesizeVoiceSelection(t *testing.T) {
	var gotEvent wyomingEvent
	addr := fakeWyomingServer(t, []byte{0}, "", &gotEvent)

	s := New(config.TTSConfig{
		Endpoint:       addr,
		Voices:         map[string]string{"es": "es_MX-custom-high"},
		TimeoutSeconds: 5,
	})

	_, err := s.Synthesize(context.Background(), "Tengo una manzana", tts.SynthesizeOpts{Language: "es"})
	require.NoError(t, err)

	voice, ok := gotEvent.Data["voice"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "es_MX-custom-high", voice["name"], "config voices override defaults")
}

func TestSynthesizeUnknownLanguageFallsBackToEnglish(t *testing.T) {
	var gotEvent wyomingEvent
	addr := fakeWyomingServer(t, []byte{0}, "", &gotEvent)

	s := New(config.TTSConfig{Endpoint: addr, TimeoutSeconds: 5})

	_, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Language: "zz"})
	require.NoError(t, err)

	voice := gotEvent.Data["voice"].(map[string]any)
	assert.Equal(t, "en_US-lessac-medium", voice["name"])
}

func TestSynthesizeServerError(t *testing.T) {
	addr := fakeWyomingServer(t, nil, "voice not found", nil)

	s := New(config.TTSConfig{Endpoint: addr, TimeoutSeconds: 5})

	_, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Language: "en"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voice not found")
}

func TestSynthesizeEmptyText(t *testing.T) {
	s := New(config.TTSConfig{Endpoint: "localhost:10200", TimeoutSeconds: 5})

	_, err := s.Synthesize(context.Background(), "", tts.SynthesizeOpts{})
	require.Error(t, err)
}

func TestSynthesizeConnectFailure(t *testing.T) {
	// Reserve a port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	s := New(config.TTSConfig{Endpoint: addr, TimeoutSeconds: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = s.Synthesize(ctx, "hello", tts.SynthesizeOpts{Language: "en"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to piper")
}
