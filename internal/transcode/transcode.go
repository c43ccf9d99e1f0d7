// Package transcode wraps the external ffmpeg binary for audio conversion.
//
// The service never parses audio itself: arbitrary uploaded containers are
// normalized to the mono 16 kHz WAV the transcription model expects, and
// synthesized WAV output is encoded to MP3 for serving, both by shelling out
// to ffmpeg.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"
)

// ErrTranscode indicates the external transcoder exited with a failure.
// Callers may treat it as non-fatal (the pipeline falls back to the
// original upload).
var ErrTranscode = errors.New("transcode failed")

// FFmpeg invokes ffmpeg with fixed arguments. Calls are synchronous and
// block until the process exits or the timeout elapses.
type FFmpeg struct {
	bin        string
	sampleRate int
	channels   int
	timeout    time.Duration
}

// New creates an FFmpeg transcoder.
func New(bin string, sampleRate, channels int, timeout time.Duration) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{
		bin:        bin,
		sampleRate: sampleRate,
		channels:   channels,
		timeout:    timeout,
	}
}

// Normalize converts the file at inPath (any container/codec ffmpeg accepts)
// into single-channel 16 kHz PCM WAV at outPath, overwriting any existing file.
func (f *FFmpeg) Normalize(ctx context.Context, inPath, outPath string) error {
	args := []string{
		"-y", "-i", inPath,
		"-ar", strconv.Itoa(f.sampleRate),
		"-ac", strconv.Itoa(f.channels),
		"-loglevel", "quiet",
		outPath,
	}
	return f.run(ctx, args, nil)
}

// EncodeMP3 encodes WAV bytes to an MP3 file at outPath, overwriting any
// existing file. The input is streamed over stdin so no intermediate file
// is written.
func (f *FFmpeg) EncodeMP3(ctx context.Context, wav []byte, outPath string) error {
	args := []string{
		"-y", "-f", "wav", "-i", "pipe:0",
		"-loglevel", "quiet",
		outPath,
	}
	return f.run(ctx, args, wav)
}

func (f *FFmpeg) run(ctx context.Context, args []string, stdin []byte) error {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.bin, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	slog.Debug("running transcoder", "bin", f.bin, "args", args)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s %v: %v: %s", ErrTranscode, f.bin, args, err, output)
	}
	return nil
}
