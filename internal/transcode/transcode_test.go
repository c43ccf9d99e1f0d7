package transcode_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/lingopipe/internal/transcode"
)

// fakeFFmpeg writes a shell script that creates its last argument (the
// output path), standing in for a successful ffmpeg run.
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	script := `#!/bin/sh
for last in "$@"; do :; done
: > "$last"
`
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func failingFFmpeg(t *testing.T) string {
	t.Helper()
	script := "#!/bin/sh\necho boom >&2\nexit 1\n"
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestNormalize(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.webm")
	out := filepath.Join(dir, "clip.wav")
	require.NoError(t, os.WriteFile(in, []byte("fake audio"), 0o600))

	f := transcode.New(fakeFFmpeg(t), 16000, 1, 10*time.Second)
	require.NoError(t, f.Normalize(context.Background(), in, out))

	_, err := os.Stat(out)
	assert.NoError(t, err, "output file should exist")
}

func TestNormalizeFailure(t *testing.T) {
	dir := t.TempDir()
	f := transcode.New(failingFFmpeg(t), 16000, 1, 10*time.Second)

	err := f.Normalize(context.Background(), filepath.Join(dir, "in"), filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.ErrorIs(t, err, transcode.ErrTranscode)
	assert.Contains(t, err.Error(), "boom")
}

func TestNormalizeMissingBinary(t *testing.T) {
	dir := t.TempDir()
	f := transcode.New(filepath.Join(dir, "no-such-ffmpeg"), 16000, 1, 10*time.Second)

	err := f.Normalize(context.Background(), "in", "out")
	assert.ErrorIs(t, err, transcode.ErrTranscode)
}

func TestEncodeMP3(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "speech.mp3")

	f := transcode.New(fakeFFmpeg(t), 16000, 1, 10*time.Second)
	require.NoError(t, f.EncodeMP3(context.Background(), []byte("RIFF...."), out))

	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestEncodeMP3Failure(t *testing.T) {
	f := transcode.New(failingFFmpeg(t), 16000, 1, 10*time.Second)
	err := f.EncodeMP3(context.Background(), []byte("RIFF...."), filepath.Join(t.TempDir(), "out.mp3"))
	assert.ErrorIs(t, err, transcode.ErrTranscode)
}
