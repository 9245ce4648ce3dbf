package audio

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV writes one second of silence with the given header fields.
func writeWAV(t *testing.T, path string, rate, depth, chans int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, depth, chans, formatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: chans, SampleRate: rate},
		Data:           make([]int, rate*chans),
		SourceBitDepth: depth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func TestVerifyAcceptsMonoCapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mic.wav")
	writeWAV(t, path, SampleRate, 16, 1)

	f, err := Verify(path)
	require.NoError(t, err)
	assert.Equal(t, formatPCM, f.AudioFormat)
	assert.Equal(t, 1, f.Channels)
	assert.Equal(t, SampleRate, f.SampleRate)
	assert.Equal(t, 16, f.BitDepth)
}

func TestVerifyRejectsWrongHeader(t *testing.T) {
	tests := []struct {
		name  string
		rate  int
		depth int
		chans int
	}{
		{"stereo", SampleRate, 16, 2},
		{"telephony rate", 16000, 16, 1},
		{"8 bit", SampleRate, 8, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mic.wav")
			writeWAV(t, path, tt.rate, tt.depth, tt.chans)

			_, err := Verify(path)
			assert.ErrorIs(t, err, ErrBadRecording)
		})
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mic.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a riff file at all"), 0o600))

	_, err := Verify(path)
	assert.ErrorIs(t, err, ErrBadRecording)

	_, err = Verify(filepath.Join(dir, "missing.wav"))
	assert.ErrorIs(t, err, ErrBadRecording)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
