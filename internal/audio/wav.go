package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// WAV audio format codes.
const (
	formatPCM   = 1
	formatFloat = 3
)

// Format describes a WAV file header.
type Format struct {
	AudioFormat int
	Channels    int
	SampleRate  int
	BitDepth    int
	Duration    time.Duration
}

// Verify checks that path holds a mono 44.1kHz capture in 16-bit PCM or
// 32-bit PCM/float.
func Verify(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, fmt.Errorf("%w: %w", ErrBadRecording, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Format{}, fmt.Errorf("%w: %s is not a WAV file", ErrBadRecording, path)
	}

	format := Format{
		AudioFormat: int(dec.WavAudioFormat),
		Channels:    int(dec.NumChans),
		SampleRate:  int(dec.SampleRate),
		BitDepth:    int(dec.BitDepth),
	}

	if d, err := dec.Duration(); err == nil {
		format.Duration = d
	}

	switch {
	case format.AudioFormat != formatPCM && format.AudioFormat != formatFloat:
		return format, fmt.Errorf("%w: audio format %d", ErrBadRecording, format.AudioFormat)
	case format.Channels != Channels:
		return format, fmt.Errorf("%w: %d channels", ErrBadRecording, format.Channels)
	case format.SampleRate != SampleRate:
		return format, fmt.Errorf("%w: %d Hz", ErrBadRecording, format.SampleRate)
	case format.BitDepth != 16 && format.BitDepth != 32:
		return format, fmt.Errorf("%w: %d bit", ErrBadRecording, format.BitDepth)
	}

	return format, nil
}
