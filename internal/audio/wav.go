package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/youpy/go-wav"
)

var (
	ErrEmptyClip         = errors.New("speech clip is empty")
	ErrUnsupportedFormat = errors.New("unsupported wav format")
)

// Clip is decoded PCM audio with samples interleaved by channel and scaled to [-1, 1].
type Clip struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Duration is the playing time of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Decode parses a RIFF/WAVE payload holding integer PCM with one or two channels.
func Decode(data []byte) (Clip, error) {
	if len(data) == 0 {
		return Clip{}, ErrEmptyClip
	}

	reader := wav.NewReader(bytes.NewReader(data))
	format, err := reader.Format()
	if err != nil {
		return Clip{}, fmt.Errorf("failed to read wav header: %w", err)
	}
	if format.AudioFormat != wav.AudioFormatPCM {
		return Clip{}, fmt.Errorf("%w: audio format %d", ErrUnsupportedFormat, format.AudioFormat)
	}
	if format.NumChannels < 1 || format.NumChannels > 2 {
		return Clip{}, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, format.NumChannels)
	}
	scale, offset, err := pcmScale(format.BitsPerSample)
	if err != nil {
		return Clip{}, err
	}

	channels := int(format.NumChannels)
	clip := Clip{SampleRate: int(format.SampleRate), Channels: channels}
	for {
		samples, err := reader.ReadSamples(2048)
		for _, sample := range samples {
			for ch := 0; ch < channels; ch++ {
				clip.Samples = append(clip.Samples, float32(float64(sample.Values[ch]-offset)/scale))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Clip{}, fmt.Errorf("failed to read wav samples: %w", err)
		}
		if len(samples) == 0 {
			break
		}
	}
	if len(clip.Samples) == 0 {
		return Clip{}, ErrEmptyClip
	}
	return clip, nil
}

// pcmScale returns the divisor and zero offset for integer PCM of the given width.
func pcmScale(bits uint16) (float64, int, error) {
	switch bits {
	case 8:
		return 128, 128, nil
	case 16:
		return 32768, 0, nil
	case 24:
		return 8388608, 0, nil
	case 32:
		return 2147483648, 0, nil
	default:
		return 0, 0, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, bits)
	}
}
