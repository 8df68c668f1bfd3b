package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"
)

// EncodeWAV encodes float32 PCM samples in [-1, 1] as a mono 16-bit WAV
// byte slice at the given sample rate.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	buf := &wavBuffer{}

	enc := wav.NewEncoder(buf, sampleRate, 16, 1, 1) // 1 = PCM

	pcm := &goaudio.Float32Buffer{
		Data:           samples,
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	}

	if err := enc.Write(pcm); err != nil {
		return nil, fmt.Errorf("writing PCM: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}

	return buf.data, nil
}

// WriteWAV encodes samples and writes them to path.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	data, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

// wavBuffer is an in-memory io.WriteSeeker. The encoder needs seeking to
// patch the RIFF chunk sizes into the header on Close.
type wavBuffer struct {
	data []byte
	pos  int64
}

func (b *wavBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if grow := end - int64(len(b.data)); grow > 0 {
		b.data = append(b.data, make([]byte, grow)...)
	}

	copy(b.data[b.pos:end], p)
	b.pos = end

	return len(p), nil
}

func (b *wavBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64

	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = b.pos + offset
	case io.SeekEnd:
		pos = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("unsupported whence %d", whence)
	}

	if pos < 0 {
		return 0, errors.New("seek before start of buffer")
	}

	b.pos = pos

	return pos, nil
}
