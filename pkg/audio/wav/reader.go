package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/xaionaro-go/koala/pkg/audio/types"
)

var ErrUnsupportedFormat = errors.New("unsupported WAV format")

// Reader reads signed 16-bit samples from a WAV file.
type Reader struct {
	decoder *wav.Decoder
	buf     *goaudio.IntBuffer
}

func NewReader(r io.ReadSeeker) (*Reader, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file: %w", ErrUnsupportedFormat)
	}
	if decoder.BitDepth != 16 {
		return nil, fmt.Errorf("only 16-bit WAV files are supported, got %d-bit: %w", decoder.BitDepth, ErrUnsupportedFormat)
	}
	return &Reader{
		decoder: decoder,
	}, nil
}

func (r *Reader) SampleRate() types.SampleRate {
	return types.SampleRate(r.decoder.SampleRate)
}

func (r *Reader) Channels() types.Channel {
	return types.Channel(r.decoder.NumChans)
}

// Require checks that the file is mono at the given sample rate.
func (r *Reader) Require(sampleRate types.SampleRate) error {
	if r.Channels() != 1 {
		return fmt.Errorf("the WAV file must be single-channel, got %d channels: %w", r.Channels(), ErrUnsupportedFormat)
	}
	if r.SampleRate() != sampleRate {
		return fmt.Errorf("the WAV file must have a sample rate of %d, got %d: %w", sampleRate, r.SampleRate(), ErrUnsupportedFormat)
	}
	return nil
}

// ReadSamples reads up to len(dst) interleaved samples. It returns io.EOF
// when there is nothing left.
func (r *Reader) ReadSamples(dst []int16) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if r.buf == nil || cap(r.buf.Data) < len(dst) {
		r.buf = &goaudio.IntBuffer{
			Format:         r.decoder.Format(),
			Data:           make([]int, len(dst)),
			SourceBitDepth: int(r.decoder.BitDepth),
		}
	}
	r.buf.Data = r.buf.Data[:len(dst)]

	n, err := r.decoder.PCMBuffer(r.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("unable to read PCM samples: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	for idx, v := range r.buf.Data[:n] {
		dst[idx] = int16(v)
	}
	return n, nil
}

// ReadAll reads every remaining sample.
func (r *Reader) ReadAll() ([]int16, error) {
	var (
		result []int16
		chunk  = make([]int16, 4096)
	)
	for {
		n, err := r.ReadSamples(chunk)
		result = append(result, chunk[:n]...)
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// PCM returns the remaining samples as a stream of S16LE bytes.
func (r *Reader) PCM() io.Reader {
	return &pcmReader{reader: r}
}

type pcmReader struct {
	reader  *Reader
	samples []int16
	pending []byte
}

func (p *pcmReader) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		count := min(max(len(b)/2, 1), 4096)
		if cap(p.samples) < count {
			p.samples = make([]int16, count)
		}
		n, err := p.reader.ReadSamples(p.samples[:count])
		if n == 0 {
			return 0, err
		}
		p.pending = p.pending[:0]
		for _, v := range p.samples[:n] {
			p.pending = binary.LittleEndian.AppendUint16(p.pending, uint16(v))
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}
