package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/koala/pkg/audio/resampler"
)

type float32Reader interface {
	Read(p []float32) (int, error)
}

type readerFromFloat32Reader struct {
	float32Reader
	buf []float32
}

var _ io.Reader = (*readerFromFloat32Reader)(nil)

func newReaderFromFloat32Reader(r float32Reader) *readerFromFloat32Reader {
	return &readerFromFloat32Reader{float32Reader: r}
}

// Read returns the samples as PCMFormatFloat32LE.
func (r *readerFromFloat32Reader) Read(p []byte) (int, error) {
	samples := len(p) / 4
	if samples == 0 {
		return 0, nil
	}
	if cap(r.buf) < samples {
		r.buf = make([]float32, samples)
	}
	r.buf = r.buf[:samples]

	n, err := r.float32Reader.Read(r.buf)
	for idx, v := range r.buf[:n] {
		binary.LittleEndian.PutUint32(p[idx*4:], math.Float32bits(v))
	}
	return n * 4, err
}

// DecodeVorbis decodes an Ogg Vorbis stream and converts it to the requested
// PCM layout.
func DecodeVorbis(
	r io.Reader,
	sampleRate SampleRate,
	channels Channel,
	pcmFormat PCMFormat,
) ([]byte, error) {
	oggReader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a vorbis reader: %w", err)
	}

	conv, err := resampler.NewResampler(
		resampler.Format{
			Channels:   Channel(oggReader.Channels()),
			SampleRate: SampleRate(oggReader.SampleRate()),
			PCMFormat:  PCMFormatFloat32LE,
		},
		newReaderFromFloat32Reader(oggReader),
		resampler.Format{
			Channels:   channels,
			SampleRate: sampleRate,
			PCMFormat:  pcmFormat,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a resampler: %w", err)
	}

	result, err := io.ReadAll(conv)
	if err != nil {
		return nil, fmt.Errorf("unable to decode the vorbis stream: %w", err)
	}
	return result, nil
}
