package syncer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/audio/resampler"
)

// ToSamples converts a track into mono float64 samples.
func ToSamples(
	encoding audio.Encoding,
	channels audio.Channel,
	data []byte,
) ([]float64, error) {
	encPCM, ok := encoding.(audio.EncodingPCM)
	if !ok {
		return nil, fmt.Errorf("unsupported encoding type: %T", encoding)
	}
	if encPCM.SampleRate == 0 {
		return nil, fmt.Errorf("sample rate is mandatory")
	}

	r, err := resampler.NewResampler(
		resampler.Format{
			Channels:   channels,
			SampleRate: encPCM.SampleRate,
			PCMFormat:  encPCM.PCMFormat,
		},
		bytes.NewReader(data),
		resampler.Format{
			Channels:   1,
			SampleRate: encPCM.SampleRate,
			PCMFormat:  audio.PCMFormatFloat64LE,
		},
	)
	if err != nil {
		return nil, err
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to convert the track: %w", err)
	}

	samples := make([]float64, len(out)/8)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(out[i*8:]))
	}
	return samples, nil
}

// FFTSize returns the smallest power of two that fits a linear (not
// circular) correlation of tracks of the given lengths.
func FFTSize(n1, n2 int) int {
	n := 1
	for n < n1+n2-1 {
		n <<= 1
	}
	return n
}
