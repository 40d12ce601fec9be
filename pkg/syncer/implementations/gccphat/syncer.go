// Package gccphat estimates the shift between tracks with the Generalized
// Cross-Correlation with Phase Transform.
//
// The cross-spectrum of the tracks is whitened (only its phase is kept)
// inside a frequency band, so the correlation peak depends on the timing of
// the tracks rather than on their loudness or coloration. This makes it
// suitable for comparing a signal with its noise-suppressed version.
package gccphat

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/mjibson/go-dsp/fft"
	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/syncer"
)

const (
	DefaultMinFreq = 100
	DefaultMaxFreq = 12000
)

type Syncer struct {
	encoding audio.EncodingPCM
	channels audio.Channel

	// MinFreq and MaxFreq bound the compared band (Hz).
	MinFreq float64
	MaxFreq float64

	// MaxShift limits the searched shift in samples; zero means half of the FFT size.
	MaxShift int
}

var _ syncer.Syncer = (*Syncer)(nil)

// NewSyncer returns a one-shot syncer for tracks of the given PCM encoding.
func NewSyncer(
	encoding audio.Encoding,
	channels audio.Channel,
) (*Syncer, error) {
	pcm, ok := encoding.(audio.EncodingPCM)
	if !ok {
		return nil, fmt.Errorf("only PCM encodings are supported, got %T", encoding)
	}
	if pcm.SampleRate == 0 {
		return nil, fmt.Errorf("the sample rate is not set")
	}
	if channels == 0 {
		return nil, fmt.Errorf("the amount of channels is zero")
	}
	return &Syncer{
		encoding: pcm,
		channels: channels,
		MinFreq:  DefaultMinFreq,
		MaxFreq:  DefaultMaxFreq,
	}, nil
}

func (s *Syncer) Close() error {
	return nil
}

func (s *Syncer) Encoding(context.Context) (audio.Encoding, error) {
	return s.encoding, nil
}

func (s *Syncer) Channels(context.Context) (audio.Channel, error) {
	return s.channels, nil
}

func (s *Syncer) params() Params {
	return Params{
		SampleRate: float64(s.encoding.SampleRate),
		MinFreq:    s.MinFreq,
		MaxFreq:    s.MaxFreq,
		MaxShift:   s.MaxShift,
	}
}

func (s *Syncer) CalculateShiftBetween(
	ctx context.Context,
	referenceTrack []byte,
	comparisonTracks ...[]byte,
) (_ret []syncer.ShiftResult, _err error) {
	logger.Tracef(ctx, "CalculateShiftBetween(%d bytes, %d tracks)", len(referenceTrack), len(comparisonTracks))
	defer func() { logger.Tracef(ctx, "/CalculateShiftBetween: %v %v", _ret, _err) }()

	ref, err := syncer.ToSamples(s.encoding, s.channels, referenceTrack)
	if err != nil {
		return nil, fmt.Errorf("unable to decode the reference track: %w", err)
	}
	if len(ref) == 0 {
		return nil, fmt.Errorf("the reference track is empty")
	}

	// the tracks of the same length share the FFT size
	refSpectra := map[int][]complex128{}
	results := make([]syncer.ShiftResult, 0, len(comparisonTracks))
	for idx, track := range comparisonTracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		comp, err := syncer.ToSamples(s.encoding, s.channels, track)
		if err != nil {
			return nil, fmt.Errorf("unable to decode the comparison track #%d: %w", idx, err)
		}
		if len(comp) == 0 {
			return nil, fmt.Errorf("the comparison track #%d is empty", idx)
		}

		n := syncer.FFTSize(len(ref), len(comp))
		refSpectrum, ok := refSpectra[n]
		if !ok {
			refSpectrum = spectrum(ref, n)
			refSpectra[n] = refSpectrum
		}

		shift, confidence, err := CrossCorrelate(refSpectrum, spectrum(comp, n), s.params())
		if err != nil {
			return nil, fmt.Errorf("unable to correlate the comparison track #%d: %w", idx, err)
		}
		results = append(results, syncer.ShiftResult{
			Shift:      shift,
			Confidence: confidence,
		})
	}
	return results, nil
}

// spectrum returns the FFT of the samples zero-padded to n.
func spectrum(samples []float64, n int) []complex128 {
	padded := make([]complex128, n)
	for i, v := range samples {
		padded[i] = complex(v, 0)
	}
	return fft.FFT(padded)
}
