package fft

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/brettbuddin/fourier"
	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/syncer"
)

// Syncer finds the shift by the peak of the plain (not whitened)
// cross-correlation. It works best on broadband signals like speech,
// and its confidence is the normalized correlation coefficient.
type Syncer struct {
	EncodingValue audio.Encoding
	ChannelsValue audio.Channel

	// MaxShift limits the searched shift in samples; zero means no limit.
	MaxShift int
}

var _ syncer.Syncer = (*Syncer)(nil)

func NewSyncer(
	encoding audio.Encoding,
	channels audio.Channel,
) *Syncer {
	return &Syncer{
		EncodingValue: encoding,
		ChannelsValue: channels,
	}
}

func (s *Syncer) Close() error {
	return nil
}

func (s *Syncer) Encoding(
	ctx context.Context,
) (audio.Encoding, error) {
	return s.EncodingValue, nil
}

func (s *Syncer) Channels(
	ctx context.Context,
) (audio.Channel, error) {
	return s.ChannelsValue, nil
}

func (s *Syncer) CalculateShiftBetween(
	ctx context.Context,
	referenceTrack []byte,
	comparisonTracks ...[]byte,
) ([]syncer.ShiftResult, error) {
	refSamples, err := syncer.ToSamples(s.EncodingValue, s.ChannelsValue, referenceTrack)
	if err != nil {
		return nil, fmt.Errorf("failed to convert reference track to samples: %w", err)
	}
	if len(refSamples) == 0 {
		return nil, fmt.Errorf("the reference track is empty")
	}

	results := make([]syncer.ShiftResult, len(comparisonTracks))
	for i, comparisonTrack := range comparisonTracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		compSamples, err := syncer.ToSamples(s.EncodingValue, s.ChannelsValue, comparisonTrack)
		if err != nil {
			return nil, fmt.Errorf("failed to convert comparison track %d to samples: %w", i, err)
		}
		if len(compSamples) == 0 {
			return nil, fmt.Errorf("comparison track %d is empty", i)
		}

		shift, confidence, err := s.correlate(refSamples, compSamples)
		if err != nil {
			return nil, fmt.Errorf("failed to correlate track %d: %w", i, err)
		}
		results[i] = syncer.ShiftResult{
			Shift:      shift,
			Confidence: confidence,
		}
	}
	return results, nil
}

func (s *Syncer) correlate(ref, comp []float64) (float64, float64, error) {
	n := syncer.FFTSize(len(ref), len(comp))

	fref := toComplex(ref, n)
	fcomp := toComplex(comp, n)
	if err := fourier.Forward(fref); err != nil {
		return 0, 0, fmt.Errorf("unable to transform the reference track: %w", err)
	}
	if err := fourier.Forward(fcomp); err != nil {
		return 0, 0, fmt.Errorf("unable to transform the comparison track: %w", err)
	}

	cross := make([]complex128, n)
	for i := range cross {
		cross[i] = fcomp[i] * cmplx.Conj(fref[i])
	}
	correlation, err := inverse(cross)
	if err != nil {
		return 0, 0, err
	}

	energy := math.Sqrt(sumSquares(ref) * sumSquares(comp))
	if energy == 0 {
		return 0, 0, nil
	}

	minLag, maxLag := -(len(ref) - 1), len(comp)-1
	if s.MaxShift > 0 {
		minLag = max(minLag, -s.MaxShift)
		maxLag = min(maxLag, s.MaxShift)
	}
	bestLag, bestVal := 0, math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		if v := correlation[(lag+n)%n]; v > bestVal {
			bestLag, bestVal = lag, v
		}
	}

	confidence := math.Max(0, math.Min(bestVal/energy, 1))
	return -float64(bestLag), confidence, nil
}

func toComplex(samples []float64, n int) []complex128 {
	out := make([]complex128, n)
	for i, v := range samples {
		out[i] = complex(v, 0)
	}
	return out
}

// inverse is the inverse DFT expressed through the forward one:
// x = conj(F(conj(X))) / n.
func inverse(spectrum []complex128) ([]float64, error) {
	n := len(spectrum)
	buf := make([]complex128, n)
	for i, c := range spectrum {
		buf[i] = cmplx.Conj(c)
	}
	if err := fourier.Forward(buf); err != nil {
		return nil, fmt.Errorf("unable to calculate the inverse transform: %w", err)
	}
	out := make([]float64, n)
	for i, c := range buf {
		out[i] = real(c) / float64(n)
	}
	return out, nil
}

func sumSquares(samples []float64) float64 {
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return sum
}
