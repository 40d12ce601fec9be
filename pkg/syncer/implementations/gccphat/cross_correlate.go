package gccphat

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const (
	// bins weaker than this fraction of the strongest one are not whitened
	// (-60 dB), otherwise PHAT amplifies numerical noise
	whiteningFloor = 0.001
)

// Params limits the correlation.
type Params struct {
	SampleRate float64

	// MinFreq and MaxFreq bound the used frequency band (Hz); zero means no bound.
	MinFreq float64
	MaxFreq float64

	// MaxShift bounds the searched shift (samples); zero means no bound.
	MaxShift int
}

func (p Params) bins(n int) (int, int) {
	binMin, binMax := 0, n/2
	if p.MinFreq > 0 {
		binMin = int(p.MinFreq * float64(n) / p.SampleRate)
	}
	if p.MaxFreq > 0 && p.MaxFreq < p.SampleRate/2 {
		binMax = int(p.MaxFreq * float64(n) / p.SampleRate)
	}
	return binMin, binMax
}

// CrossCorrelate estimates the shift of the comparison track relative to the
// reference track given the FFTs of both (of the same length).
// A positive shift means the comparison track leads the reference track.
func CrossCorrelate(fref, fcomp []complex128, params Params) (float64, float64, error) {
	if params.SampleRate <= 0 {
		return 0, 0, fmt.Errorf("sampleRate must be positive: got %v", params.SampleRate)
	}
	if len(fref) != len(fcomp) {
		return 0, 0, fmt.Errorf("fref and fcomp must have same length: %d != %d", len(fref), len(fcomp))
	}
	n := len(fref)
	binMin, binMax := params.bins(n)

	cross := make([]complex128, n)
	maxMag := 0.0
	for i := range cross {
		cross[i] = fcomp[i] * cmplx.Conj(fref[i])
		maxMag = math.Max(maxMag, cmplx.Abs(cross[i]))
	}
	threshold := math.Max(maxMag*whiteningFloor, 1e-12)

	activeBins := 0
	for i := range cross {
		freqIdx := i
		if i > n/2 {
			freqIdx = n - i
		}
		mag := cmplx.Abs(cross[i])
		if freqIdx < binMin || freqIdx > binMax || mag <= threshold {
			cross[i] = 0
			continue
		}
		cross[i] /= complex(mag, 0)
		activeBins++
	}
	if activeBins == 0 {
		return 0, 0, nil
	}

	correlation := fft.IFFT(cross)
	magnitude := func(lag int) float64 {
		return cmplx.Abs(correlation[(lag%n+n)%n])
	}

	maxLag := n / 2
	if params.MaxShift > 0 && params.MaxShift < maxLag {
		maxLag = params.MaxShift
	}
	bestLag, bestVal := 0, -1.0
	for lag := -maxLag; lag <= maxLag; lag++ {
		if v := magnitude(lag); v > bestVal {
			bestLag, bestVal = lag, v
		}
	}

	// parabolic sub-sample refinement
	shift := float64(bestLag)
	y1, y2, y3 := magnitude(bestLag-1), bestVal, magnitude(bestLag+1)
	if denom := y1 - 2*y2 + y3; y2 >= y1 && y2 >= y3 && math.Abs(denom) > 1e-12 {
		shift += (y1 - y3) / (2 * denom)
	}

	// a perfect match concentrates the whole whitened energy (activeBins/n
	// after the IFFT scaling) in one lag
	confidence := math.Min(bestVal*float64(n)/float64(activeBins), 1)

	// comp(t) = ref(t-lag) means comp lags behind, so lead is -lag
	return -shift, confidence, nil
}
