// Package gccphat tracks the shift between live streams by GCC-PHAT
// correlating fixed windows of the comparison track against the reference
// track around the same position.
package gccphat

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/mjibson/go-dsp/fft"
	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/syncer"
	syncergccphat "github.com/xaionaro-go/koala/pkg/syncer/implementations/gccphat"
	"github.com/xaionaro-go/koala/pkg/syncerstream"
)

const (
	DefaultWindowDuration = 250 * time.Millisecond
	DefaultMaxLagDuration = 100 * time.Millisecond
)

type ring struct {
	samples []float64
	count   int64
}

func (r *ring) push(samples []float64) {
	for _, v := range samples {
		r.samples[r.count%int64(len(r.samples))] = v
		r.count++
	}
}

// at returns the sample at the given absolute position or zero if
// it is not (or no longer) buffered.
func (r *ring) at(pos int64) float64 {
	if pos < 0 || pos >= r.count || pos < r.count-int64(len(r.samples)) {
		return 0
	}
	return r.samples[pos%int64(len(r.samples))]
}

type track struct {
	ring
	nextPos int64
}

// Syncer implements syncerstream.SyncerStream.
type Syncer struct {
	locker     sync.Mutex
	encoding   audio.EncodingPCM
	channels   audio.Channel
	params     syncergccphat.Params
	windowSize int
	hopSize    int
	maxLag     int
	fftSize    int
	hann       []float64
	reference  ring
	tracks     map[int]*track
}

var _ syncerstream.SyncerStream = (*Syncer)(nil)

type Factory struct {
	WindowSize int
	HopSize    int
	MaxLag     int
	MinFreq    float64
	MaxFreq    float64
}

var _ syncerstream.Factory = (*Factory)(nil)

func (f *Factory) NewSyncer(encoding audio.Encoding, channels audio.Channel) (syncerstream.SyncerStream, error) {
	return NewSyncer(encoding, channels, f.WindowSize, f.HopSize, f.MaxLag, f.MinFreq, f.MaxFreq)
}

// NewSyncer creates a stream syncer. Zero values select defaults:
// a 250ms window, 50% overlap, a 100ms search range and the 100Hz..8kHz band.
func NewSyncer(
	encoding audio.Encoding,
	channels audio.Channel,
	windowSize, hopSize, maxLag int,
	minFreq, maxFreq float64,
) (*Syncer, error) {
	pcm, ok := encoding.(audio.EncodingPCM)
	if !ok {
		return nil, fmt.Errorf("unsupported encoding type: %T", encoding)
	}
	if pcm.SampleRate == 0 {
		return nil, fmt.Errorf("sample rate is mandatory")
	}
	if channels == 0 {
		return nil, fmt.Errorf("the amount of channels is zero")
	}
	rate := float64(pcm.SampleRate)

	if windowSize <= 0 {
		windowSize = int(rate * DefaultWindowDuration.Seconds())
	}
	if hopSize <= 0 {
		hopSize = windowSize / 2
	}
	if hopSize <= 0 {
		hopSize = 1
	}
	if maxLag <= 0 {
		maxLag = int(rate * DefaultMaxLagDuration.Seconds())
	}
	if minFreq == 0 && maxFreq == 0 {
		minFreq, maxFreq = 100, 8000
	}

	hann := make([]float64, windowSize)
	for i := range hann {
		hann[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(max(windowSize-1, 1))))
	}

	fftSize := 1
	for fftSize < 2*(windowSize+2*maxLag) {
		fftSize <<= 1
	}

	bufferSize := 4 * (windowSize + 2*maxLag)
	return &Syncer{
		encoding:   pcm,
		channels:   channels,
		windowSize: windowSize,
		hopSize:    hopSize,
		maxLag:     maxLag,
		fftSize:    fftSize,
		hann:       hann,
		params: syncergccphat.Params{
			SampleRate: rate,
			MinFreq:    minFreq,
			MaxFreq:    maxFreq,
			MaxShift:   maxLag,
		},
		reference: ring{samples: make([]float64, bufferSize)},
		tracks:    map[int]*track{},
	}, nil
}

func (s *Syncer) getTrack(trackID int) *track {
	t, ok := s.tracks[trackID]
	if !ok {
		t = &track{ring: ring{samples: make([]float64, len(s.reference.samples))}}
		s.tracks[trackID] = t
	}
	return t
}

func (s *Syncer) PushReference(ctx context.Context, data []byte) error {
	samples, err := syncer.ToSamples(s.encoding, s.channels, data)
	if err != nil {
		return fmt.Errorf("unable to convert the reference data: %w", err)
	}

	s.locker.Lock()
	defer s.locker.Unlock()
	s.reference.push(samples)
	return nil
}

func (s *Syncer) PushComparison(
	ctx context.Context,
	trackID int,
	data []byte,
) ([]syncer.ShiftResult, error) {
	samples, err := syncer.ToSamples(s.encoding, s.channels, data)
	if err != nil {
		return nil, fmt.Errorf("unable to convert the comparison data: %w", err)
	}

	s.locker.Lock()
	defer s.locker.Unlock()

	t := s.getTrack(trackID)
	t.push(samples)

	if oldest := t.count - int64(len(t.samples)); t.nextPos < oldest {
		logger.Debugf(ctx, "track %d: the reference is behind, skipping %d samples", trackID, oldest-t.nextPos)
		t.nextPos = oldest
	}

	var results []syncer.ShiftResult
	for {
		pos := t.nextPos
		if pos+int64(s.windowSize) > t.count {
			break
		}
		if pos+int64(s.windowSize+s.maxLag) > s.reference.count {
			break
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		shift, confidence, err := s.analyze(t, pos)
		if err != nil {
			return results, fmt.Errorf("unable to analyze the window at %d: %w", pos, err)
		}
		results = append(results, syncer.ShiftResult{
			SampleOffset: pos,
			Shift:        shift,
			Confidence:   confidence,
		})
		t.nextPos += int64(s.hopSize)
	}
	return results, nil
}

// analyze correlates the comparison window [pos, pos+windowSize) against the
// reference [pos-maxLag, pos+windowSize+maxLag). Both snippets are laid out
// relative to the same origin, so the correlation lag is the shift itself.
func (s *Syncer) analyze(t *track, pos int64) (float64, float64, error) {
	origin := pos - int64(s.maxLag)
	fref := make([]complex128, s.fftSize)
	fcomp := make([]complex128, s.fftSize)
	for i := 0; i < s.windowSize+2*s.maxLag; i++ {
		fref[i] = complex(s.reference.at(origin+int64(i)), 0)
	}
	for i := 0; i < s.windowSize; i++ {
		fcomp[s.maxLag+i] = complex(t.at(pos+int64(i))*s.hann[i], 0)
	}

	return syncergccphat.CrossCorrelate(fft.FFT(fref), fft.FFT(fcomp), s.params)
}

func (s *Syncer) Encoding(context.Context) (audio.Encoding, error) { return s.encoding, nil }
func (s *Syncer) Channels(context.Context) (audio.Channel, error)  { return s.channels, nil }
func (s *Syncer) Close() error                                     { return nil }
