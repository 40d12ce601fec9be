package gccphat

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/koala/pkg/audio"
)

func newS16Syncer(t testing.TB, sampleRate audio.SampleRate) *Syncer {
	s, err := NewSyncer(audio.EncodingPCM{
		PCMFormat:  audio.PCMFormatS16LE,
		SampleRate: sampleRate,
	}, 1)
	require.NoError(t, err)
	return s
}

func impulse(length, at int) []int16 {
	track := make([]int16, length)
	track[at] = 20000
	return track
}

func TestSyncerCalculateShiftBetween(t *testing.T) {
	s := newS16Syncer(t, 16000)

	noisyTone := make([]int16, 4000)
	rng := rand.New(rand.NewSource(1))
	for i := range noisyTone {
		noisyTone[i] = int16(8000*math.Sin(float64(i)*0.07) + 3000*rng.NormFloat64())
	}

	for _, tc := range []struct {
		name          string
		ref           []int16
		comp          []int16
		shift         float64
		minConfidence float64
	}{
		{"comparison leads", impulse(1000, 500), impulse(1000, 490), 10, 0.4},
		{"comparison lags", impulse(1000, 500), impulse(1000, 510), -10, 0.4},
		{"aligned", impulse(1000, 500), impulse(1000, 500), 0, 0.4},
		{"lagging noisy tone", noisyTone, append(make([]int16, 128), noisyTone[:len(noisyTone)-128]...), -128, 0.1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			results, err := s.CalculateShiftBetween(context.Background(), audio.S16LE(tc.ref), audio.S16LE(tc.comp))
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.InDelta(t, tc.shift, results[0].Shift, 0.5)
			assert.Greater(t, results[0].Confidence, tc.minConfidence)
		})
	}
}

func TestSyncerMaxShift(t *testing.T) {
	s := newS16Syncer(t, 16000)
	s.MaxShift = 50

	ref := impulse(1000, 200)
	near := impulse(1000, 230)
	far := impulse(1000, 400)

	results, err := s.CalculateShiftBetween(context.Background(), audio.S16LE(ref), audio.S16LE(near), audio.S16LE(far))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, -30.0, results[0].Shift, 0.5)
	assert.Greater(t, results[0].Confidence, 0.4)
	assert.LessOrEqual(t, math.Abs(results[1].Shift), 51.0)
}

func TestSyncerErrors(t *testing.T) {
	_, err := NewSyncer(audio.EncodingPCM{PCMFormat: audio.PCMFormatS16LE}, 1)
	require.Error(t, err)
	_, err = NewSyncer(audio.EncodingPCM{PCMFormat: audio.PCMFormatS16LE, SampleRate: 16000}, 0)
	require.Error(t, err)

	s := newS16Syncer(t, 16000)
	_, err = s.CalculateShiftBetween(context.Background(), nil, audio.S16LE(impulse(10, 1)))
	require.Error(t, err)
	_, err = s.CalculateShiftBetween(context.Background(), audio.S16LE(impulse(10, 1)), nil)
	require.Error(t, err)

	ctx, cancelFn := context.WithCancel(context.Background())
	cancelFn()
	_, err = s.CalculateShiftBetween(ctx, audio.S16LE(impulse(10, 1)), audio.S16LE(impulse(10, 1)))
	require.ErrorIs(t, err, context.Canceled)
}

func BenchmarkSyncerCalculateShiftBetween(b *testing.B) {
	s := newS16Syncer(b, 16000)
	ctx := context.Background()

	for _, n := range []int{1000, 16000, 160000} {
		b.Run(fmt.Sprintf("samples-%d", n), func(b *testing.B) {
			ref := make([]int16, n)
			for i := range ref {
				ref[i] = int16(10000 * math.Sin(float64(i)*0.1))
			}
			comp := make([]int16, n)
			copy(comp, ref[n/10:])
			refBytes, compBytes := audio.S16LE(ref), audio.S16LE(comp)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.CalculateShiftBetween(ctx, refBytes, compBytes); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
