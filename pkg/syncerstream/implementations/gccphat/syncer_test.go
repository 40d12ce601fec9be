package gccphat

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/syncer"
)

var testEncoding = audio.EncodingPCM{
	PCMFormat:  audio.PCMFormatS16LE,
	SampleRate: 16000,
}

func whiteNoise(n int, seed int64) []int16 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(rng.Intn(16000) - 8000)
	}
	return out
}

func delayed(samples []int16, delay int) []int16 {
	out := make([]int16, len(samples))
	copy(out[delay:], samples)
	return out
}

func best(results []syncer.ShiftResult) syncer.ShiftResult {
	var r syncer.ShiftResult
	for _, candidate := range results {
		if candidate.Confidence > r.Confidence {
			r = candidate
		}
	}
	return r
}

func TestSyncerStreamDelayed(t *testing.T) {
	ctx := context.Background()
	for _, delay := range []int{0, 10, 128, 250} {
		s, err := NewSyncer(testEncoding, 1, 1024, 512, 256, 0, 0)
		require.NoError(t, err)

		ref := whiteNoise(8192, 42)
		require.NoError(t, s.PushReference(ctx, audio.S16LE(ref)))

		results, err := s.PushComparison(ctx, 0, audio.S16LE(delayed(ref, delay)))
		require.NoError(t, err)
		require.NotEmpty(t, results)

		r := best(results)
		assert.Greater(t, r.Confidence, 0.1, "delay %d", delay)
		assert.InDelta(t, -float64(delay), r.Shift, 0.5, "delay %d", delay)
	}
}

func TestSyncerStreamWaitsForReference(t *testing.T) {
	ctx := context.Background()
	s, err := NewSyncer(testEncoding, 1, 512, 256, 64, 0, 0)
	require.NoError(t, err)

	ref := whiteNoise(4096, 7)
	comp := delayed(ref, 20)

	results, err := s.PushComparison(ctx, 1, audio.S16LE(comp))
	require.NoError(t, err)
	assert.Empty(t, results)

	var all []syncer.ShiftResult
	for off := 0; off < len(ref); off += 500 {
		end := min(off+500, len(ref))
		require.NoError(t, s.PushReference(ctx, audio.S16LE(ref[off:end])))
		results, err := s.PushComparison(ctx, 1, nil)
		require.NoError(t, err)
		all = append(all, results...)
	}
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Equal(t, all[i-1].SampleOffset+256, all[i].SampleOffset)
	}
	assert.InDelta(t, -20.0, best(all).Shift, 0.5)
}

func TestSyncerStreamIndependentTracks(t *testing.T) {
	ctx := context.Background()
	s, err := NewSyncer(testEncoding, 1, 1024, 1024, 128, 0, 0)
	require.NoError(t, err)

	ref := whiteNoise(6000, 3)
	require.NoError(t, s.PushReference(ctx, audio.S16LE(ref)))

	r0, err := s.PushComparison(ctx, 0, audio.S16LE(delayed(ref, 5)))
	require.NoError(t, err)
	r1, err := s.PushComparison(ctx, 1, audio.S16LE(delayed(ref, 60)))
	require.NoError(t, err)

	assert.InDelta(t, -5.0, best(r0).Shift, 0.5)
	assert.InDelta(t, -60.0, best(r1).Shift, 0.5)
}

func TestNewSyncerInvalid(t *testing.T) {
	_, err := NewSyncer(audio.EncodingPCM{PCMFormat: audio.PCMFormatS16LE}, 1, 0, 0, 0, 0, 0)
	require.Error(t, err)

	_, err = NewSyncer(testEncoding, 0, 0, 0, 0, 0, 0)
	require.Error(t, err)
}

func TestFactoryDefaults(t *testing.T) {
	f := &Factory{}
	ss, err := f.NewSyncer(testEncoding, 1)
	require.NoError(t, err)

	s := ss.(*Syncer)
	assert.Equal(t, 4000, s.windowSize)
	assert.Equal(t, 2000, s.hopSize)
	assert.Equal(t, 1600, s.maxLag)
}
