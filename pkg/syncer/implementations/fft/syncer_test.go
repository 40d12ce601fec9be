package fft

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/koala/pkg/audio"
)

func noise(n int, seed int64) []int16 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(rng.Intn(20000) - 10000)
	}
	return out
}

func newTestSyncer() *Syncer {
	return NewSyncer(audio.EncodingPCM{
		PCMFormat:  audio.PCMFormatS16LE,
		SampleRate: 16000,
	}, 1)
}

func TestSyncerCalculateShiftBetween(t *testing.T) {
	ref := noise(4000, 1)

	delayed := make([]int16, len(ref))
	copy(delayed[37:], ref)

	ahead := make([]int16, len(ref))
	copy(ahead, ref[12:])

	s := newTestSyncer()
	results, err := s.CalculateShiftBetween(
		context.Background(),
		audio.S16LE(ref),
		audio.S16LE(ref),
		audio.S16LE(delayed),
		audio.S16LE(ahead),
	)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 0.0, results[0].Shift)
	assert.InDelta(t, 1.0, results[0].Confidence, 1e-6)

	assert.Equal(t, -37.0, results[1].Shift)
	assert.Greater(t, results[1].Confidence, 0.9)

	assert.Equal(t, 12.0, results[2].Shift)
	assert.Greater(t, results[2].Confidence, 0.9)
}

func TestSyncerMaxShift(t *testing.T) {
	ref := noise(2000, 2)
	delayed := make([]int16, len(ref))
	copy(delayed[300:], ref)

	s := newTestSyncer()
	s.MaxShift = 100
	results, err := s.CalculateShiftBetween(context.Background(), audio.S16LE(ref), audio.S16LE(delayed))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.LessOrEqual(t, math.Abs(results[0].Shift), 100.0)
	assert.Less(t, results[0].Confidence, 0.5)
}

func TestSyncerSilence(t *testing.T) {
	s := newTestSyncer()
	silence := audio.S16LE(make([]int16, 256))
	results, err := s.CalculateShiftBetween(context.Background(), silence, silence)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Zero(t, results[0].Confidence)
}

func TestSyncerEmptyTrack(t *testing.T) {
	s := newTestSyncer()
	_, err := s.CalculateShiftBetween(context.Background(), nil, audio.S16LE(noise(10, 3)))
	require.Error(t, err)

	_, err = s.CalculateShiftBetween(context.Background(), audio.S16LE(noise(10, 3)), nil)
	require.Error(t, err)
}

func TestSyncerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestSyncer()
	_, err := s.CalculateShiftBetween(ctx, audio.S16LE(noise(10, 4)), audio.S16LE(noise(10, 4)))
	require.ErrorIs(t, err, context.Canceled)
}
