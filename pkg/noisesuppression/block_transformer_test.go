package noisesuppression

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEngine struct {
	NoiseSuppression
	processCalls int
	resetCalls   int
	failOnCall   int
}

func (e *countingEngine) Process(ctx context.Context, input, output []int16) error {
	e.processCalls++
	if e.failOnCall > 0 && e.processCalls == e.failOnCall {
		return NewError("pv_koala_process", StatusRuntimeError, []string{"simulated"})
	}
	return e.NoiseSuppression.Process(ctx, input, output)
}

func (e *countingEngine) Reset(ctx context.Context) error {
	e.resetCalls++
	return e.NoiseSuppression.Reset(ctx)
}

func randomSignal(rng *rand.Rand, n int) []int16 {
	signal := make([]int16, n)
	for idx := range signal {
		signal[idx] = int16(rng.Intn(1<<16) - 1<<15)
	}
	return signal
}

func negate(v int16) int16 {
	return ^v
}

func TestProcessCompleteAlignment(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(0))

	for _, frameLength := range []uint{1, 7, 256, 512} {
		for _, delay := range []uint{0, 1, 3, 128, 255, 256, 257, 1000} {
			for _, n := range []int{0, 1, 5, 255, 256, 257, 1000, 4097} {
				t.Run(fmt.Sprintf("F%d_D%d_N%d", frameLength, delay, n), func(t *testing.T) {
					dummy := NewDummy(16000, frameLength, delay)
					dummy.Transform = negate
					engine := &countingEngine{NoiseSuppression: dummy}
					transformer := NewStreamingBlockTransformer(engine)

					signal := randomSignal(rng, n)
					result, err := transformer.ProcessComplete(ctx, signal)
					require.NoError(t, err)
					require.Len(t, result, n)
					for idx := range signal {
						if result[idx] != negate(signal[idx]) {
							require.FailNow(t, "misaligned output", "sample %d: %s", idx, spew.Sdump(result[idx], signal[idx]))
						}
					}
					require.EqualValues(t, FrameCount(uint64(n), uint64(frameLength), uint64(delay)), engine.processCalls)
					require.Equal(t, 1, engine.resetCalls)
				})
			}
		}
	}
}

func TestProcessCompleteScenario(t *testing.T) {
	ctx := context.Background()
	engine := &countingEngine{NoiseSuppression: NewDummy(16000, 256, 128)}
	transformer := NewStreamingBlockTransformer(engine)

	signal := randomSignal(rand.New(rand.NewSource(1)), 1000)
	result, err := transformer.ProcessComplete(ctx, signal)
	require.NoError(t, err)
	assert.Len(t, result, 1000)
	assert.Equal(t, 5, engine.processCalls)
	assert.Equal(t, signal, result)
}

func TestProcessCompleteEmpty(t *testing.T) {
	ctx := context.Background()

	t.Run("no delay", func(t *testing.T) {
		engine := &countingEngine{NoiseSuppression: NewDummy(16000, 256, 0)}
		result, err := NewStreamingBlockTransformer(engine).ProcessComplete(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, result)
		assert.Equal(t, 0, engine.processCalls)
		assert.Equal(t, 1, engine.resetCalls)
	})

	t.Run("with delay", func(t *testing.T) {
		engine := &countingEngine{NoiseSuppression: NewDummy(16000, 256, 300)}
		result, err := NewStreamingBlockTransformer(engine).ProcessComplete(ctx, []int16{})
		require.NoError(t, err)
		assert.Empty(t, result)
		assert.Equal(t, 2, engine.processCalls)
	})
}

func TestProcessCompleteDeterministic(t *testing.T) {
	ctx := context.Background()
	dummy := NewDummy(16000, 160, 80)
	dummy.Transform = func(v int16) int16 { return v / 2 }
	transformer := NewStreamingBlockTransformer(dummy)

	signal := randomSignal(rand.New(rand.NewSource(2)), 3333)
	first, err := transformer.ProcessComplete(ctx, signal)
	require.NoError(t, err)
	second, err := transformer.ProcessComplete(ctx, signal)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// a dirty state followed by Reset must not change the result
	_, err = transformer.Process(ctx, randomSignal(rand.New(rand.NewSource(3)), 160))
	require.NoError(t, err)
	require.NoError(t, transformer.Reset(ctx))
	third, err := transformer.ProcessComplete(ctx, signal)
	require.NoError(t, err)
	require.Equal(t, first, third)
}

func TestProcessCompleteAbortsOnError(t *testing.T) {
	ctx := context.Background()
	engine := &countingEngine{
		NoiseSuppression: NewDummy(16000, 256, 128),
		failOnCall:       3,
	}
	result, err := NewStreamingBlockTransformer(engine).ProcessComplete(ctx, make([]int16, 1000))
	require.ErrorIs(t, err, ErrRuntime)
	require.Nil(t, result)
	require.Equal(t, 3, engine.processCalls)
	require.Equal(t, 0, engine.resetCalls)
}

func TestProcessCompleteCancelled(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	cancelFn()

	engine := &countingEngine{NoiseSuppression: NewDummy(16000, 256, 128)}
	_, err := NewStreamingBlockTransformer(engine).ProcessComplete(ctx, make([]int16, 1000))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, engine.processCalls)
}

func TestProcessInvalidFrameLength(t *testing.T) {
	ctx := context.Background()
	engine := &countingEngine{NoiseSuppression: NewDummy(16000, 256, 128)}
	transformer := NewStreamingBlockTransformer(engine)

	for _, n := range []int{0, 1, 255, 257, 512} {
		_, err := transformer.Process(ctx, make([]int16, n))
		require.ErrorIs(t, err, ErrInvalidArgument, n)
	}
	require.Equal(t, 0, engine.processCalls)

	output, err := transformer.Process(ctx, make([]int16, 256))
	require.NoError(t, err)
	require.Len(t, output, 256)
}

func TestProcessCompleteSilence(t *testing.T) {
	ctx := context.Background()
	result, err := NewStreamingBlockTransformer(NewDummy(16000, 512, 300)).ProcessComplete(ctx, make([]int16, 16000))
	require.NoError(t, err)

	var energy float64
	for _, v := range result {
		energy += float64(v) * float64(v)
	}
	require.Zero(t, energy)
}

func TestTrimOutput(t *testing.T) {
	frame := []int16{0, 1, 2, 3}
	for _, tc := range []struct {
		start, delay, total uint64
		expected            []int16
	}{
		{start: 0, delay: 0, total: 10, expected: []int16{0, 1, 2, 3}},
		{start: 0, delay: 4, total: 10, expected: nil},
		{start: 0, delay: 2, total: 10, expected: []int16{2, 3}},
		{start: 8, delay: 0, total: 10, expected: []int16{0, 1}},
		{start: 8, delay: 3, total: 10, expected: []int16{0, 1, 2, 3}},
		{start: 12, delay: 3, total: 10, expected: []int16{0}},
		{start: 0, delay: 1, total: 2, expected: []int16{1, 2}},
		{start: 0, delay: 1, total: 0, expected: []int16{}},
		{start: 13, delay: 3, total: 10, expected: nil},
	} {
		t.Run(fmt.Sprintf("start%d_delay%d_total%d", tc.start, tc.delay, tc.total), func(t *testing.T) {
			assert.Equal(t, tc.expected, TrimOutput(frame, tc.start, tc.delay, tc.total))
		})
	}
}

func TestFrameCount(t *testing.T) {
	assert.EqualValues(t, 5, FrameCount(1000, 256, 128))
	assert.EqualValues(t, 0, FrameCount(0, 256, 0))
	assert.EqualValues(t, 1, FrameCount(0, 256, 1))
	assert.EqualValues(t, 4, FrameCount(1024, 256, 0))
	assert.EqualValues(t, 0, FrameCount(1024, 0, 0))
}
