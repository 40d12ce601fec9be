package noisesuppressionstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
)

type failingEngine struct {
	*noisesuppression.Dummy
	failAfter int
	calls     int
}

func (e *failingEngine) Process(ctx context.Context, input, output []int16) error {
	e.calls++
	if e.calls > e.failAfter {
		return noisesuppression.NewError("pv_koala_process", noisesuppression.StatusRuntimeError, nil)
	}
	return e.Dummy.Process(ctx, input, output)
}

func randomSignal(rng *rand.Rand, n int) []int16 {
	signal := make([]int16, n)
	for idx := range signal {
		signal[idx] = int16(rng.Intn(1<<16) - 1<<15)
	}
	return signal
}

func TestStreamEqualsProcessComplete(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(0))

	for _, frameLength := range []uint{1, 160, 512} {
		for _, delay := range []uint{0, 100, 512, 1500} {
			for _, n := range []int{0, 1, 159, 160, 161, 5000} {
				for _, outputBufferSize := range []uint{0, 2, 1000} {
					t.Run(fmt.Sprintf("F%d_D%d_N%d_B%d", frameLength, delay, n, outputBufferSize), func(t *testing.T) {
						signal := randomSignal(rng, n)
						transform := func(v int16) int16 { return v/3 + 7 }

						reference := noisesuppression.NewDummy(16000, frameLength, delay)
						reference.Transform = transform
						expected, err := noisesuppression.NewStreamingBlockTransformer(reference).ProcessComplete(ctx, signal)
						require.NoError(t, err)

						engine := noisesuppression.NewDummy(16000, frameLength, delay)
						engine.Transform = transform
						stream, err := NewNoiseSuppressionStream(
							ctx,
							iotest.HalfReader(bytes.NewReader(audio.S16LE(signal))),
							engine,
							outputBufferSize,
						)
						require.NoError(t, err)
						defer stream.Close()

						out, err := io.ReadAll(iotest.OneByteReader(stream))
						require.NoError(t, err)
						require.Equal(t, audio.S16LE(expected), out)
					})
				}
			}
		}
	}
}

func TestStreamResetsEngine(t *testing.T) {
	ctx := context.Background()
	engine := noisesuppression.NewDummy(16000, 4, 3)

	for i := 0; i < 2; i++ {
		stream, err := NewNoiseSuppressionStream(ctx, bytes.NewReader(audio.S16LE([]int16{1, 2, 3, 4, 5})), engine, 0)
		require.NoError(t, err)
		out, err := io.ReadAll(stream)
		require.NoError(t, err)
		require.Equal(t, audio.S16LE([]int16{1, 2, 3, 4, 5}), out)
		require.NoError(t, stream.Close())
	}
}

func TestStreamEngineError(t *testing.T) {
	ctx := context.Background()
	engine := &failingEngine{Dummy: noisesuppression.NewDummy(16000, 160, 80), failAfter: 3}

	stream, err := NewNoiseSuppressionStream(ctx, bytes.NewReader(make([]byte, 160*2*10)), engine, 0)
	require.NoError(t, err)
	defer stream.Close()

	_, err = io.ReadAll(stream)
	require.ErrorIs(t, err, noisesuppression.ErrRuntime)
}

func TestStreamInputError(t *testing.T) {
	ctx := context.Background()
	stream, err := NewNoiseSuppressionStream(ctx, iotest.ErrReader(fmt.Errorf("device unplugged")), noisesuppression.NewDummy(16000, 160, 80), 0)
	require.NoError(t, err)
	defer stream.Close()

	_, err = io.ReadAll(stream)
	require.ErrorContains(t, err, "device unplugged")
}

func TestStreamOddInput(t *testing.T) {
	ctx := context.Background()
	stream, err := NewNoiseSuppressionStream(ctx, bytes.NewReader([]byte{1, 2, 3}), noisesuppression.NewDummy(16000, 160, 80), 0)
	require.NoError(t, err)
	defer stream.Close()

	_, err = io.ReadAll(stream)
	require.Error(t, err)
}

func TestStreamClose(t *testing.T) {
	ctx := context.Background()
	pipeReader, pipeWriter := io.Pipe()
	defer pipeWriter.Close()

	stream, err := NewNoiseSuppressionStream(ctx, pipeReader, noisesuppression.NewDummy(16000, 160, 0), 320)
	require.NoError(t, err)

	go func() {
		_, _ = pipeWriter.Write(make([]byte, 320*4))
	}()
	buf := make([]byte, 320)
	_, err = io.ReadFull(stream, buf)
	require.NoError(t, err)

	// the worker is blocked on the full output buffer; Close must not hang
	require.NoError(t, stream.Close())
	_, err = io.ReadAll(stream)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewStreamInvalidEngine(t *testing.T) {
	ctx := context.Background()
	_, err := NewNoiseSuppressionStream(ctx, bytes.NewReader(nil), noisesuppression.NewDummy(16000, 0, 0), 0)
	require.ErrorIs(t, err, noisesuppression.ErrInvalidState)
}
