package noisesuppression

import (
	"context"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// StreamingBlockTransformer drives an engine frame by frame and compensates
// its delay when a whole signal is given at once.
type StreamingBlockTransformer struct {
	Engine NoiseSuppression
	locker sync.Mutex
}

func NewStreamingBlockTransformer(engine NoiseSuppression) *StreamingBlockTransformer {
	return &StreamingBlockTransformer{
		Engine: engine,
	}
}

func (t *StreamingBlockTransformer) FrameLength() uint {
	return t.Engine.FrameLength()
}

func (t *StreamingBlockTransformer) DelaySample() uint {
	return t.Engine.DelaySample()
}

// Process feeds exactly one frame and returns the (delayed) output frame.
func (t *StreamingBlockTransformer) Process(
	ctx context.Context,
	frame []int16,
) ([]int16, error) {
	t.locker.Lock()
	defer t.locker.Unlock()
	output := make([]int16, len(frame))
	if err := t.process(ctx, frame, output); err != nil {
		return nil, err
	}
	return output, nil
}

func (t *StreamingBlockTransformer) process(
	ctx context.Context,
	input []int16,
	output []int16,
) error {
	frameLength := t.Engine.FrameLength()
	if len(input) != int(frameLength) {
		return fmt.Errorf("the frame has %d samples, but exactly %d are required: %w", len(input), frameLength, ErrInvalidArgument)
	}
	return t.Engine.Process(ctx, input, output)
}

func (t *StreamingBlockTransformer) Reset(ctx context.Context) error {
	t.locker.Lock()
	defer t.locker.Unlock()
	return t.Engine.Reset(ctx)
}

// ProcessComplete enhances a whole signal: it pads the tail, feeds extra
// frames to flush the delay, drops the delayed prefix and resets the engine
// afterwards. The result has exactly len(signal) samples and sample k of it
// corresponds to sample k of the signal.
func (t *StreamingBlockTransformer) ProcessComplete(
	ctx context.Context,
	signal []int16,
) (_ret []int16, _err error) {
	logger.Tracef(ctx, "ProcessComplete, len:%d", len(signal))
	defer func() { logger.Tracef(ctx, "/ProcessComplete, len:%d: %d, %v", len(signal), len(_ret), _err) }()

	t.locker.Lock()
	defer t.locker.Unlock()

	frameLength := uint64(t.Engine.FrameLength())
	if frameLength == 0 {
		return nil, fmt.Errorf("the engine reported a zero frame length: %w", ErrInvalidState)
	}
	delay := uint64(t.Engine.DelaySample())
	total := uint64(len(signal))

	result := make([]int16, 0, total)
	input := make([]int16, frameLength)
	output := make([]int16, frameLength)
	for start := uint64(0); start < total+delay; start += frameLength {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + frameLength
		FillFrame(input, signal, start)
		if err := t.process(ctx, input, output); err != nil {
			return nil, fmt.Errorf("unable to process the frame [%d:%d]: %w", start, end, err)
		}
		result = append(result, TrimOutput(output, start, delay, total)...)
	}

	if err := t.Engine.Reset(ctx); err != nil {
		return nil, fmt.Errorf("unable to reset the engine: %w", err)
	}
	return result, nil
}

// FillFrame copies signal[start:start+len(frame)] into frame, zero-filling
// whatever is beyond the end of the signal.
func FillFrame(frame []int16, signal []int16, start uint64) {
	n := 0
	if start < uint64(len(signal)) {
		n = copy(frame, signal[start:])
	}
	clear(frame[n:])
}

// TrimOutput returns the part of the output frame fed at input position start
// that belongs to the first total input samples; delay is the engine delay.
// When the length of the stream is not known yet, total may be any value not
// less than start+len(output).
func TrimOutput(output []int16, start, delay, total uint64) []int16 {
	end := start + uint64(len(output))
	if end <= delay || start >= total+delay {
		return nil
	}
	if end > total+delay {
		output = output[:total+delay-start]
	}
	if start < delay {
		output = output[delay-start:]
	}
	return output
}

// FrameCount returns how many frames are needed to enhance a signal of
// the given length.
func FrameCount(total, frameLength, delay uint64) uint64 {
	if frameLength == 0 {
		return 0
	}
	return (total + delay + frameLength - 1) / frameLength
}
