// Package delaycheck verifies that an engine's output is actually delayed by
// the amount of samples it reports.
package delaycheck

import (
	"context"
	"fmt"
	"math"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
	"github.com/xaionaro-go/koala/pkg/syncer"
)

type Result struct {
	Reported   uint
	Measured   float64
	Confidence float64
}

// Mismatch returns how far (in samples) the measured delay is from the reported one.
func (r Result) Mismatch() float64 {
	return math.Abs(r.Measured - float64(r.Reported))
}

func (r Result) String() string {
	return fmt.Sprintf("reported delay: %d samples; measured delay: %.1f samples (confidence %.2f)", r.Reported, r.Measured, r.Confidence)
}

// Measure feeds the signal frame by frame through the engine without any
// delay compensation and estimates the lag of the raw output relative to the
// input. The engine is reset afterwards.
func Measure(
	ctx context.Context,
	ns noisesuppression.NoiseSuppression,
	s syncer.Syncer,
	signal []int16,
) (_ret *Result, _err error) {
	logger.Debugf(ctx, "Measure, len:%d", len(signal))
	defer func() { logger.Debugf(ctx, "/Measure, len:%d: %v %v", len(signal), _ret, _err) }()

	if len(signal) == 0 {
		return nil, fmt.Errorf("the signal is empty: %w", noisesuppression.ErrInvalidArgument)
	}
	frameLength := uint64(ns.FrameLength())
	if frameLength == 0 {
		return nil, fmt.Errorf("the engine reported a zero frame length: %w", noisesuppression.ErrInvalidState)
	}

	frameCount := (uint64(len(signal)) + frameLength - 1) / frameLength
	input := make([]int16, frameLength)
	output := make([]int16, frameCount*frameLength)
	for i := uint64(0); i < frameCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		noisesuppression.FillFrame(input, signal, i*frameLength)
		if err := ns.Process(ctx, input, output[i*frameLength:(i+1)*frameLength]); err != nil {
			return nil, fmt.Errorf("unable to process frame %d: %w", i, err)
		}
	}
	if err := ns.Reset(ctx); err != nil {
		return nil, fmt.Errorf("unable to reset the engine: %w", err)
	}

	shifts, err := s.CalculateShiftBetween(ctx, audio.S16LE(signal), audio.S16LE(output[:len(signal)]))
	if err != nil {
		return nil, fmt.Errorf("unable to estimate the shift: %w", err)
	}
	if len(shifts) != 1 {
		return nil, fmt.Errorf("expected exactly one shift, got %d", len(shifts))
	}

	return &Result{
		Reported:   ns.DelaySample(),
		Measured:   -shifts[0].Shift,
		Confidence: shifts[0].Confidence,
	}, nil
}
