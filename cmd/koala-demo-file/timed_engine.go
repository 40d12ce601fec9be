package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/xaionaro-go/koala/pkg/noisesuppression"
)

// timedEngine accumulates the wall time spent inside Process and the amount
// of processed samples (readable while processing).
type timedEngine struct {
	noisesuppression.NoiseSuppression
	Elapsed time.Duration
	Samples atomic.Uint64
}

func (e *timedEngine) Process(ctx context.Context, input, output []int16) error {
	startTS := time.Now()
	err := e.NoiseSuppression.Process(ctx, input, output)
	e.Elapsed += time.Since(startTS)
	e.Samples.Add(uint64(len(input)))
	return err
}

// RealTimeFactor is the processing time divided by the duration of the processed audio.
func (e *timedEngine) RealTimeFactor(sampleRate uint64) float64 {
	samples := e.Samples.Load()
	if samples == 0 || sampleRate == 0 {
		return 0
	}
	audioDuration := time.Duration(samples) * time.Second / time.Duration(sampleRate)
	return e.Elapsed.Seconds() / audioDuration.Seconds()
}
