// Package vad defines voice activity detection over mono S16 audio.
package vad

import (
	"context"
	"time"

	"github.com/xaionaro-go/koala/pkg/audio"
)

type VAD interface {
	audio.AbstractAnalyzer

	// FindNextVoice analyzes samples chunk by chunk and returns the highest
	// confidence seen and the offset of the first chunk whose confidence is
	// at least confidenceThreshold (negative if there is none). It stops
	// after voice was detected for minDuration in total.
	FindNextVoice(
		ctx context.Context,
		samples []int16,
		confidenceThreshold float64,
		minDuration time.Duration,
	) (confidence float64, offset time.Duration, err error)
}
