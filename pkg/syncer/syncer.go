package syncer

import (
	"context"

	"github.com/xaionaro-go/koala/pkg/audio"
)

type ShiftResult struct {
	SampleOffset int64   // Position of the analyzed window in the comparison track (streaming only)
	Shift        float64 // Delay relative to reference (positive means comparison is ahead)
	Confidence   float64 // Confidence score (0..1)
}

type Syncer interface {
	audio.AbstractAnalyzer

	// CalculateShiftBetween returns the amount of samples that
	// needs to be shifted by, to get a comparison track synced
	// with the reference track. It also returns a confidence
	// score (0..1) for each result.
	CalculateShiftBetween(
		ctx context.Context,
		referenceTrack []byte,
		comparisonTracks ...[]byte,
	) ([]ShiftResult, error)
}
