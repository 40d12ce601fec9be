// Package syncerstream tracks the shift between tracks that arrive piece by
// piece, for example the microphone capture and its enhanced version.
package syncerstream

import (
	"context"

	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/syncer"
)

type SyncerStream interface {
	audio.AbstractAnalyzer

	// PushReference appends PCM to the reference track.
	PushReference(ctx context.Context, data []byte) error

	// PushComparison appends PCM to the comparison track trackID and returns
	// a result for every analysis window that became complete, in order.
	// Windows wait until the reference covers them (plus the maximal lag).
	PushComparison(ctx context.Context, trackID int, data []byte) ([]syncer.ShiftResult, error)
}

// Factory creates a SyncerStream for the given PCM layout.
type Factory interface {
	NewSyncer(encoding audio.Encoding, channels audio.Channel) (SyncerStream, error)
}
