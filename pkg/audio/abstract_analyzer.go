package audio

import (
	"context"
)

// AbstractAnalyzer is anything that consumes PCM of a fixed encoding and
// channel layout: noise suppression engines, voice detectors, syncers.
type AbstractAnalyzer interface {
	Encoding(context.Context) (Encoding, error)
	Channels(context.Context) (Channel, error)
	Close() error
}
