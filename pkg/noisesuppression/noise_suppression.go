package noisesuppression

import (
	"context"
	"io"

	"github.com/xaionaro-go/koala/pkg/audio"
)

// NoiseSuppression is a fixed-frame block transform with a fixed output delay.
//
// Consecutive calls of Process must provide consecutive frames of the same
// stream unless Reset was called in between. The output of Process is delayed
// by DelaySample samples relative to its input.
type NoiseSuppression interface {
	io.Closer

	Encoding(context.Context) (audio.Encoding, error)
	Channels(context.Context) (audio.Channel, error)
	FrameLength() uint
	DelaySample() uint

	// Process requires len(input) == len(output) == FrameLength().
	Process(ctx context.Context, input []int16, output []int16) error
	Reset(ctx context.Context) error
}

type Versioner interface {
	Version() string
}

type DeviceLister interface {
	ListHardwareDevices(ctx context.Context) ([]string, error)
}
