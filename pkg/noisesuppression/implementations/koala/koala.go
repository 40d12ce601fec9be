package koala

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
)

const (
	DefaultDevice = "best"
)

// Koala is an engine instance. It is safe for concurrent use, but the calls
// are serialized.
type Koala struct {
	locker      sync.Mutex
	library     *Library
	ownsLibrary bool
	handle      handle
	isClosed    bool

	sampleRate  audio.SampleRate
	frameLength uint
	delaySample uint
	version     string
}

var (
	_ noisesuppression.NoiseSuppression = (*Koala)(nil)
	_ noisesuppression.Versioner        = (*Koala)(nil)
	_ noisesuppression.DeviceLister     = (*Koala)(nil)
)

// New creates an engine instance using an opened library. An empty device
// means DefaultDevice.
func New(
	ctx context.Context,
	library *Library,
	accessKey string,
	modelPath string,
	device string,
) (_ret *Koala, _err error) {
	logger.Debugf(ctx, "New: model:'%s' device:'%s'", modelPath, device)
	defer func() { logger.Debugf(ctx, "/New: %v", _err) }()

	if accessKey == "" {
		return nil, fmt.Errorf("the access key should be a non-empty string: %w", noisesuppression.ErrInvalidArgument)
	}
	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not find the model file at '%s': %w", modelPath, noisesuppression.ErrIO)
		}
		return nil, fmt.Errorf("unable to access the model file at '%s': %w: %w", modelPath, noisesuppression.ErrIO, err)
	}
	if device == "" {
		device = DefaultDevice
	}

	library.locker.Lock()
	defer library.locker.Unlock()
	if library.isClosed {
		return nil, fmt.Errorf("the library is already closed: %w", noisesuppression.ErrInvalidState)
	}

	h, status := library.api.Init(accessKey, modelPath, device)
	if err := library.statusError(ctx, "pv_koala_init", status); err != nil {
		return nil, err
	}

	delaySample, status := library.api.DelaySample(h)
	if err := library.statusError(ctx, "pv_koala_delay_sample", status); err != nil {
		library.api.Delete(h)
		return nil, err
	}
	if delaySample < 0 {
		library.api.Delete(h)
		return nil, fmt.Errorf("the engine reported a negative delay %d: %w", delaySample, noisesuppression.ErrInvalidState)
	}

	frameLength := library.api.FrameLength()
	if frameLength <= 0 {
		library.api.Delete(h)
		return nil, fmt.Errorf("the engine reported an invalid frame length %d: %w", frameLength, noisesuppression.ErrInvalidState)
	}

	library.engines++
	return &Koala{
		library:     library,
		handle:      h,
		sampleRate:  audio.SampleRate(library.api.SampleRate()),
		frameLength: uint(frameLength),
		delaySample: uint(delaySample),
		version:     library.api.Version(),
	}, nil
}

func (k *Koala) Encoding(context.Context) (audio.Encoding, error) {
	return audio.EncodingPCM{
		PCMFormat:  audio.PCMFormatS16LE,
		SampleRate: k.sampleRate,
	}, nil
}

func (k *Koala) Channels(context.Context) (audio.Channel, error) {
	return 1, nil
}

func (k *Koala) SampleRate() audio.SampleRate {
	return k.sampleRate
}

func (k *Koala) FrameLength() uint {
	return k.frameLength
}

func (k *Koala) DelaySample() uint {
	return k.delaySample
}

func (k *Koala) Version() string {
	return k.version
}

func (k *Koala) ListHardwareDevices(ctx context.Context) ([]string, error) {
	return k.library.ListHardwareDevices(ctx)
}

// Process enhances one frame. The output is delayed by DelaySample samples.
func (k *Koala) Process(
	ctx context.Context,
	input []int16,
	output []int16,
) error {
	if len(input) != int(k.frameLength) || len(output) != int(k.frameLength) {
		return fmt.Errorf("expected frames of %d samples, got input of %d and output of %d: %w", k.frameLength, len(input), len(output), noisesuppression.ErrInvalidArgument)
	}

	k.locker.Lock()
	defer k.locker.Unlock()
	if k.isClosed {
		return fmt.Errorf("the engine is already closed: %w", noisesuppression.ErrInvalidState)
	}
	status := k.library.api.Process(k.handle, input, output)
	return k.library.statusError(ctx, "pv_koala_process", status)
}

func (k *Koala) Reset(ctx context.Context) error {
	k.locker.Lock()
	defer k.locker.Unlock()
	if k.isClosed {
		return fmt.Errorf("the engine is already closed: %w", noisesuppression.ErrInvalidState)
	}
	status := k.library.api.Reset(k.handle)
	return k.library.statusError(ctx, "pv_koala_reset", status)
}

// Close releases the engine instance (and the library if the instance owns
// it). Repeated calls are no-ops.
func (k *Koala) Close() error {
	k.locker.Lock()
	defer k.locker.Unlock()
	if k.isClosed {
		return nil
	}
	k.isClosed = true
	k.library.locker.Lock()
	k.library.api.Delete(k.handle)
	k.library.engines--
	k.library.locker.Unlock()
	k.handle = 0

	if !k.ownsLibrary {
		return nil
	}
	if err := k.library.Close(); err != nil {
		return fmt.Errorf("unable to close the library: %w", err)
	}
	return nil
}
