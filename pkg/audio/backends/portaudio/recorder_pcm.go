package portaudio

import (
	"context"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/xaionaro-go/koala/pkg/audio/types"
)

type RecorderPCM struct {
	DeviceIndex int
}

var _ types.RecorderPCM = (*RecorderPCM)(nil)

// NewRecorderPCM initializes PortAudio; DefaultDeviceIndex selects the
// system default input device.
func NewRecorderPCM(deviceIndex int) (*RecorderPCM, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("unable to initialize PortAudio: %w", err)
	}
	return &RecorderPCM{
		DeviceIndex: deviceIndex,
	}, nil
}

func (*RecorderPCM) Close() error {
	return portaudio.Terminate()
}

func (r *RecorderPCM) Ping(
	ctx context.Context,
) error {
	info, err := inputDevice(r.DeviceIndex)
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "device info: %#+v", info)
	return nil
}

func (r *RecorderPCM) RecordPCM(
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
	format types.PCMFormat,
	writer io.Writer,
) (types.RecordStream, error) {
	device, err := inputDevice(r.DeviceIndex)
	if err != nil {
		return nil, fmt.Errorf("unable to get the input device: %w", err)
	}
	logger.Debugf(ctx, "recording from '%s': %d Hz, %d channels, %s", device.Name, sampleRate, channels, format)

	framesPerBuffer := int(RecordBufferSize.Seconds() * float64(sampleRate))
	sampleBuffer, byteBuffer, err := newSampleBuffer(format, framesPerBuffer*int(channels))
	if err != nil {
		return nil, err
	}

	params := portaudio.LowLatencyParameters(device, nil)
	params.Input.Channels = int(channels)
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = framesPerBuffer
	stream, err := portaudio.OpenStream(params, sampleBuffer)
	if err != nil {
		return nil, fmt.Errorf("unable to open a stream: %w", err)
	}

	s := newRecordPCMStream(stream, byteBuffer, writer)
	if err := s.start(ctx); err != nil {
		s.PortAudioStream.Close()
		return nil, fmt.Errorf("unable to start recording: %w", err)
	}
	return s, nil
}
