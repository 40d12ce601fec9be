package portaudio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/xaionaro-go/koala/pkg/audio/types"
)

type PlayerPCM struct{}

var _ types.PlayerPCM = (*PlayerPCM)(nil)

func NewPlayerPCM() (*PlayerPCM, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("unable to initialize PortAudio: %w", err)
	}
	return &PlayerPCM{}, nil
}

func (*PlayerPCM) Close() error {
	return portaudio.Terminate()
}

func (*PlayerPCM) Ping(
	ctx context.Context,
) error {
	info, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "device info: %#+v", info)
	return nil
}

func (*PlayerPCM) PlayPCM(
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
	format types.PCMFormat,
	bufferSize time.Duration,
	reader io.Reader,
) (types.PlayStream, error) {
	framesPerBuffer := int(bufferSize.Seconds() * float64(sampleRate))
	if framesPerBuffer <= 0 {
		return nil, fmt.Errorf("the buffer size %v is too small for %d Hz", bufferSize, sampleRate)
	}
	sampleBuffer, byteBuffer, err := newSampleBuffer(format, framesPerBuffer*int(channels))
	if err != nil {
		return nil, err
	}

	stream, err := portaudio.OpenDefaultStream(0, int(channels), float64(sampleRate), framesPerBuffer, sampleBuffer)
	if err != nil {
		return nil, fmt.Errorf("unable to open a stream: %w", err)
	}

	s := newPlayPCMStream(stream, byteBuffer, reader)
	if err := s.start(ctx); err != nil {
		s.PortAudioStream.Close()
		return nil, fmt.Errorf("unable to start playing: %w", err)
	}
	return s, nil
}
