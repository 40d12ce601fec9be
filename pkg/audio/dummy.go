package audio

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
)

// ErrNoBackend is returned when no registered audio backend works on this machine.
var ErrNoBackend = errors.New("no working audio backend")

// RecorderPCMDummy is the fallback recorder: it refuses to record.
type RecorderPCMDummy struct{}

var _ RecorderPCM = RecorderPCMDummy{}

func (RecorderPCMDummy) Close() error               { return nil }
func (RecorderPCMDummy) Ping(context.Context) error { return nil }

func (RecorderPCMDummy) RecordPCM(
	context.Context,
	SampleRate,
	Channel,
	PCMFormat,
	io.Writer,
) (RecordStream, error) {
	return nil, ErrNoBackend
}

// PlayerPCMDummy is the fallback player: it consumes the audio and discards it.
type PlayerPCMDummy struct{}

var _ PlayerPCM = PlayerPCMDummy{}

func (PlayerPCMDummy) Close() error               { return nil }
func (PlayerPCMDummy) Ping(context.Context) error { return nil }

func (PlayerPCMDummy) PlayPCM(
	ctx context.Context,
	_ SampleRate,
	_ Channel,
	_ PCMFormat,
	_ time.Duration,
	reader io.Reader,
) (PlayStream, error) {
	s := &discardStream{doneCh: make(chan struct{})}
	observability.Go(ctx, func() {
		defer close(s.doneCh)
		n, err := io.Copy(io.Discard, reader)
		logger.Debugf(ctx, "discarded %d bytes of audio: %v", n, err)
		s.err = err
	})
	return s, nil
}

type discardStream struct {
	doneCh chan struct{}
	err    error
}

func (s *discardStream) Drain() error {
	<-s.doneCh
	return s.err
}

func (s *discardStream) Close() error {
	return nil
}
