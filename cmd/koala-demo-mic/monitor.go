package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/observability"
)

const monitorQueueLength = 32

// monitor plays the enhanced audio back; frames are dropped rather than
// stalling the capture loop if the player falls behind.
type monitor struct {
	player     *audio.Player
	stream     audio.PlayStream
	pipeWriter *io.PipeWriter
	frames     chan []byte
	doneCh     chan struct{}
}

func newMonitor(ctx context.Context, sampleRate audio.SampleRate) (*monitor, error) {
	player := audio.NewPlayerAuto(ctx)
	pipeReader, pipeWriter := io.Pipe()
	stream, err := player.PlayPCM(ctx, sampleRate, 1, audio.PCMFormatS16LE, audio.BufferSize, pipeReader)
	if err != nil {
		player.Close()
		return nil, fmt.Errorf("unable to start playing: %w", err)
	}

	m := &monitor{
		player:     player,
		stream:     stream,
		pipeWriter: pipeWriter,
		frames:     make(chan []byte, monitorQueueLength),
		doneCh:     make(chan struct{}),
	}
	observability.Go(ctx, func() {
		defer close(m.doneCh)
		for frame := range m.frames {
			_, err := m.pipeWriter.Write(frame)
			switch {
			case err == nil:
			case errors.Is(err, io.ErrClosedPipe):
				return
			default:
				logger.Errorf(ctx, "unable to feed the player: %v", err)
				return
			}
		}
	})
	return m, nil
}

func (m *monitor) Push(ctx context.Context, samples []int16) {
	select {
	case m.frames <- audio.S16LE(samples):
	default:
		logger.Debugf(ctx, "the player is behind, dropping a frame")
	}
}

func (m *monitor) Close() error {
	close(m.frames)
	var result *multierror.Error
	if err := m.pipeWriter.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	<-m.doneCh
	if err := m.stream.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("unable to close the play stream: %w", err))
	}
	if err := m.player.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("unable to close the player: %w", err))
	}
	return result.ErrorOrNil()
}
