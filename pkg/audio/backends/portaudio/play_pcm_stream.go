package portaudio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/observability"
)

type PlayPCMStream struct {
	PortAudioStream *portaudio.Stream
	Buffer          []byte
	Reader          io.Reader

	cancelFunc context.CancelFunc
	doneCh     chan struct{}
	loopErr    error
	closeOnce  sync.Once
	closeErr   error
}

func newPlayPCMStream(
	stream *portaudio.Stream,
	buffer []byte,
	reader io.Reader,
) *PlayPCMStream {
	return &PlayPCMStream{
		PortAudioStream: stream,
		Buffer:          buffer,
		Reader:          reader,
		doneCh:          make(chan struct{}),
	}
}

func (s *PlayPCMStream) start(ctx context.Context) error {
	if err := s.PortAudioStream.Start(); err != nil {
		return err
	}
	ctx, s.cancelFunc = context.WithCancel(ctx)
	observability.Go(ctx, func() {
		defer close(s.doneCh)
		s.loopErr = s.loop(ctx)
		logger.Debugf(ctx, "play loop: %v", s.loopErr)
	})
	return nil
}

// loop plays the reader until EOF; the last partial buffer is padded with silence.
func (s *PlayPCMStream) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := io.ReadFull(s.Reader, s.Buffer)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			clear(s.Buffer[n:])
		default:
			return fmt.Errorf("unable to read: %w", err)
		}

		if writeErr := s.PortAudioStream.Write(); writeErr != nil && !errors.Is(writeErr, portaudio.OutputUnderflowed) {
			return fmt.Errorf("unable to write: %w", writeErr)
		}
		if err != nil {
			return nil
		}
	}
}

// Drain waits until the whole reader is played.
func (s *PlayPCMStream) Drain() error {
	<-s.doneCh
	return s.loopErr
}

func (s *PlayPCMStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancelFunc()
		var result *multierror.Error
		if err := s.PortAudioStream.Abort(); err != nil {
			result = multierror.Append(result, fmt.Errorf("unable to abort the stream: %w", err))
		}
		<-s.doneCh
		if err := s.PortAudioStream.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("unable to close the stream: %w", err))
		}
		s.closeErr = result.ErrorOrNil()
	})
	return s.closeErr
}
