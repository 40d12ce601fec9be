package portaudio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/observability"
)

const (
	RecordBufferSize = 10 * time.Millisecond

	// how many captured buffers may wait for a slow writer before they are dropped
	recordQueueLength = 64
)

type RecordPCMStream struct {
	PortAudioStream *portaudio.Stream
	Buffer          []byte
	Writer          io.Writer

	chunks     chan []byte
	cancelFunc context.CancelFunc
	waitGroup  sync.WaitGroup
	closeOnce  sync.Once
	closeErr   error
}

func newRecordPCMStream(
	stream *portaudio.Stream,
	buffer []byte,
	writer io.Writer,
) *RecordPCMStream {
	return &RecordPCMStream{
		PortAudioStream: stream,
		Buffer:          buffer,
		Writer:          writer,
		chunks:          make(chan []byte, recordQueueLength),
	}
}

func (s *RecordPCMStream) start(ctx context.Context) error {
	if err := s.PortAudioStream.Start(); err != nil {
		return err
	}
	ctx, s.cancelFunc = context.WithCancel(ctx)

	s.waitGroup.Add(2)
	observability.Go(ctx, func() {
		defer s.waitGroup.Done()
		defer close(s.chunks)
		err := s.readerLoop(ctx)
		logger.Debugf(ctx, "readerLoop: %v", err)
	})
	observability.Go(ctx, func() {
		defer s.waitGroup.Done()
		err := s.writerLoop(ctx)
		logger.Debugf(ctx, "writerLoop: %v", err)
		if err != nil {
			s.cancelFunc()
		}
	})
	return nil
}

func (s *RecordPCMStream) readerLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.PortAudioStream.Read()
		switch {
		case err == nil:
		case errors.Is(err, portaudio.InputOverflowed):
			logger.Warnf(ctx, "input overflow, some audio was lost")
		default:
			return fmt.Errorf("unable to read: %w", err)
		}

		chunk := make([]byte, len(s.Buffer))
		copy(chunk, s.Buffer)
		select {
		case s.chunks <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		default:
			logger.Warnf(ctx, "the writer is too slow, dropping %d bytes", len(chunk))
		}
	}
}

func (s *RecordPCMStream) writerLoop(ctx context.Context) error {
	for chunk := range s.chunks {
		n, err := s.Writer.Write(chunk)
		if err != nil {
			return fmt.Errorf("unable to write: %w", err)
		}
		if n != len(chunk) {
			return fmt.Errorf("invalid write length: %d != %d", n, len(chunk))
		}
	}
	return nil
}

func (s *RecordPCMStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancelFunc()
		var result *multierror.Error
		if err := s.PortAudioStream.Abort(); err != nil {
			result = multierror.Append(result, fmt.Errorf("unable to abort the stream: %w", err))
		}
		s.waitGroup.Wait()
		if err := s.PortAudioStream.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("unable to close the stream: %w", err))
		}
		s.closeErr = result.ErrorOrNil()
	})
	return s.closeErr
}
