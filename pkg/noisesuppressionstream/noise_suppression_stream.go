package noisesuppressionstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/iamcalledrob/circular"
	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
	"github.com/xaionaro-go/observability"
)

const (
	bytesPerSample = 2

	// DefaultOutputBufferFrames is the output buffer size (in frames) used
	// when no size is given.
	DefaultOutputBufferFrames = 8
)

// NoiseSuppressionStream reads S16LE mono PCM from the input and returns
// the enhanced PCM, aligned with the input: the concatenation of everything
// read is exactly what ProcessComplete would return for the whole input.
// The engine is reset when the input is over.
type NoiseSuppressionStream struct {
	noiseSuppression noisesuppression.NoiseSuppression
	frameLength      uint64
	delay            uint64

	locker           sync.Mutex
	outputBuffer     *circular.Buffer
	outputBufferSize int
	isFinished       bool
	resultError      error
	readCtx          context.Context
	cancelFn         context.CancelFunc
	doneCh           chan struct{}

	outputProducedCh chan struct{}
	outputConsumedCh chan struct{}
}

var _ io.ReadCloser = (*NoiseSuppressionStream)(nil)

func NewNoiseSuppressionStream(
	ctx context.Context,
	input io.Reader,
	noiseSuppression noisesuppression.NoiseSuppression,
	outputBufferSize uint,
) (*NoiseSuppressionStream, error) {
	encoding, err := noiseSuppression.Encoding(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get the encoding of the noise suppression: %w", err)
	}
	if pcm, ok := encoding.(audio.EncodingPCM); !ok || pcm.PCMFormat != audio.PCMFormatS16LE {
		return nil, fmt.Errorf("only S16LE engines are supported, got %#+v", encoding)
	}
	channels, err := noiseSuppression.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get the amount of channels of the noise suppression: %w", err)
	}
	if channels != 1 {
		return nil, fmt.Errorf("only single-channel engines are supported, got %d channels", channels)
	}
	frameLength := noiseSuppression.FrameLength()
	if frameLength == 0 {
		return nil, fmt.Errorf("the engine reported a zero frame length: %w", noisesuppression.ErrInvalidState)
	}

	if outputBufferSize == 0 {
		outputBufferSize = uint(frameLength) * bytesPerSample * DefaultOutputBufferFrames
	}
	if outputBufferSize < bytesPerSample {
		return nil, fmt.Errorf("the output buffer is too small: %d", outputBufferSize)
	}

	ctx, cancelFn := context.WithCancel(ctx)
	s := &NoiseSuppressionStream{
		noiseSuppression: noiseSuppression,
		frameLength:      uint64(frameLength),
		delay:            uint64(noiseSuppression.DelaySample()),
		outputBuffer:     circular.NewBuffer(int(outputBufferSize)),
		outputBufferSize: int(outputBufferSize),
		readCtx:          ctx,
		cancelFn:         cancelFn,
		doneCh:           make(chan struct{}),

		outputProducedCh: make(chan struct{}),
		outputConsumedCh: make(chan struct{}),
	}
	observability.Go(ctx, func() {
		defer close(s.doneCh)
		err := s.processLoop(ctx, input)
		s.locker.Lock()
		defer s.locker.Unlock()
		s.isFinished = true
		if err != nil && s.resultError == nil {
			s.resultError = fmt.Errorf("got an error from the noise suppressor loop: %w", err)
		}
		notify(&s.outputProducedCh)
	})
	return s, nil
}

func notify(ch *chan struct{}) {
	oldCh := *ch
	*ch = make(chan struct{})
	close(oldCh)
}

// wait must be called with s.locker held.
func (s *NoiseSuppressionStream) wait(ctx context.Context, ch chan struct{}) {
	s.locker.Unlock()
	defer s.locker.Lock()
	select {
	case <-ctx.Done():
	case <-ch:
	}
}

func (s *NoiseSuppressionStream) processLoop(
	ctx context.Context,
	input io.Reader,
) (_err error) {
	logger.Tracef(ctx, "processLoop")
	defer func() { logger.Tracef(ctx, "/processLoop: %v", _err) }()

	inputBytes := make([]byte, s.frameLength*bytesPerSample)
	frame := make([]int16, s.frameLength)
	output := make([]int16, s.frameLength)
	outputBytes := make([]byte, 0, len(inputBytes))

	var (
		total       uint64
		inputIsOver bool
	)
	for start := uint64(0); ; start += s.frameLength {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !inputIsOver {
			n, err := io.ReadFull(input, inputBytes)
			switch {
			case err == nil:
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				inputIsOver = true
			default:
				return fmt.Errorf("unable to read the input: %w", err)
			}
			if n%bytesPerSample != 0 {
				return fmt.Errorf("the input ended in the middle of a sample")
			}
			total += uint64(n / bytesPerSample)
			clear(inputBytes[n:])
			if err := audio.S16LEFromBytes(frame, inputBytes); err != nil {
				return fmt.Errorf("unable to decode the input: %w", err)
			}
		} else {
			clear(frame)
		}
		if inputIsOver && start >= total+s.delay {
			break
		}

		if err := s.noiseSuppression.Process(ctx, frame, output); err != nil {
			return fmt.Errorf("unable to process the frame [%d:%d]: %w", start, start+s.frameLength, err)
		}

		// before the end of the input total >= start+frameLength, so the
		// tail is never cut
		trimmed := noisesuppression.TrimOutput(output, start, s.delay, total)
		outputBytes = audio.AppendS16LE(outputBytes[:0], trimmed)
		if err := s.writeOutput(ctx, outputBytes); err != nil {
			return err
		}
	}

	if err := s.noiseSuppression.Reset(ctx); err != nil {
		return fmt.Errorf("unable to reset the engine: %w", err)
	}
	return nil
}

func (s *NoiseSuppressionStream) writeOutput(
	ctx context.Context,
	data []byte,
) error {
	s.locker.Lock()
	defer s.locker.Unlock()

	for len(data) > 0 {
		chunk := data
		if len(chunk) > s.outputBufferSize {
			chunk = chunk[:s.outputBufferSize]
		}
		w, err := s.outputBuffer.Write(chunk)
		if w > 0 {
			data = data[w:]
			notify(&s.outputProducedCh)
		}
		switch {
		case err == nil:
		case errors.Is(err, circular.ErrNoSpace):
			s.wait(ctx, s.outputConsumedCh)
			if err := ctx.Err(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unable to write to the circular buffer: %w", err)
		}
	}
	return nil
}

func (s *NoiseSuppressionStream) Read(pcm []byte) (_ret int, _err error) {
	logger.Tracef(s.readCtx, "Read, len:%d", len(pcm))
	defer func() { logger.Tracef(s.readCtx, "/Read, len:%d: %d, %v", len(pcm), _ret, _err) }()

	if len(pcm) == 0 {
		return 0, nil
	}

	s.locker.Lock()
	defer s.locker.Unlock()
	for {
		n, err := s.outputBuffer.Read(pcm)
		if n > 0 {
			notify(&s.outputConsumedCh)
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("unable to read from the circular buffer: %w", err)
		}
		if s.isFinished {
			if s.resultError != nil {
				return 0, s.resultError
			}
			return 0, io.EOF
		}
		if s.readCtx.Err() != nil {
			s.locker.Unlock()
			<-s.doneCh
			s.locker.Lock()
			continue
		}
		s.wait(s.readCtx, s.outputProducedCh)
	}
}

// Close stops the processing. It does not close the engine.
func (s *NoiseSuppressionStream) Close() error {
	s.cancelFn()
	<-s.doneCh
	return nil
}
