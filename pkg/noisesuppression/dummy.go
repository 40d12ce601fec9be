package noisesuppression

import (
	"context"
	"fmt"
	"sync"

	"github.com/xaionaro-go/koala/pkg/audio"
)

// Dummy is a pure-Go engine: a delay line of DelaySample samples followed by
// an optional per-sample Transform.
type Dummy struct {
	SampleRateValue  audio.SampleRate
	FrameLengthValue uint
	DelaySampleValue uint
	Transform        func(int16) int16

	locker    sync.Mutex
	delayLine []int16
	isClosed  bool
}

var (
	_ NoiseSuppression = (*Dummy)(nil)
	_ Versioner        = (*Dummy)(nil)
	_ DeviceLister     = (*Dummy)(nil)
)

func NewDummy(
	sampleRate audio.SampleRate,
	frameLength uint,
	delaySample uint,
) *Dummy {
	return &Dummy{
		SampleRateValue:  sampleRate,
		FrameLengthValue: frameLength,
		DelaySampleValue: delaySample,
		delayLine:        make([]int16, delaySample),
	}
}

func (s *Dummy) Close() error {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.isClosed = true
	return nil
}

func (s *Dummy) Encoding(context.Context) (audio.Encoding, error) {
	return audio.EncodingPCM{
		PCMFormat:  audio.PCMFormatS16LE,
		SampleRate: s.SampleRateValue,
	}, nil
}

func (s *Dummy) Channels(context.Context) (audio.Channel, error) {
	return 1, nil
}

func (s *Dummy) FrameLength() uint {
	return s.FrameLengthValue
}

func (s *Dummy) DelaySample() uint {
	return s.DelaySampleValue
}

func (s *Dummy) Version() string {
	return "dummy"
}

func (s *Dummy) ListHardwareDevices(context.Context) ([]string, error) {
	return []string{"cpu"}, nil
}

func (s *Dummy) Process(
	ctx context.Context,
	input []int16,
	output []int16,
) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.isClosed {
		return fmt.Errorf("the engine is already closed: %w", ErrInvalidState)
	}
	if len(input) != int(s.FrameLengthValue) || len(output) != int(s.FrameLengthValue) {
		return fmt.Errorf("expected frames of %d samples, got input of %d and output of %d: %w", s.FrameLengthValue, len(input), len(output), ErrInvalidArgument)
	}
	if len(s.delayLine) != int(s.DelaySampleValue) {
		s.delayLine = make([]int16, s.DelaySampleValue)
	}

	history := append(s.delayLine, input...)
	for idx := range output {
		v := history[idx]
		if s.Transform != nil {
			v = s.Transform(v)
		}
		output[idx] = v
	}
	s.delayLine = append(s.delayLine[:0], history[len(output):]...)
	return nil
}

func (s *Dummy) Reset(context.Context) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.isClosed {
		return fmt.Errorf("the engine is already closed: %w", ErrInvalidState)
	}
	s.delayLine = make([]int16, s.DelaySampleValue)
	return nil
}
