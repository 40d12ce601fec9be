package resampler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/xaionaro-go/koala/pkg/audio/types"
)

const (
	distanceStep = 10000
)

type Format struct {
	Channels   types.Channel
	SampleRate types.SampleRate
	PCMFormat  types.PCMFormat
}

func (f Format) frameSize() uint {
	return uint(f.PCMFormat.Size()) * uint(f.Channels)
}

type precalculated struct {
	inSampleSize    uint
	outSampleSize   uint
	inNumAvg        uint
	outNumRepeat    uint
	outDistanceStep uint64
}

// Resampler converts PCM read from the underlying reader into another
// sample format, channel count and sample rate (nearest-neighbour).
type Resampler struct {
	inReader    io.Reader
	inFormat    Format
	outFormat   Format
	inDistance  uint64
	outDistance uint64
	locker      sync.Mutex
	buffer      []byte
	pending     []byte
	precalculated
}

var _ io.Reader = (*Resampler)(nil)

func NewResampler(
	inFormat Format,
	inReader io.Reader,
	outFormat Format,
) (*Resampler, error) {
	r := &Resampler{
		inReader:  inReader,
		inFormat:  inFormat,
		outFormat: outFormat,
	}
	err := r.init()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a resampler from %#+v to %#+v: %w", inFormat, outFormat, err)
	}
	return r, nil
}

func (r *Resampler) init() error {
	for _, f := range []Format{r.inFormat, r.outFormat} {
		if f.PCMFormat == types.PCMFormatUndefined || f.PCMFormat >= types.EndOfPCMFormat {
			return fmt.Errorf("unsupported PCM format %v", f.PCMFormat)
		}
		if f.Channels == 0 {
			return fmt.Errorf("the amount of channels is zero")
		}
		if f.SampleRate == 0 {
			return fmt.Errorf("the sample rate is zero")
		}
	}

	r.inSampleSize = uint(r.inFormat.PCMFormat.Size())
	r.outSampleSize = uint(r.outFormat.PCMFormat.Size())

	r.inNumAvg = 1
	r.outNumRepeat = 1
	if r.inFormat.Channels != r.outFormat.Channels {
		switch {
		case r.inFormat.Channels == 1:
			r.outNumRepeat = uint(r.outFormat.Channels)
		case r.outFormat.Channels == 1:
			r.inNumAvg = uint(r.inFormat.Channels)
		default:
			return fmt.Errorf("do not know how to convert %d channels to %d", r.inFormat.Channels, r.outFormat.Channels)
		}
	}

	sampleRateAdjust := float64(r.outFormat.SampleRate) / float64(r.inFormat.SampleRate)
	r.outDistanceStep = uint64(float64(distanceStep) / sampleRateAdjust)

	r.inDistance = 0
	r.outDistance = 0
	return nil
}

func (r *Resampler) Read(p []byte) (int, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	inFrameSize := r.inFormat.frameSize()
	maxOutChunks := uint64(len(p)) / uint64(r.outFormat.frameSize())
	if maxOutChunks == 0 {
		return 0, nil
	}

	chunksToRead := uint64(float64(maxOutChunks) * float64(r.inFormat.SampleRate) / float64(r.outFormat.SampleRate))
	if chunksToRead == 0 {
		chunksToRead = 1
	}
	bytesToRead := int(chunksToRead * uint64(inFrameSize))
	if bytesToRead < len(r.pending) {
		bytesToRead = len(r.pending)
	}
	if cap(r.buffer) < bytesToRead {
		r.buffer = make([]byte, bytesToRead)
	}
	r.buffer = r.buffer[:bytesToRead]
	copied := copy(r.buffer, r.pending)
	r.pending = r.pending[:0]

	n, err := r.inReader.Read(r.buffer[copied:])
	n += copied
	r.buffer = r.buffer[:n]

	// the underlying reader may return a partial frame; it is kept for the next call
	tail := n % int(inFrameSize)
	if tail != 0 && errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("the input ended in the middle of a frame (%d extra bytes): %w", tail, io.ErrUnexpectedEOF)
	}
	chunksRead := uint64(n-tail) / uint64(inFrameSize)

	outFrameSize := r.outFormat.frameSize()
	dstChunkIdx := uint64(0)
	srcChunkIdx := uint64(0)
	for srcChunkIdx < chunksRead && dstChunkIdx < maxOutChunks {
		for r.inDistance < r.outDistance && srcChunkIdx < chunksRead {
			srcChunkIdx++
			r.inDistance += distanceStep
		}
		if srcChunkIdx >= chunksRead {
			break
		}

		src := r.buffer[srcChunkIdx*uint64(inFrameSize):]
		for dstChunkIdx < maxOutChunks && r.outDistance <= r.inDistance {
			dst := p[dstChunkIdx*uint64(outFrameSize):]
			r.convertFrame(dst, src)
			dstChunkIdx++
			r.outDistance += r.outDistanceStep
		}
		if dstChunkIdx >= maxOutChunks && r.outDistance <= r.inDistance {
			// the output is full, but this frame is still needed
			break
		}

		srcChunkIdx++
		r.inDistance += distanceStep
	}
	if unconsumed := r.buffer[srcChunkIdx*uint64(inFrameSize):]; len(unconsumed) > 0 {
		r.pending = append(r.pending, unconsumed...)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}

	return int(dstChunkIdx * uint64(outFrameSize)), err
}

func (r *Resampler) convertFrame(dst, src []byte) {
	inChannels := uint(r.inFormat.Channels)
	outChannels := uint(r.outFormat.Channels)
	switch {
	case inChannels == outChannels:
		for ch := uint(0); ch < outChannels; ch++ {
			v := getFloat64(r.inFormat.PCMFormat, src[ch*r.inSampleSize:])
			setFloat64(r.outFormat.PCMFormat, dst[ch*r.outSampleSize:], v)
		}
	default:
		var sum float64
		for ch := uint(0); ch < r.inNumAvg; ch++ {
			sum += getFloat64(r.inFormat.PCMFormat, src[ch*r.inSampleSize:])
		}
		v := sum / float64(r.inNumAvg)
		for ch := uint(0); ch < r.outNumRepeat; ch++ {
			setFloat64(r.outFormat.PCMFormat, dst[ch*r.outSampleSize:], v)
		}
	}
}

// Convert is a helper that resamples a whole in-memory buffer.
func Convert(inFormat Format, in []byte, outFormat Format) ([]byte, error) {
	r, err := NewResampler(inFormat, bytes.NewReader(in), outFormat)
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to convert: %w", err)
	}
	return out, nil
}
