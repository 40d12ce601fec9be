package portaudio

import (
	"fmt"
	"unsafe"

	"github.com/xaionaro-go/koala/pkg/audio/types"
)

// newSampleBuffer allocates an interleaved buffer of the given amount of
// samples in the Go type PortAudio expects for the format, and returns it
// together with a byte view of the same memory.
func newSampleBuffer(format types.PCMFormat, samples int) (any, []byte, error) {
	switch format {
	case types.PCMFormatU8:
		buf, b := typedBuffer[uint8](samples)
		return buf, b, nil
	case types.PCMFormatS16LE:
		buf, b := typedBuffer[int16](samples)
		return buf, b, nil
	case types.PCMFormatS32LE:
		buf, b := typedBuffer[int32](samples)
		return buf, b, nil
	case types.PCMFormatFloat32LE:
		buf, b := typedBuffer[float32](samples)
		return buf, b, nil
	default:
		return nil, nil, fmt.Errorf("PCM format %s is not supported by PortAudio", format)
	}
}

func typedBuffer[T uint8 | int16 | int32 | float32](samples int) ([]T, []byte) {
	buf := make([]T, samples)
	var sample T
	return buf, unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(buf))), samples*int(unsafe.Sizeof(sample)))
}
