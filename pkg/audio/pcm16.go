package audio

import (
	"encoding/binary"
	"fmt"
)

// S16LEFromBytes decodes little-endian signed 16-bit samples from src into dst.
func S16LEFromBytes(dst []int16, src []byte) error {
	if len(src)%2 != 0 {
		return fmt.Errorf("the length of the input is not a multiple of 2: %d", len(src))
	}
	if len(dst) != len(src)/2 {
		return fmt.Errorf("the output has %d samples, but the input has %d", len(dst), len(src)/2)
	}
	for idx := range dst {
		dst[idx] = int16(binary.LittleEndian.Uint16(src[idx*2:]))
	}
	return nil
}

// AppendS16LE encodes the samples as little-endian signed 16-bit integers and
// appends them to dst.
func AppendS16LE(dst []byte, samples []int16) []byte {
	for _, v := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(v))
	}
	return dst
}

// S16LE returns the little-endian representation of the samples.
func S16LE(samples []int16) []byte {
	return AppendS16LE(make([]byte, 0, len(samples)*2), samples)
}
