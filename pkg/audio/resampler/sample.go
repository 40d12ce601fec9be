package resampler

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xaionaro-go/koala/pkg/audio/types"
)

func clamp(v, min, max float64) float64 {
	switch {
	case v < min:
		return min
	case v > max:
		return max
	}
	return v
}

func toSigned(v float64, fullScale float64) float64 {
	return clamp(math.Round(v*fullScale), -fullScale, fullScale-1)
}

func signExtend24(v uint32) int32 {
	if v&0x800000 != 0 {
		v |= 0xff000000
	}
	return int32(v)
}

// getFloat64 decodes one sample into the [-1, 1) range.
func getFloat64(f types.PCMFormat, p []byte) float64 {
	switch f {
	case types.PCMFormatU8:
		return (float64(p[0]) - 128) / 128
	case types.PCMFormatS16LE:
		return float64(int16(binary.LittleEndian.Uint16(p))) / (1 << 15)
	case types.PCMFormatS16BE:
		return float64(int16(binary.BigEndian.Uint16(p))) / (1 << 15)
	case types.PCMFormatS24LE:
		return float64(signExtend24(uint32(p[0])|uint32(p[1])<<8|uint32(p[2])<<16)) / (1 << 23)
	case types.PCMFormatS24BE:
		return float64(signExtend24(uint32(p[2])|uint32(p[1])<<8|uint32(p[0])<<16)) / (1 << 23)
	case types.PCMFormatS32LE:
		return float64(int32(binary.LittleEndian.Uint32(p))) / (1 << 31)
	case types.PCMFormatS32BE:
		return float64(int32(binary.BigEndian.Uint32(p))) / (1 << 31)
	case types.PCMFormatS64LE:
		return float64(int64(binary.LittleEndian.Uint64(p))) / (1 << 63)
	case types.PCMFormatS64BE:
		return float64(int64(binary.BigEndian.Uint64(p))) / (1 << 63)
	case types.PCMFormatFloat32LE:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	case types.PCMFormatFloat32BE:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(p)))
	case types.PCMFormatFloat64LE:
		return math.Float64frombits(binary.LittleEndian.Uint64(p))
	case types.PCMFormatFloat64BE:
		return math.Float64frombits(binary.BigEndian.Uint64(p))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

// setFloat64 encodes one sample; integer formats saturate instead of wrapping.
func setFloat64(f types.PCMFormat, p []byte, v float64) {
	switch f {
	case types.PCMFormatU8:
		p[0] = byte(clamp(math.Round(v*128+128), 0, 255))
	case types.PCMFormatS16LE:
		binary.LittleEndian.PutUint16(p, uint16(int16(toSigned(v, 1<<15))))
	case types.PCMFormatS16BE:
		binary.BigEndian.PutUint16(p, uint16(int16(toSigned(v, 1<<15))))
	case types.PCMFormatS24LE:
		val := int32(toSigned(v, 1<<23))
		p[0], p[1], p[2] = byte(val), byte(val>>8), byte(val>>16)
	case types.PCMFormatS24BE:
		val := int32(toSigned(v, 1<<23))
		p[0], p[1], p[2] = byte(val>>16), byte(val>>8), byte(val)
	case types.PCMFormatS32LE:
		binary.LittleEndian.PutUint32(p, uint32(int32(toSigned(v, 1<<31))))
	case types.PCMFormatS32BE:
		binary.BigEndian.PutUint32(p, uint32(int32(toSigned(v, 1<<31))))
	case types.PCMFormatS64LE:
		binary.LittleEndian.PutUint64(p, uint64(float64ToInt64(v)))
	case types.PCMFormatS64BE:
		binary.BigEndian.PutUint64(p, uint64(float64ToInt64(v)))
	case types.PCMFormatFloat32LE:
		binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v)))
	case types.PCMFormatFloat32BE:
		binary.BigEndian.PutUint32(p, math.Float32bits(float32(v)))
	case types.PCMFormatFloat64LE:
		binary.LittleEndian.PutUint64(p, math.Float64bits(v))
	case types.PCMFormatFloat64BE:
		binary.BigEndian.PutUint64(p, math.Float64bits(v))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

// float64ToInt64 is separate because 1<<63-1 is not representable as float64.
func float64ToInt64(v float64) int64 {
	scaled := math.Round(v * (1 << 63))
	switch {
	case scaled >= 1<<63:
		return math.MaxInt64
	case scaled < -(1 << 63):
		return math.MinInt64
	}
	return int64(scaled)
}
