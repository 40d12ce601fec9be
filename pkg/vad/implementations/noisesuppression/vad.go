package noisesuppression

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/audio/level"
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
	"github.com/xaionaro-go/koala/pkg/vad"
)

// VAD detects voice by the level of the enhanced signal: whatever survives
// noise suppression is considered speech.
type VAD struct {
	noisesuppression.NoiseSuppression
	ChunkSamples  uint64
	ChunkDuration time.Duration
	Delay         time.Duration

	// Enhanced is the engine output for the last analyzed chunk.
	Enhanced []int16
}

var _ vad.VAD = (*VAD)(nil)

func NewVAD(
	ctx context.Context,
	noiseSuppression noisesuppression.NoiseSuppression,
	preferredGranularity time.Duration,
) (*VAD, error) {
	frameLength := uint64(noiseSuppression.FrameLength())
	if frameLength == 0 {
		return nil, fmt.Errorf("the engine reported a zero frame length: %w", noisesuppression.ErrInvalidState)
	}
	encoding, err := noiseSuppression.Encoding(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get the encoding: %w", err)
	}
	encodingPCM, ok := encoding.(audio.EncodingPCM)
	if !ok {
		return nil, fmt.Errorf("noise suppression encoding is not PCM: %T", encoding)
	}

	preferredChunkSamples := encoding.BytesForDuration(preferredGranularity) / uint64(encoding.BytesPerSample())
	frames := (preferredChunkSamples + frameLength/2) / frameLength
	if frames < 1 {
		frames = 1
	}
	chunkSamples := frames * frameLength
	chunkDuration := encodingPCM.SamplesDuration(chunkSamples)
	logger.Debugf(ctx, "resulting chunkSamples:%d and chunkDuration:%v", chunkSamples, chunkDuration)

	return &VAD{
		NoiseSuppression: noiseSuppression,
		ChunkSamples:     chunkSamples,
		ChunkDuration:    chunkDuration,
		Delay:            encodingPCM.SamplesDuration(uint64(noiseSuppression.DelaySample())),
		Enhanced:         make([]int16, chunkSamples),
	}, nil
}

func (v *VAD) FindNextVoice(
	ctx context.Context,
	samples []int16,
	confidenceThreshold float64,
	minDuration time.Duration,
) (float64, time.Duration, error) {
	if len(samples) == 0 {
		return 0, -1, nil
	}
	if len(samples) < int(v.ChunkSamples) {
		return 0, -1, fmt.Errorf("got %d samples, which is less than a chunk of %d: %w", len(samples), v.ChunkSamples, noisesuppression.ErrInvalidArgument)
	}

	var maxConfidence float64

	var foundVoiceFor time.Duration
	firstVoiceDetection := time.Duration(-1)

	frameLength := int(v.NoiseSuppression.FrameLength())
	for pos := 0; ; pos++ {
		if len(samples) < int(v.ChunkSamples) {
			return maxConfidence, firstVoiceDetection, nil
		}
		chunk := samples[:v.ChunkSamples]
		samples = samples[len(chunk):]
		for offset := 0; offset < len(chunk); offset += frameLength {
			err := v.NoiseSuppression.Process(ctx, chunk[offset:offset+frameLength], v.Enhanced[offset:offset+frameLength])
			if err != nil {
				return maxConfidence, firstVoiceDetection, err
			}
		}

		voiceConfidence := level.VU(v.Enhanced)
		if voiceConfidence > maxConfidence {
			maxConfidence = voiceConfidence
		}

		if voiceConfidence >= confidenceThreshold {
			foundVoiceFor += v.ChunkDuration
			if firstVoiceDetection < 0 {
				// the enhanced chunk lags behind the input by the engine delay
				firstVoiceDetection = max(v.ChunkDuration*time.Duration(pos)-v.Delay, 0)
			}
		}

		if foundVoiceFor >= minDuration {
			return maxConfidence, firstVoiceDetection, nil
		}
	}
}
