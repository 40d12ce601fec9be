package oto

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/koala/pkg/audio/resampler"
	"github.com/xaionaro-go/koala/pkg/audio/types"
)

type PlayerPCM struct {
	OtoCtx *oto.Context
}

var _ types.PlayerPCM = (*PlayerPCM)(nil)

func NewPlayerPCM() (*PlayerPCM, error) {
	otoCtx, err := getOtoContext()
	if err != nil {
		return nil, fmt.Errorf("unable to get an oto context: %w", err)
	}
	return &PlayerPCM{
		OtoCtx: otoCtx,
	}, nil
}

func (p *PlayerPCM) Close() error {
	return nil
}

func (p *PlayerPCM) Ping(context.Context) error {
	return p.OtoCtx.Err()
}

func (p *PlayerPCM) PlayPCM(
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
	format types.PCMFormat,
	bufferSize time.Duration,
	reader io.Reader,
) (_ret types.PlayStream, _err error) {
	logger.Tracef(ctx, "PlayPCM(%d, %d, %s)", sampleRate, channels, format)
	defer func() { logger.Tracef(ctx, "/PlayPCM(%d, %d, %s): %v", sampleRate, channels, format, _err) }()

	if bufferSize != BufferSize {
		logger.Debugf(ctx, "oto uses a fixed buffer size %v, requested %v is ignored", BufferSize, bufferSize)
	}
	reader, err := toContextFormat(resampler.Format{
		Channels:   channels,
		SampleRate: sampleRate,
		PCMFormat:  format,
	}, reader)
	if err != nil {
		return nil, err
	}

	player := p.OtoCtx.NewPlayer(reader)
	player.Play()
	return newStream(player), nil
}

// toContextFormat converts the audio to the format of the shared oto context,
// which cannot change once created.
func toContextFormat(in resampler.Format, reader io.Reader) (io.Reader, error) {
	out := resampler.Format{
		Channels:   Channels,
		SampleRate: SampleRate,
		PCMFormat:  Format,
	}
	if in == out {
		return reader, nil
	}
	r, err := resampler.NewResampler(in, reader, out)
	if err != nil {
		return nil, fmt.Errorf("unable to convert %+v to the oto context format: %w", in, err)
	}
	return r, nil
}
