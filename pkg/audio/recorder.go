package audio

import (
	"context"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/koala/pkg/audio/registry"
)

type Recorder struct {
	RecorderPCM
}

func NewRecorder(recorderPCM RecorderPCM) *Recorder {
	return &Recorder{
		RecorderPCM: recorderPCM,
	}
}

var lastSuccessfulRecorderFactory lastSuccessful[registry.RecorderPCMFactory]

// NewRecorderAuto returns a recorder of the first registered backend
// that works on this machine, or a dummy recorder if none does.
func NewRecorderAuto(
	ctx context.Context,
) *Recorder {
	recorder, err := autoSelect(
		ctx,
		&lastSuccessfulRecorderFactory,
		registry.RecorderFactories(),
		registry.RecorderPCMFactory.NewRecorderPCM,
	)
	if err != nil {
		logger.Infof(ctx, "was unable to initialize any PCM recorder: %v", err)
		return &Recorder{
			RecorderPCM: RecorderPCMDummy{},
		}
	}
	return NewRecorder(recorder)
}

func (a *Recorder) RecordPCM(
	ctx context.Context,
	sampleRate SampleRate,
	channels Channel,
	pcmFormat PCMFormat,
	pcmWriter io.Writer,
) (RecordStream, error) {
	return a.RecorderPCM.RecordPCM(
		ctx,
		sampleRate,
		channels,
		pcmFormat,
		pcmWriter,
	)
}
