package koala

import (
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
)

type handle uintptr

// api is the set of engine entry points the binding relies on.
type api interface {
	Init(accessKey, modelPath, device string) (handle, noisesuppression.Status)
	SampleRate() int32
	FrameLength() int32
	DelaySample(h handle) (int32, noisesuppression.Status)
	Process(h handle, pcm []int16, enhanced []int16) noisesuppression.Status
	Reset(h handle) noisesuppression.Status
	Delete(h handle)
	Version() string
	ListHardwareDevices() ([]string, noisesuppression.Status)
	StatusToString(status noisesuppression.Status) string
	ErrorStack() ([]string, noisesuppression.Status)
	Close() error
}
