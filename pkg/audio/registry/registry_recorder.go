package registry

import (
	"github.com/xaionaro-go/koala/pkg/audio/types"
)

type RecorderPCMFactory interface {
	NewRecorderPCM() (types.RecorderPCM, error)
}

var recorderFactoryRegistry = newRegistry[RecorderPCMFactory]("RecorderPCM")

func RegisterRecorderFactory(
	priority int,
	recorderPCMFactory RecorderPCMFactory,
) {
	recorderFactoryRegistry.register(priority, recorderPCMFactory)
}

func RecorderFactories() []RecorderPCMFactory {
	return recorderFactoryRegistry.list()
}
