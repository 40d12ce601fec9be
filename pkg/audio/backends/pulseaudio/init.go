package pulseaudio

import (
	"github.com/xaionaro-go/koala/pkg/audio/registry"
	"github.com/xaionaro-go/koala/pkg/audio/types"
)

// Priority puts PulseAudio first: where a server runs, it owns the devices.
const Priority = 100

func init() {
	registry.RegisterRecorderFactory(Priority, RecorderFactory{})
	registry.RegisterPlayerFactory(Priority, PlayerFactory{})
}

type RecorderFactory struct{}

func (RecorderFactory) String() string { return "PulseAudio recorder" }

func (RecorderFactory) NewRecorderPCM() (types.RecorderPCM, error) {
	return NewRecorderPCM()
}

type PlayerFactory struct{}

func (PlayerFactory) String() string { return "PulseAudio player" }

func (PlayerFactory) NewPlayerPCM() (types.PlayerPCM, error) {
	return NewPlayerPCM()
}
