package portaudio

import (
	"fmt"

	"github.com/xaionaro-go/koala/pkg/audio/registry"
	"github.com/xaionaro-go/koala/pkg/audio/types"
)

const Priority = 60

func init() {
	registry.RegisterRecorderFactory(Priority, RecorderFactory{DeviceIndex: DefaultDeviceIndex})
	registry.RegisterPlayerFactory(Priority, PlayerFactory{})
}

// RecorderFactory opens the input device with the given index
// (DefaultDeviceIndex for the system default).
type RecorderFactory struct {
	DeviceIndex int
}

func (f RecorderFactory) String() string {
	if f.DeviceIndex == DefaultDeviceIndex {
		return "PortAudio recorder"
	}
	return fmt.Sprintf("PortAudio recorder (device #%d)", f.DeviceIndex)
}

func (f RecorderFactory) NewRecorderPCM() (types.RecorderPCM, error) {
	return NewRecorderPCM(f.DeviceIndex)
}

type PlayerFactory struct{}

func (PlayerFactory) String() string { return "PortAudio player" }

func (PlayerFactory) NewPlayerPCM() (types.PlayerPCM, error) {
	return NewPlayerPCM()
}
