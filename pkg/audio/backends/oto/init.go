package oto

import (
	"github.com/xaionaro-go/koala/pkg/audio/registry"
	"github.com/xaionaro-go/koala/pkg/audio/types"
)

// Priority is below the other backends: oto is output-only and resamples
// everything to its shared context format.
const Priority = 50

func init() {
	registry.RegisterPlayerFactory(Priority, PlayerFactory{})
}

type PlayerFactory struct{}

func (PlayerFactory) String() string { return "oto player" }

func (PlayerFactory) NewPlayerPCM() (types.PlayerPCM, error) {
	return NewPlayerPCM()
}
