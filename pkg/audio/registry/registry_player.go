package registry

import (
	"github.com/xaionaro-go/koala/pkg/audio/types"
)

type PlayerPCMFactory interface {
	NewPlayerPCM() (types.PlayerPCM, error)
}

var playerFactoryRegistry = newRegistry[PlayerPCMFactory]("PlayerPCM")

func RegisterPlayerFactory(
	priority int,
	playerPCMFactory PlayerPCMFactory,
) {
	playerFactoryRegistry.register(priority, playerPCMFactory)
}

func PlayerFactories() []PlayerPCMFactory {
	return playerFactoryRegistry.list()
}
