package audio

import (
	"context"
	"io"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/koala/pkg/audio/registry"
)

const BufferSize = 100 * time.Millisecond

type Player struct {
	PlayerPCM
}

func NewPlayer(playerPCM PlayerPCM) *Player {
	return &Player{
		PlayerPCM: playerPCM,
	}
}

var lastSuccessfulPlayerFactory lastSuccessful[registry.PlayerPCMFactory]

// NewPlayerAuto returns a player of the first registered backend
// that works on this machine, or a dummy player if none does.
func NewPlayerAuto(
	ctx context.Context,
) *Player {
	player, err := autoSelect(
		ctx,
		&lastSuccessfulPlayerFactory,
		registry.PlayerFactories(),
		registry.PlayerPCMFactory.NewPlayerPCM,
	)
	if err != nil {
		logger.Infof(ctx, "was unable to initialize any PCM player: %v", err)
		return &Player{
			PlayerPCM: PlayerPCMDummy{},
		}
	}
	return NewPlayer(player)
}

func (a *Player) PlayPCM(
	ctx context.Context,
	sampleRate SampleRate,
	channels Channel,
	pcmFormat PCMFormat,
	bufferSize time.Duration,
	pcmReader io.Reader,
) (PlayStream, error) {
	return a.PlayerPCM.PlayPCM(
		ctx,
		sampleRate,
		channels,
		pcmFormat,
		bufferSize,
		pcmReader,
	)
}
