package oto

import (
	"time"

	"github.com/ebitengine/oto/v3"
)

const drainPollInterval = 10 * time.Millisecond

type Stream struct {
	Player *oto.Player
}

func newStream(player *oto.Player) *Stream {
	return &Stream{
		Player: player,
	}
}

// Drain waits until everything read from the source is played.
func (s *Stream) Drain() error {
	for s.Player.IsPlaying() {
		time.Sleep(drainPollInterval)
	}
	return s.Player.Err()
}

func (s *Stream) Close() error {
	return s.Player.Close()
}
