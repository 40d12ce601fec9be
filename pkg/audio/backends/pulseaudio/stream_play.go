package pulseaudio

import (
	"fmt"

	"github.com/jfreymuth/pulse"
)

type PlayStream struct {
	*pulse.PlaybackStream
}

func (stream *PlayStream) Drain() error {
	stream.PlaybackStream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("an error occurred during playback: %w", err)
	}
	return nil
}

func (stream *PlayStream) Close() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("got a panic: %v", r)
		}
	}()
	stream.PlaybackStream.Stop()
	stream.PlaybackStream.Close()
	return nil
}
