package pulseaudio

import (
	"fmt"

	"github.com/jfreymuth/pulse"
)

// RecordStream does not own the client: it belongs to RecorderPCM.
type RecordStream struct {
	*pulse.RecordStream
}

func (stream *RecordStream) Close() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("got a panic: %v", r)
		}
	}()
	stream.RecordStream.Stop()
	stream.RecordStream.Close()
	if err := stream.RecordStream.Error(); err != nil {
		return fmt.Errorf("an error occurred during recording: %w", err)
	}
	return nil
}
