package types

import (
	"context"
	"io"
	"time"
)

// Backend is an audio subsystem handle. Ping reports whether the subsystem
// is usable on this machine right now.
type Backend interface {
	io.Closer
	Ping(context.Context) error
}

// RecorderPCM captures PCM into the writer until the returned stream is closed.
type RecorderPCM interface {
	Backend
	RecordPCM(
		ctx context.Context,
		sampleRate SampleRate,
		channels Channel,
		format PCMFormat,
		writer io.Writer,
	) (RecordStream, error)
}

// PlayerPCM plays PCM read from the reader until it returns io.EOF
// or the returned stream is closed.
type PlayerPCM interface {
	Backend
	PlayPCM(
		ctx context.Context,
		sampleRate SampleRate,
		channels Channel,
		format PCMFormat,
		bufferSize time.Duration,
		reader io.Reader,
	) (PlayStream, error)
}

type Stream = io.Closer

type PlayStream interface {
	Stream

	// Drain blocks until everything read from the reader has been played.
	Drain() error
}

type RecordStream = Stream
