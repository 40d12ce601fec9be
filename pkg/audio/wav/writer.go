package wav

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/koala/pkg/audio/types"
)

const (
	bitDepth       = 16
	wavFormatPCM   = 1
	channelsMono   = 1
	bytesPerSample = bitDepth / 8
)

// Writer writes mono signed 16-bit samples into a WAV file. The header is
// finalized on Close.
type Writer struct {
	closer   io.Closer
	encoder  *wav.Encoder
	buf      *goaudio.IntBuffer
	pending  []byte
	samples  uint64
	isClosed bool
}

var _ io.WriteCloser = (*Writer)(nil)

func NewWriter(w io.WriteSeeker, sampleRate types.SampleRate) *Writer {
	return &Writer{
		encoder: wav.NewEncoder(w, int(sampleRate), bitDepth, channelsMono, wavFormatPCM),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: channelsMono,
				SampleRate:  int(sampleRate),
			},
			SourceBitDepth: bitDepth,
		},
	}
}

// Create creates (or truncates) the file and returns a Writer that also
// closes the file.
func Create(path string, sampleRate types.SampleRate) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create file '%s': %w", path, err)
	}
	w := NewWriter(f, sampleRate)
	w.closer = f
	return w, nil
}

func (w *Writer) WriteSamples(samples []int16) error {
	if w.isClosed {
		return fmt.Errorf("the writer is already closed")
	}
	if len(samples) == 0 {
		return nil
	}
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for idx, v := range samples {
		w.buf.Data[idx] = int(v)
	}
	if err := w.encoder.Write(w.buf); err != nil {
		return fmt.Errorf("unable to write %d samples: %w", len(samples), err)
	}
	w.samples += uint64(len(samples))
	return nil
}

// Write accepts S16LE PCM; an odd trailing byte is kept until the next call.
func (w *Writer) Write(p []byte) (int, error) {
	data := p
	if len(w.pending) > 0 {
		data = append(w.pending, p...)
	}
	full := len(data) - len(data)%bytesPerSample
	samples := make([]int16, full/bytesPerSample)
	for idx := range samples {
		samples[idx] = int16(uint16(data[idx*2]) | uint16(data[idx*2+1])<<8)
	}
	if err := w.WriteSamples(samples); err != nil {
		return 0, err
	}
	w.pending = append(w.pending[:0], data[full:]...)
	return len(p), nil
}

// Samples returns the amount of samples written so far.
func (w *Writer) Samples() uint64 {
	return w.samples
}

func (w *Writer) Close() error {
	if w.isClosed {
		return nil
	}
	w.isClosed = true

	var mErr *multierror.Error
	if len(w.pending) != 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("%d trailing bytes do not form a full sample", len(w.pending)))
	}
	if err := w.encoder.Close(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("unable to finalize the WAV header: %w", err))
	}
	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the file: %w", err))
		}
	}
	return mErr.ErrorOrNil()
}
