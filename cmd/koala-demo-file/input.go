package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/audio/wav"
)

const wavHeaderSize = 44

// input is either decoded into memory (Ogg Vorbis, converted to the engine
// format) or streamed from disk (WAV, must already be in the engine format).
type input struct {
	path       string
	sampleRate audio.SampleRate

	samples []int16
	pcm     io.Reader
	file    *os.File

	// total is exact for decoded inputs and estimated from the file size for WAV
	total uint64
}

func openInput(path string, sampleRate audio.SampleRate) (*input, error) {
	in := &input{path: path, sampleRate: sampleRate}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ogg", ".oga":
		samples, err := readVorbis(path, sampleRate)
		if err != nil {
			return nil, err
		}
		in.samples = samples
		in.total = uint64(len(samples))
		return in, nil
	}

	f, r, err := openWAV(path, sampleRate)
	if err != nil {
		return nil, err
	}
	in.file, in.pcm = f, r.PCM()
	if stat, err := f.Stat(); err == nil && stat.Size() > wavHeaderSize {
		in.total = uint64(stat.Size()-wavHeaderSize) / 2
	}
	return in, nil
}

// head returns up to n first samples of the input.
func (in *input) head(n int) ([]int16, error) {
	if in.samples != nil {
		return in.samples[:min(n, len(in.samples))], nil
	}

	f, r, err := openWAV(in.path, in.sampleRate)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples := make([]int16, n)
	filled := 0
	for filled < n {
		count, err := r.ReadSamples(samples[filled:])
		filled += count
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return samples[:filled], nil
}

func (in *input) Close() error {
	if in.file == nil {
		return nil
	}
	return in.file.Close()
}

func openWAV(path string, sampleRate audio.SampleRate) (*os.File, *wav.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	r, err := wav.NewReader(f)
	if err == nil {
		err = r.Require(sampleRate)
	}
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("unable to use '%s' as the input: %w", path, err)
	}
	return f, r, nil
}

func readVorbis(path string, sampleRate audio.SampleRate) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer f.Close()

	pcm, err := audio.DecodeVorbis(f, sampleRate, 1, audio.PCMFormatS16LE)
	if err != nil {
		return nil, fmt.Errorf("unable to decode '%s': %w", path, err)
	}
	samples := make([]int16, len(pcm)/2)
	if err := audio.S16LEFromBytes(samples, pcm); err != nil {
		return nil, err
	}
	return samples, nil
}
