package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/xaionaro-go/koala/pkg/audio/types"
)

// oto allows only one context per process, so every player shares it
// and everything played is converted to this format.
const (
	SampleRate = types.SampleRate(48000)
	Channels   = types.Channel(2)
	Format     = types.PCMFormatFloat32LE
	BufferSize = 100 * time.Millisecond
)

var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
)

func getOtoContext() (*oto.Context, error) {
	otoContextOnce.Do(func() {
		ctx, readyCh, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   int(SampleRate),
			ChannelCount: int(Channels),
			Format:       oto.FormatFloat32LE,
			BufferSize:   BufferSize,
		})
		if err != nil {
			otoContextErr = fmt.Errorf("unable to initialize an oto context: %w", err)
			return
		}
		<-readyCh
		otoContext = ctx
	})
	return otoContext, otoContextErr
}
