package delaycheck

import (
	"fmt"

	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
	"github.com/xaionaro-go/koala/pkg/syncer"
	"github.com/xaionaro-go/koala/pkg/syncer/implementations/fft"
	"github.com/xaionaro-go/koala/pkg/syncer/implementations/gccphat"
)

const (
	SyncerGCCPHAT = "gccphat"
	SyncerFFT     = "fft"

	DefaultSyncer = SyncerGCCPHAT
)

// Syncers lists the names accepted by NewSyncer.
func Syncers() []string {
	return []string{SyncerGCCPHAT, SyncerFFT}
}

// NewSyncer returns the named shift estimator for mono S16 audio at sampleRate.
func NewSyncer(name string, sampleRate audio.SampleRate) (syncer.Syncer, error) {
	encoding := audio.EncodingPCM{
		PCMFormat:  audio.PCMFormatS16LE,
		SampleRate: sampleRate,
	}
	switch name {
	case SyncerGCCPHAT:
		return gccphat.NewSyncer(encoding, 1)
	case SyncerFFT:
		return fft.NewSyncer(encoding, 1), nil
	default:
		return nil, fmt.Errorf("unknown syncer '%s', expected one of %v: %w", name, Syncers(), noisesuppression.ErrInvalidArgument)
	}
}
