package main

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/koala/pkg/audio/backends/portaudio"
	"github.com/xaionaro-go/koala/pkg/audio/backends/pulseaudio"
)

// printAudioDevices lists the PortAudio capture devices (their indexes are
// the ones --audio-device-index accepts), or the PulseAudio sources if
// PortAudio is unavailable.
func printAudioDevices(ctx context.Context) error {
	devices, err := portaudio.ListInputDevices(ctx)
	if err == nil {
		for _, device := range devices {
			fmt.Printf("Device #%d: %s\n", device.Index, device.Name)
		}
		return nil
	}
	logger.Debugf(ctx, "unable to list the PortAudio devices: %v", err)

	recorder, pulseErr := pulseaudio.NewRecorderPCM()
	if pulseErr != nil {
		return fmt.Errorf("unable to list the audio devices: %w (PulseAudio: %v)", err, pulseErr)
	}
	defer recorder.Close()
	sources, pulseErr := recorder.ListSources(ctx)
	if pulseErr != nil {
		return fmt.Errorf("unable to list the audio devices: %w (PulseAudio: %v)", err, pulseErr)
	}
	for _, source := range sources {
		fmt.Printf("PulseAudio source: %s\n", source)
	}
	return nil
}
