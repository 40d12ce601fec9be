package portaudio

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/hashicorp/go-multierror"
)

const (
	DefaultDeviceIndex = -1
)

type InputDevice struct {
	Index int
	Name  string
}

// ListInputDevices returns the devices capable of capturing audio; their
// indexes are the ones accepted by NewRecorderPCM.
func ListInputDevices(ctx context.Context) (_ret []InputDevice, _err error) {
	logger.Tracef(ctx, "ListInputDevices")
	defer func() { logger.Tracef(ctx, "/ListInputDevices: %d %v", len(_ret), _err) }()

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("unable to initialize PortAudio: %w", err)
	}
	defer func() {
		if err := portaudio.Terminate(); err != nil {
			_err = multierror.Append(_err, fmt.Errorf("unable to terminate PortAudio: %w", err)).ErrorOrNil()
		}
	}()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("unable to list the devices: %w", err)
	}
	var result []InputDevice
	for idx, device := range devices {
		if device.MaxInputChannels <= 0 {
			continue
		}
		result = append(result, InputDevice{Index: idx, Name: device.Name})
	}
	return result, nil
}

func inputDevice(index int) (*portaudio.DeviceInfo, error) {
	if index == DefaultDeviceIndex {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("unable to list the devices: %w", err)
	}
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("invalid device index %d: there are %d devices", index, len(devices))
	}
	device := devices[index]
	if device.MaxInputChannels <= 0 {
		return nil, fmt.Errorf("device %d ('%s') cannot capture audio", index, device.Name)
	}
	return device, nil
}
