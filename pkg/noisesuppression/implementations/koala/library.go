package koala

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/koala/pkg/audio"
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
)

// Library is a loaded engine library. It refuses to close while engines
// created from it are open.
type Library struct {
	locker   sync.Mutex
	api      api
	isClosed bool
	engines  int
}

func OpenLibrary(
	ctx context.Context,
	path string,
) (_ret *Library, _err error) {
	logger.Debugf(ctx, "OpenLibrary: '%s'", path)
	defer func() { logger.Debugf(ctx, "/OpenLibrary: '%s': %v", path, _err) }()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not find the engine library at '%s': %w", path, noisesuppression.ErrIO)
		}
		return nil, fmt.Errorf("unable to access the engine library at '%s': %w: %w", path, noisesuppression.ErrIO, err)
	}

	a, err := openDynamicAPI(path)
	if err != nil {
		return nil, err
	}
	return newLibrary(a), nil
}

func newLibrary(a api) *Library {
	return &Library{
		api: a,
	}
}

func (l *Library) SampleRate() audio.SampleRate {
	return audio.SampleRate(l.api.SampleRate())
}

func (l *Library) FrameLength() uint {
	return uint(l.api.FrameLength())
}

func (l *Library) Version() string {
	return l.api.Version()
}

func (l *Library) ListHardwareDevices(ctx context.Context) ([]string, error) {
	l.locker.Lock()
	defer l.locker.Unlock()
	if l.isClosed {
		return nil, fmt.Errorf("the library is already closed: %w", noisesuppression.ErrInvalidState)
	}

	devices, status := l.api.ListHardwareDevices()
	if err := l.statusError(ctx, "pv_koala_list_hardware_devices", status); err != nil {
		return nil, err
	}
	return devices, nil
}

// statusError converts a failed status into an error carrying the message
// stack the engine recorded for this failure.
func (l *Library) statusError(
	ctx context.Context,
	op string,
	status noisesuppression.Status,
) error {
	if status == noisesuppression.StatusSuccess {
		return nil
	}
	logger.Debugf(ctx, "%s failed with '%s'", op, l.api.StatusToString(status))

	messageStack, stackStatus := l.api.ErrorStack()
	if stackStatus != noisesuppression.StatusSuccess {
		logger.Warnf(ctx, "unable to get the error stack of %s: %s", op, stackStatus)
	}
	return noisesuppression.NewError(op, status, messageStack)
}

func (l *Library) Close() error {
	l.locker.Lock()
	defer l.locker.Unlock()
	if l.isClosed {
		return nil
	}
	if l.engines > 0 {
		return fmt.Errorf("%d engine(s) created from the library are still open: %w", l.engines, noisesuppression.ErrInvalidState)
	}
	l.isClosed = true
	return l.api.Close()
}
