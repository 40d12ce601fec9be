package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/koala/pkg/audio/types"
)

type pinger = types.Backend

type lastSuccessful[F any] struct {
	locker  sync.Mutex
	factory F
	isSet   bool
}

func (l *lastSuccessful[F]) get() (F, bool) {
	l.locker.Lock()
	defer l.locker.Unlock()
	return l.factory, l.isSet
}

func (l *lastSuccessful[F]) set(factory F) {
	l.locker.Lock()
	defer l.locker.Unlock()
	l.factory, l.isSet = factory, true
}

// autoSelect returns the first backend (in the order of the factories) that
// could be initialized and pinged. The last successful factory is tried first.
func autoSelect[T pinger, F any](
	ctx context.Context,
	last *lastSuccessful[F],
	factories []F,
	newFn func(F) (T, error),
) (T, error) {
	if factory, ok := last.get(); ok {
		if backend, err := tryFactory(ctx, factory, newFn); err == nil {
			return backend, nil
		}
	}

	var mErr *multierror.Error
	for _, factory := range factories {
		backend, err := tryFactory(ctx, factory, newFn)
		if err != nil {
			mErr = multierror.Append(mErr, err)
			continue
		}
		last.set(factory)
		return backend, nil
	}

	var zeroValue T
	if err := mErr.ErrorOrNil(); err != nil {
		return zeroValue, err
	}
	return zeroValue, fmt.Errorf("no backends are registered")
}

func tryFactory[T pinger, F any](
	ctx context.Context,
	factory F,
	newFn func(F) (T, error),
) (T, error) {
	var zeroValue T
	backend, err := newFn(factory)
	logger.Debugf(ctx, "initializing the %v backend: %v", factory, err)
	if err != nil {
		return zeroValue, fmt.Errorf("unable to initialize the %v backend: %w", factory, err)
	}

	err = backend.Ping(ctx)
	logger.Debugf(ctx, "pinging %T result is %v", backend, err)
	if err != nil {
		if closeErr := backend.Close(); closeErr != nil {
			logger.Debugf(ctx, "unable to close %T: %v", backend, closeErr)
		}
		return zeroValue, fmt.Errorf("unable to ping %T: %w", backend, err)
	}
	return backend, nil
}
