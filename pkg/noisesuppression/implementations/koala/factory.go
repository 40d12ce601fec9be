package koala

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xaionaro-go/koala/pkg/noisesuppression/implementations/koala/platform"
)

type Options struct {
	AccessKey string

	// ModelPath and LibraryPath default to the files shipped under Root.
	ModelPath   string
	LibraryPath string

	// Device selects the inference device, for example "best", "cpu" or
	// "gpu:0". It is passed to the engine as is.
	Device string

	// Root defaults to the directory of the executable.
	Root string
}

// WithDefaults fills the empty paths with the ones shipped under Root.
func (opts Options) WithDefaults() (Options, error) {
	if opts.Root == "" && (opts.ModelPath == "" || opts.LibraryPath == "") {
		executable, err := os.Executable()
		if err != nil {
			return opts, fmt.Errorf("unable to determine the path of the executable: %w", err)
		}
		opts.Root = filepath.Dir(executable)
	}
	if opts.ModelPath == "" {
		opts.ModelPath = platform.DefaultModelPath(opts.Root)
	}
	if opts.LibraryPath == "" {
		libraryPath, err := platform.DefaultLibraryPath(opts.Root)
		if err != nil {
			return opts, fmt.Errorf("unable to determine the default library path: %w", err)
		}
		opts.LibraryPath = libraryPath
	}
	if opts.Device == "" {
		opts.Device = DefaultDevice
	}
	return opts, nil
}

// Create opens the library and creates an engine instance that owns it.
func Create(
	ctx context.Context,
	opts Options,
) (*Koala, error) {
	opts, err := opts.WithDefaults()
	if err != nil {
		return nil, err
	}

	library, err := OpenLibrary(ctx, opts.LibraryPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open the library: %w", err)
	}

	k, err := New(ctx, library, opts.AccessKey, opts.ModelPath, opts.Device)
	if err != nil {
		if closeErr := library.Close(); closeErr != nil {
			return nil, fmt.Errorf("unable to create the engine: %w (and unable to close the library: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("unable to create the engine: %w", err)
	}
	k.ownsLibrary = true
	return k, nil
}

// ListHardwareDevices opens the library only to enumerate the inference devices.
func ListHardwareDevices(
	ctx context.Context,
	libraryPath string,
) (_ []string, _err error) {
	library, err := OpenLibrary(ctx, libraryPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open the library: %w", err)
	}
	defer func() {
		if err := library.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("unable to close the library: %w", err)
		}
	}()
	return library.ListHardwareDevices(ctx)
}
