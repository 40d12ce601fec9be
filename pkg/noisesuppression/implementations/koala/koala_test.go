package koala

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
)

type fakeAPI struct {
	locker sync.Mutex

	frameLength int32
	delay       int32

	initStatus    noisesuppression.Status
	delayStatus   noisesuppression.Status
	processStatus noisesuppression.Status
	resetStatus   noisesuppression.Status
	devices       []string
	errorStack    []string

	lastDevice string
	engines    map[handle]*noisesuppression.Dummy
	nextHandle handle
	deleted    []handle
	isClosed   bool
}

var _ api = (*fakeAPI)(nil)

func newFakeAPI(frameLength, delay int32) *fakeAPI {
	return &fakeAPI{
		frameLength: frameLength,
		delay:       delay,
		devices:     []string{"cpu", "gpu:0"},
		engines:     map[handle]*noisesuppression.Dummy{},
		nextHandle:  0x1000,
	}
}

func (a *fakeAPI) Init(accessKey, modelPath, device string) (handle, noisesuppression.Status) {
	a.locker.Lock()
	defer a.locker.Unlock()
	a.lastDevice = device
	if a.initStatus != noisesuppression.StatusSuccess {
		return 0, a.initStatus
	}
	a.nextHandle++
	a.engines[a.nextHandle] = noisesuppression.NewDummy(16000, uint(a.frameLength), uint(a.delay))
	return a.nextHandle, noisesuppression.StatusSuccess
}

func (a *fakeAPI) SampleRate() int32  { return 16000 }
func (a *fakeAPI) FrameLength() int32 { return a.frameLength }
func (a *fakeAPI) Version() string    { return "2.0.0" }

func (a *fakeAPI) DelaySample(h handle) (int32, noisesuppression.Status) {
	return a.delay, a.delayStatus
}

func (a *fakeAPI) Process(h handle, pcm []int16, enhanced []int16) noisesuppression.Status {
	if a.processStatus != noisesuppression.StatusSuccess {
		return a.processStatus
	}
	if err := a.engines[h].Process(context.Background(), pcm, enhanced); err != nil {
		return noisesuppression.StatusInvalidArgument
	}
	return noisesuppression.StatusSuccess
}

func (a *fakeAPI) Reset(h handle) noisesuppression.Status {
	if a.resetStatus != noisesuppression.StatusSuccess {
		return a.resetStatus
	}
	if err := a.engines[h].Reset(context.Background()); err != nil {
		return noisesuppression.StatusInvalidState
	}
	return noisesuppression.StatusSuccess
}

func (a *fakeAPI) Delete(h handle) {
	a.locker.Lock()
	defer a.locker.Unlock()
	a.deleted = append(a.deleted, h)
	delete(a.engines, h)
}

func (a *fakeAPI) ListHardwareDevices() ([]string, noisesuppression.Status) {
	if len(a.devices) == 0 {
		return nil, noisesuppression.StatusRuntimeError
	}
	return a.devices, noisesuppression.StatusSuccess
}

func (a *fakeAPI) StatusToString(status noisesuppression.Status) string {
	return status.String()
}

func (a *fakeAPI) ErrorStack() ([]string, noisesuppression.Status) {
	stack := a.errorStack
	a.errorStack = nil
	return stack, noisesuppression.StatusSuccess
}

func (a *fakeAPI) Close() error {
	a.isClosed = true
	return nil
}

func modelFile(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "koala_params.pv")
	require.NoError(t, os.WriteFile(path, []byte("model"), 0o644))
	return path
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	a := newFakeAPI(256, 128)
	library := newLibrary(a)

	k, err := New(ctx, library, "secret", modelFile(t), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultDevice, a.lastDevice)
	assert.EqualValues(t, 256, k.FrameLength())
	assert.EqualValues(t, 128, k.DelaySample())
	assert.EqualValues(t, 16000, k.SampleRate())
	assert.Equal(t, "2.0.0", k.Version())

	devices, err := k.ListHardwareDevices(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"cpu", "gpu:0"}, devices)

	require.NoError(t, k.Close())
	require.NoError(t, k.Close())
	require.Len(t, a.deleted, 1)
	require.False(t, a.isClosed)

	require.ErrorIs(t, k.Process(ctx, make([]int16, 256), make([]int16, 256)), noisesuppression.ErrInvalidState)
	require.ErrorIs(t, k.Reset(ctx), noisesuppression.ErrInvalidState)
}

func TestNewInvalid(t *testing.T) {
	ctx := context.Background()
	library := newLibrary(newFakeAPI(256, 128))

	_, err := New(ctx, library, "", modelFile(t), "cpu")
	require.ErrorIs(t, err, noisesuppression.ErrInvalidArgument)

	_, err = New(ctx, library, "secret", filepath.Join(t.TempDir(), "missing.pv"), "cpu")
	require.ErrorIs(t, err, noisesuppression.ErrIO)

	require.NoError(t, library.Close())
	_, err = New(ctx, library, "secret", modelFile(t), "cpu")
	require.ErrorIs(t, err, noisesuppression.ErrInvalidState)
}

func TestNewEngineFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("init", func(t *testing.T) {
		a := newFakeAPI(256, 128)
		a.initStatus = noisesuppression.StatusActivationRefused
		a.errorStack = []string{"access key rejected"}

		_, err := New(ctx, newLibrary(a), "secret", modelFile(t), "cpu")
		require.ErrorIs(t, err, noisesuppression.ErrActivationRefused)

		var engineErr *noisesuppression.Error
		require.ErrorAs(t, err, &engineErr)
		require.Equal(t, "pv_koala_init", engineErr.Op)
		require.Equal(t, []string{"access key rejected"}, engineErr.MessageStack)
		require.Empty(t, a.deleted)
	})

	t.Run("delay", func(t *testing.T) {
		a := newFakeAPI(256, 128)
		a.delayStatus = noisesuppression.StatusRuntimeError

		_, err := New(ctx, newLibrary(a), "secret", modelFile(t), "cpu")
		require.ErrorIs(t, err, noisesuppression.ErrRuntime)
		require.Len(t, a.deleted, 1)
	})
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	a := newFakeAPI(4, 2)
	k, err := New(ctx, newLibrary(a), "secret", modelFile(t), "cpu")
	require.NoError(t, err)
	defer k.Close()

	output := make([]int16, 4)
	require.NoError(t, k.Process(ctx, []int16{1, 2, 3, 4}, output))
	require.Equal(t, []int16{0, 0, 1, 2}, output)

	for _, n := range []int{0, 3, 5} {
		require.ErrorIs(t, k.Process(ctx, make([]int16, n), make([]int16, n)), noisesuppression.ErrInvalidArgument)
	}

	a.processStatus = noisesuppression.StatusActivationLimitReached
	err = k.Process(ctx, []int16{1, 2, 3, 4}, output)
	require.ErrorIs(t, err, noisesuppression.ErrActivationLimitReached)

	a.processStatus = noisesuppression.StatusSuccess
	a.resetStatus = noisesuppression.Status(99)
	require.ErrorIs(t, k.Reset(ctx), noisesuppression.ErrInvalidState)
}

func TestProcessComplete(t *testing.T) {
	ctx := context.Background()
	k, err := New(ctx, newLibrary(newFakeAPI(512, 300)), "secret", modelFile(t), "cpu")
	require.NoError(t, err)
	defer k.Close()

	signal := make([]int16, 16000)
	for idx := range signal {
		signal[idx] = int16(idx % 1000)
	}
	result, err := noisesuppression.NewStreamingBlockTransformer(k).ProcessComplete(ctx, signal)
	require.NoError(t, err)
	require.Equal(t, signal, result)
}

func TestCloseOwnedLibrary(t *testing.T) {
	ctx := context.Background()
	a := newFakeAPI(256, 0)
	k, err := New(ctx, newLibrary(a), "secret", modelFile(t), "cpu")
	require.NoError(t, err)
	k.ownsLibrary = true

	require.NoError(t, k.Close())
	require.True(t, a.isClosed)
	require.Len(t, a.deleted, 1)
}

func TestLibraryCloseWithOpenEngine(t *testing.T) {
	ctx := context.Background()
	a := newFakeAPI(256, 0)
	lib := newLibrary(a)
	k, err := New(ctx, lib, "secret", modelFile(t), "cpu")
	require.NoError(t, err)

	require.ErrorIs(t, lib.Close(), noisesuppression.ErrInvalidState)
	require.False(t, a.isClosed)
	require.NoError(t, k.Process(ctx, make([]int16, 256), make([]int16, 256)))
	require.NoError(t, k.Reset(ctx))

	require.NoError(t, k.Close())
	require.Len(t, a.deleted, 1)
	require.NoError(t, lib.Close())
	require.True(t, a.isClosed)

	_, err = New(ctx, lib, "secret", modelFile(t), "cpu")
	require.ErrorIs(t, err, noisesuppression.ErrInvalidState)
	require.ErrorIs(t, k.Process(ctx, make([]int16, 256), make([]int16, 256)), noisesuppression.ErrInvalidState)
}

func TestListHardwareDevicesFailure(t *testing.T) {
	a := newFakeAPI(256, 0)
	a.devices = nil
	a.errorStack = []string{"no devices"}
	_, err := newLibrary(a).ListHardwareDevices(context.Background())
	require.ErrorIs(t, err, noisesuppression.ErrRuntime)
	require.ErrorContains(t, err, "no devices")
}

func TestOpenLibraryMissing(t *testing.T) {
	_, err := OpenLibrary(context.Background(), filepath.Join(t.TempDir(), "libpv_koala.so"))
	require.ErrorIs(t, err, noisesuppression.ErrIO)

	_, err = Create(context.Background(), Options{
		AccessKey:   "secret",
		LibraryPath: filepath.Join(t.TempDir(), "libpv_koala.so"),
		ModelPath:   modelFile(t),
	})
	require.ErrorIs(t, err, noisesuppression.ErrIO)
}

func TestOptionsWithDefaults(t *testing.T) {
	opts, err := Options{
		LibraryPath: "/opt/koala/libpv_koala.so",
		Root:        "/opt/koala",
	}.WithDefaults()
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/opt/koala", "lib/common/koala_params.pv"), opts.ModelPath)
	require.Equal(t, "/opt/koala/libpv_koala.so", opts.LibraryPath)
	require.Equal(t, DefaultDevice, opts.Device)
}

func TestGoStrings(t *testing.T) {
	words := [][]byte{[]byte("cpu\x00"), []byte("gpu:0\x00"), []byte("\x00")}
	ptrs := make([]uintptr, len(words))
	for idx, word := range words {
		ptrs[idx] = uintptr(unsafe.Pointer(&word[0]))
	}

	result := goStrings(uintptr(unsafe.Pointer(&ptrs[0])), int32(len(ptrs)))
	require.Equal(t, []string{"cpu", "gpu:0", ""}, result)
	require.Nil(t, goStrings(0, 3))
	require.Nil(t, goStrings(uintptr(unsafe.Pointer(&ptrs[0])), 0))
	require.Equal(t, "", goString(0))
	runtime.KeepAlive(words)
}
