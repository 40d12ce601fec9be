package koala

import (
	"fmt"

	"github.com/ebitengine/purego"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
)

type dynamicAPI struct {
	library uintptr

	pvKoalaInit                func(accessKey, modelPath, device string, object *uintptr) int32
	pvSampleRate               func() int32
	pvKoalaFrameLength         func() int32
	pvKoalaDelaySample         func(object uintptr, delaySample *int32) int32
	pvKoalaProcess             func(object uintptr, pcm *int16, enhancedPCM *int16) int32
	pvKoalaReset               func(object uintptr) int32
	pvKoalaDelete              func(object uintptr)
	pvKoalaVersion             func() string
	pvKoalaListHardwareDevices func(devices *uintptr, numDevices *int32) int32
	pvKoalaFreeHardwareDevices func(devices uintptr, numDevices int32)
	pvStatusToString           func(status int32) string
	pvGetErrorStack            func(messageStack *uintptr, messageStackDepth *int32) int32
	pvFreeErrorStack           func(messageStack uintptr)
}

var _ api = (*dynamicAPI)(nil)

func openDynamicAPI(path string) (*dynamicAPI, error) {
	library, err := dlopen(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load the library '%s': %w", path, err)
	}

	a := &dynamicAPI{library: library}
	if err := a.bind(); err != nil {
		if closeErr := dlclose(library); closeErr != nil {
			err = multierror.Append(err, fmt.Errorf("unable to unload the library: %w", closeErr))
		}
		return nil, err
	}
	return a, nil
}

func (a *dynamicAPI) bind() error {
	var mErr *multierror.Error
	for _, sym := range []struct {
		Name string
		Func any
	}{
		{"pv_koala_init", &a.pvKoalaInit},
		{"pv_sample_rate", &a.pvSampleRate},
		{"pv_koala_frame_length", &a.pvKoalaFrameLength},
		{"pv_koala_delay_sample", &a.pvKoalaDelaySample},
		{"pv_koala_process", &a.pvKoalaProcess},
		{"pv_koala_reset", &a.pvKoalaReset},
		{"pv_koala_delete", &a.pvKoalaDelete},
		{"pv_koala_version", &a.pvKoalaVersion},
		{"pv_koala_list_hardware_devices", &a.pvKoalaListHardwareDevices},
		{"pv_koala_free_hardware_devices", &a.pvKoalaFreeHardwareDevices},
		{"pv_status_to_string", &a.pvStatusToString},
		{"pv_get_error_stack", &a.pvGetErrorStack},
		{"pv_free_error_stack", &a.pvFreeErrorStack},
	} {
		addr, err := dlsym(a.library, sym.Name)
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to find symbol '%s': %w", sym.Name, err))
			continue
		}
		purego.RegisterFunc(sym.Func, addr)
	}
	return mErr.ErrorOrNil()
}

func (a *dynamicAPI) Init(accessKey, modelPath, device string) (handle, noisesuppression.Status) {
	var object uintptr
	status := a.pvKoalaInit(accessKey, modelPath, device, &object)
	return handle(object), noisesuppression.Status(status)
}

func (a *dynamicAPI) SampleRate() int32 {
	return a.pvSampleRate()
}

func (a *dynamicAPI) FrameLength() int32 {
	return a.pvKoalaFrameLength()
}

func (a *dynamicAPI) DelaySample(h handle) (int32, noisesuppression.Status) {
	var delaySample int32
	status := a.pvKoalaDelaySample(uintptr(h), &delaySample)
	return delaySample, noisesuppression.Status(status)
}

func (a *dynamicAPI) Process(h handle, pcm []int16, enhanced []int16) noisesuppression.Status {
	return noisesuppression.Status(a.pvKoalaProcess(uintptr(h), &pcm[0], &enhanced[0]))
}

func (a *dynamicAPI) Reset(h handle) noisesuppression.Status {
	return noisesuppression.Status(a.pvKoalaReset(uintptr(h)))
}

func (a *dynamicAPI) Delete(h handle) {
	a.pvKoalaDelete(uintptr(h))
}

func (a *dynamicAPI) Version() string {
	return a.pvKoalaVersion()
}

func (a *dynamicAPI) ListHardwareDevices() ([]string, noisesuppression.Status) {
	var (
		devices    uintptr
		numDevices int32
	)
	status := noisesuppression.Status(a.pvKoalaListHardwareDevices(&devices, &numDevices))
	if status != noisesuppression.StatusSuccess {
		return nil, status
	}
	defer a.pvKoalaFreeHardwareDevices(devices, numDevices)
	return goStrings(devices, numDevices), status
}

func (a *dynamicAPI) StatusToString(status noisesuppression.Status) string {
	return a.pvStatusToString(int32(status))
}

func (a *dynamicAPI) ErrorStack() ([]string, noisesuppression.Status) {
	var (
		messageStack uintptr
		depth        int32
	)
	status := noisesuppression.Status(a.pvGetErrorStack(&messageStack, &depth))
	if status != noisesuppression.StatusSuccess {
		return nil, status
	}
	defer a.pvFreeErrorStack(messageStack)
	return goStrings(messageStack, depth), status
}

func (a *dynamicAPI) Close() error {
	return dlclose(a.library)
}
