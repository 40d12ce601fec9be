package platform

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const raspberryPi4CPUInfo = `processor	: 0
BogoMIPS	: 108.00
Features	: fp asimd evtstrm crc32 cpuid
CPU implementer	: 0x41
CPU architecture: 8
CPU variant	: 0x0
CPU part	: 0xD08
CPU revision	: 3

processor	: 1
CPU part	: 0xd03
`

func cpuInfo(s string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	}
}

func TestParseCPUPart(t *testing.T) {
	part, err := ParseCPUPart(strings.NewReader(raspberryPi4CPUInfo))
	require.NoError(t, err)
	require.Equal(t, "0xd08", part)

	_, err = ParseCPUPart(strings.NewReader("processor : 0\nmodel name : Intel\n"))
	require.Error(t, err)
}

func TestLibraryPath(t *testing.T) {
	for _, tc := range []struct {
		platform Platform
		expected string
	}{
		{Platform{OS: "darwin", Arch: "amd64"}, "lib/mac/x86_64/libpv_koala.dylib"},
		{Platform{OS: "darwin", Arch: "arm64"}, "lib/mac/arm64/libpv_koala.dylib"},
		{Platform{OS: "linux", Arch: "amd64"}, "lib/linux/x86_64/libpv_koala.so"},
		{Platform{OS: "windows", Arch: "amd64"}, "lib/windows/amd64/libpv_koala.dll"},
		{Platform{OS: "linux", Arch: "arm64", CPUInfo: cpuInfo(raspberryPi4CPUInfo)}, "lib/raspberry-pi/cortex-a72-aarch64/libpv_koala.so"},
		{Platform{OS: "linux", Arch: "arm", CPUInfo: cpuInfo("CPU part : 0xd03")}, "lib/raspberry-pi/cortex-a53/libpv_koala.so"},
		{Platform{OS: "linux", Arch: "arm64", CPUInfo: cpuInfo("CPU part : 0xd07")}, "lib/jetson/cortex-a57-aarch64/libpv_koala.so"},
	} {
		t.Run(fmt.Sprintf("%s_%s_%s", tc.platform.OS, tc.platform.Arch, tc.expected), func(t *testing.T) {
			path, err := tc.platform.LibraryPath("/opt/koala")
			require.NoError(t, err)
			require.Equal(t, filepath.Join("/opt/koala", tc.expected), path)
		})
	}
}

func TestLibraryPathUnsupported(t *testing.T) {
	for _, p := range []Platform{
		{OS: "plan9", Arch: "amd64"},
		{OS: "darwin", Arch: "386"},
		{OS: "linux", Arch: "riscv64"},
		{OS: "linux", Arch: "arm", CPUInfo: cpuInfo("CPU part : 0xd07")},
		{OS: "linux", Arch: "arm64", CPUInfo: cpuInfo("CPU part : 0xc0f")},
	} {
		_, err := p.LibraryPath("")
		require.ErrorIs(t, err, ErrUnsupportedPlatform, "%#+v", p)
	}

	_, err := Platform{
		OS:   "linux",
		Arch: "arm64",
		CPUInfo: func() (io.ReadCloser, error) {
			return nil, fmt.Errorf("permission denied")
		},
	}.LibraryPath("")
	require.ErrorContains(t, err, "permission denied")
}

func TestModelPath(t *testing.T) {
	require.Equal(t, filepath.Join("/opt/koala", "lib/common/koala_params.pv"), ModelPath("/opt/koala"))
	require.Equal(t, ModelPath("x"), DefaultModelPath("x"))
}
