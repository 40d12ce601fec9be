package platform

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var ErrUnsupportedPlatform = errors.New("unsupported platform")

const (
	libraryName = "libpv_koala"
	modelPath   = "lib/common/koala_params.pv"
	cpuInfoPath = "/proc/cpuinfo"
)

var (
	raspberryPiMachines = map[string]struct{}{
		"cortex-a53":         {},
		"cortex-a72":         {},
		"cortex-a53-aarch64": {},
		"cortex-a72-aarch64": {},
	}
	jetsonMachines = map[string]struct{}{
		"cortex-a57-aarch64": {},
	}
	cpuParts = map[string]string{
		"0xd03": "cortex-a53",
		"0xd07": "cortex-a57",
		"0xd08": "cortex-a72",
	}
)

// Platform identifies the build of the engine library to load.
type Platform struct {
	OS   string
	Arch string

	// CPUInfo is consulted only on ARM Linux.
	CPUInfo func() (io.ReadCloser, error)
}

func Current() Platform {
	return Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		CPUInfo: func() (io.ReadCloser, error) {
			return os.Open(cpuInfoPath)
		},
	}
}

// LibraryPath returns the path of the engine library relative to root.
func (p Platform) LibraryPath(root string) (string, error) {
	switch p.OS {
	case "darwin":
		switch p.Arch {
		case "amd64":
			return filepath.Join(root, "lib/mac/x86_64", libraryName+".dylib"), nil
		case "arm64":
			return filepath.Join(root, "lib/mac/arm64", libraryName+".dylib"), nil
		}
	case "linux":
		machine, err := p.linuxMachine()
		if err != nil {
			return "", err
		}
		if machine == "x86_64" {
			return filepath.Join(root, "lib/linux/x86_64", libraryName+".so"), nil
		}
		if _, ok := jetsonMachines[machine]; ok {
			return filepath.Join(root, "lib/jetson", machine, libraryName+".so"), nil
		}
		if _, ok := raspberryPiMachines[machine]; ok {
			return filepath.Join(root, "lib/raspberry-pi", machine, libraryName+".so"), nil
		}
		return "", fmt.Errorf("no library for machine '%s': %w", machine, ErrUnsupportedPlatform)
	case "windows":
		return filepath.Join(root, "lib/windows/amd64", libraryName+".dll"), nil
	}
	return "", fmt.Errorf("%s/%s: %w", p.OS, p.Arch, ErrUnsupportedPlatform)
}

func (p Platform) linuxMachine() (string, error) {
	var archSuffix string
	switch p.Arch {
	case "amd64":
		return "x86_64", nil
	case "arm64":
		archSuffix = "-aarch64"
	case "arm":
	default:
		return "", fmt.Errorf("CPU architecture '%s': %w", p.Arch, ErrUnsupportedPlatform)
	}

	if p.CPUInfo == nil {
		return "", fmt.Errorf("no source of CPU information")
	}
	r, err := p.CPUInfo()
	if err != nil {
		return "", fmt.Errorf("unable to open the CPU information: %w", err)
	}
	defer r.Close()

	cpuPart, err := ParseCPUPart(r)
	if err != nil {
		return "", err
	}
	machine, ok := cpuParts[cpuPart]
	if !ok {
		return "", fmt.Errorf("CPU part '%s': %w", cpuPart, ErrUnsupportedPlatform)
	}
	return machine + archSuffix, nil
}

// ParseCPUPart returns the lower-cased value of the first "CPU part" line
// of a /proc/cpuinfo listing.
func ParseCPUPart(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "CPU part") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		return strings.ToLower(fields[len(fields)-1]), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("unable to read the CPU information: %w", err)
	}
	return "", fmt.Errorf("unable to identify the CPU: no 'CPU part' line")
}

// ModelPath returns the path of the default model relative to root.
func ModelPath(root string) string {
	return filepath.Join(root, modelPath)
}

func DefaultLibraryPath(root string) (string, error) {
	return Current().LibraryPath(root)
}

func DefaultModelPath(root string) string {
	return ModelPath(root)
}
