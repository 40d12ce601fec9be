//go:build windows

package koala

import (
	"golang.org/x/sys/windows"
)

func dlopen(path string) (uintptr, error) {
	library, err := windows.LoadLibrary(path)
	return uintptr(library), err
}

func dlsym(library uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(library), name)
}

func dlclose(library uintptr) error {
	return windows.FreeLibrary(windows.Handle(library))
}
