package koala

import (
	"unsafe"
)

func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	ptr := unsafe.Pointer(p)
	length := 0
	for *(*byte)(unsafe.Add(ptr, length)) != 0 {
		length++
	}
	return string(unsafe.Slice((*byte)(ptr), length))
}

// goStrings copies a C array of count C strings.
func goStrings(array uintptr, count int32) []string {
	if array == 0 || count <= 0 {
		return nil
	}
	ptrs := unsafe.Slice((*uintptr)(unsafe.Pointer(array)), int(count))
	result := make([]string, 0, len(ptrs))
	for _, p := range ptrs {
		result = append(result, goString(p))
	}
	return result
}
