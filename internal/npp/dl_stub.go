//go:build !linux

package npp

import "fmt"

// systemLoader stub for platforms without the CUDA toolkit libraries.
type systemLoader struct{}

func (systemLoader) Open(name string) (uintptr, error) {
	return 0, fmt.Errorf("NPP libraries are only supported on Linux")
}

func (systemLoader) Lookup(handle uintptr, symbol string) (uintptr, error) {
	return 0, fmt.Errorf("NPP libraries are only supported on Linux")
}
