//go:build linux

package npp

import (
	"github.com/ebitengine/purego"
)

// systemLoader resolves libraries and symbols through the system's dynamic
// linker.
type systemLoader struct{}

func (systemLoader) Open(name string) (uintptr, error) {
	handle, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return 0, err
	}
	return handle, nil
}

func (systemLoader) Lookup(handle uintptr, symbol string) (uintptr, error) {
	addr, err := purego.Dlsym(handle, symbol)
	if err != nil {
		return 0, err
	}
	return addr, nil
}
