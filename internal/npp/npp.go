// Package npp resolves symbols from the NVIDIA Performance Primitives
// libraries behind a single lookup function.
//
// NPP ships split across several shared objects. The color-conversion
// routines we call live in libnppicc, the support routines in libnppc, and
// which of the two exports a given function has shifted between CUDA
// releases. The cache hides that: it opens both libraries once, lazily, and
// answers "where is this symbol" and "is this symbol available" without the
// caller knowing which library won.
package npp

import (
	"fmt"
	"sync"
)

const (
	nppiccLibName = "libnppicc.so"
	nppcLibName   = "libnppc.so"
)

// Cache memoizes symbol resolution across the two NPP libraries.
//
// Library handles are acquired on the first lookup and kept open for the
// lifetime of the cache; there is no unload path. A resolved address of zero
// is a valid, cached answer meaning the symbol exists in neither library.
type Cache struct {
	loader Loader

	once    sync.Once
	openErr error
	nppicc  uintptr // image color conversion library
	nppc    uintptr // core support library

	mu      sync.Mutex
	symbols map[string]uintptr
}

// NewCache returns a cache that resolves symbols through the given loader.
// Nothing is opened until the first lookup.
func NewCache(loader Loader) *Cache {
	return &Cache{
		loader:  loader,
		symbols: make(map[string]uintptr),
	}
}

// Process-wide cache backed by the system linker. Initialized on first use,
// torn down at process exit, never reset mid-run.
var (
	defaultCache *Cache
	defaultOnce  sync.Once
)

// Default returns the process-wide cache.
func Default() *Cache {
	defaultOnce.Do(func() {
		defaultCache = NewCache(systemLoader{})
	})
	return defaultCache
}

// open dlopens both NPP libraries, versioned soname first, plain soname as
// fallback. The core library is acquired before the color-conversion one;
// probing at lookup time runs the other way around. Runs at most once; the
// outcome (handles or error) is permanent.
func (c *Cache) open() error {
	c.once.Do(func() {
		core, err := openFirst(c.loader, []string{
			nppcLibName + "." + nppSoVersion,
			nppcLibName,
		})
		if err != nil {
			c.openErr = fmt.Errorf("open %s: %w (install the CUDA toolkit or the NPP package)", nppcLibName, err)
			return
		}
		icc, err := openFirst(c.loader, []string{
			nppiccLibName + "." + nppSoVersion,
			nppiccLibName,
		})
		if err != nil {
			c.openErr = fmt.Errorf("open %s: %w (install the CUDA toolkit or the NPP package)", nppiccLibName, err)
			return
		}
		c.nppc = core
		c.nppicc = icc
	})
	return c.openErr
}

// Resolve returns the address of the named NPP symbol, or zero if it exists
// in neither library. The result, including zero, is cached; each name is
// probed at most once. The only error condition is failure to open the
// libraries themselves.
func (c *Cache) Resolve(name string) (uintptr, error) {
	if err := c.open(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if addr, ok := c.symbols[name]; ok {
		return addr, nil
	}

	// Probe the color-conversion library first, the core library only if
	// the symbol is not found there.
	addr := c.lookup(c.nppicc, name)
	if addr == 0 {
		addr = c.lookup(c.nppc, name)
	}
	c.symbols[name] = addr
	return addr, nil
}

// Available reports whether the named symbol exists in either NPP library.
// Callers use this to feature-detect optional routines; absence is not an
// error.
func (c *Cache) Available(name string) (bool, error) {
	addr, err := c.Resolve(name)
	if err != nil {
		return false, err
	}
	return addr != 0, nil
}

func (c *Cache) lookup(handle uintptr, name string) uintptr {
	if handle == 0 {
		return 0
	}
	addr, err := c.loader.Lookup(handle, name)
	if err != nil {
		return 0
	}
	return addr
}

// Resolve resolves name through the process-wide cache.
func Resolve(name string) (uintptr, error) {
	return Default().Resolve(name)
}

// Available checks name through the process-wide cache.
func Available(name string) (bool, error) {
	return Default().Available(name)
}
