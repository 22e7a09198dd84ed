package npp

// Loader abstracts the platform's dynamic linker so the symbol cache can be
// exercised against fakes. The real implementation lives in dl_linux.go.
type Loader interface {
	// Open loads the shared library with the given name and returns an
	// opaque handle to it.
	Open(name string) (uintptr, error)

	// Lookup resolves a symbol in a previously opened library. A missing
	// symbol is reported as an error by the linker; the cache turns that
	// into a zero address.
	Lookup(handle uintptr, symbol string) (uintptr, error)
}

// openFirst tries each candidate library name in order and returns the handle
// of the first one that opens. Candidates are ordered most-specific first
// (CUDA-versioned soname before the unversioned one).
func openFirst(loader Loader, candidates []string) (uintptr, error) {
	var lastErr error
	for _, name := range candidates {
		handle, err := loader.Open(name)
		if err == nil {
			return handle, nil
		}
		lastErr = err
	}
	return 0, lastErr
}
