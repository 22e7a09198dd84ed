package nvof

import (
	"fmt"

	"github.com/rohankumardubey/DALI/internal/logging"
)

// Buffer owns one session-bound GPU buffer for its whole lifetime.
//
// A Buffer must not be copied: the vendor allocation has exactly one owner
// and is freed exactly once, by Destroy. Construct and destroy it from the
// thread that owns the session.
type Buffer struct {
	api        API
	descriptor BufferDescriptor
	handle     BufferHandle
	ptr        DevicePtr
	stride     Stride

	destroyed bool
	terminate func(error)
}

// Option configures a Buffer at construction time.
type Option func(*Buffer)

// WithTerminateFunc replaces the process-termination path taken when the
// vendor fails to release the buffer. Tests use this to observe the fatal
// path without killing the test process.
func WithTerminateFunc(f func(error)) Option {
	return func(b *Buffer) {
		b.terminate = f
	}
}

// NewBuffer allocates a GPU buffer on the given optical flow session.
//
// Allocation failure and a zero device pointer are both construction errors;
// a null pointer is never a valid allocated buffer.
func NewBuffer(api API, session SessionHandle, width, height uint32, usage BufferUsage, format BufferFormat, opts ...Option) (*Buffer, error) {
	b := &Buffer{
		api: api,
		descriptor: BufferDescriptor{
			Width:  width,
			Height: height,
			Format: format,
			Usage:  usage,
		},
		terminate: defaultTerminate,
	}
	for _, opt := range opts {
		opt(b)
	}

	handle, err := api.CreateGPUBuffer(session, b.descriptor)
	if err != nil {
		return nil, fmt.Errorf("create %dx%d %s %s buffer: %w", width, height, format, usage, err)
	}
	b.handle = handle

	b.ptr = api.BufferDevicePtr(handle)
	if b.ptr == 0 {
		// Claimed success with a null pointer; release what we got and
		// refuse the buffer.
		if derr := api.DestroyGPUBuffer(handle); derr != nil {
			b.terminate(fmt.Errorf("destroy optical flow buffer after null device pointer: %w", derr))
		}
		return nil, fmt.Errorf("create %dx%d %s %s buffer: vendor returned null device pointer", width, height, format, usage)
	}

	stride, err := api.BufferStrideInfo(handle)
	if err != nil {
		if derr := api.DestroyGPUBuffer(handle); derr != nil {
			b.terminate(fmt.Errorf("destroy optical flow buffer after stride query failure: %w", derr))
		}
		return nil, fmt.Errorf("query buffer stride: %w", err)
	}
	b.stride = stride

	return b, nil
}

// Descriptor returns the descriptor the buffer was allocated with.
func (b *Buffer) Descriptor() BufferDescriptor {
	return b.descriptor
}

// Handle returns the opaque vendor handle.
func (b *Buffer) Handle() BufferHandle {
	return b.handle
}

// DevicePtr returns the raw CUDA device pointer. Non-zero for any
// successfully constructed buffer.
func (b *Buffer) DevicePtr() DevicePtr {
	return b.ptr
}

// Stride returns the cached byte stride pair.
func (b *Buffer) Stride() Stride {
	return b.stride
}

// Destroy releases the GPU buffer through the vendor session. Safe to call
// more than once; only the first call does anything.
//
// If the vendor reports a release failure the process is terminated: a
// leaked GPU buffer accumulates across the allocate/free cycles of a
// long-running pipeline until the device runs out of memory, and there is no
// way to recover the allocation once the vendor has refused to free it.
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true

	if err := b.api.DestroyGPUBuffer(b.handle); err != nil {
		b.terminate(fmt.Errorf("destroy optical flow GPU buffer: %w", err))
	}
}

func defaultTerminate(err error) {
	logging.Fatalf("fatal: %v", err)
}
