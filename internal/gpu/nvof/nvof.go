// Package nvof wraps the NVIDIA optical flow SDK's CUDA interface.
//
// All flow computation happens inside the closed-source vendor library; this
// package only manages session-owned GPU resources and exposes the vendor
// entry points to the rest of the pipeline.
package nvof

import "fmt"

// SessionHandle is an opaque handle to a vendor optical flow session.
type SessionHandle uintptr

// BufferHandle is an opaque handle to a session-owned GPU buffer.
type BufferHandle uintptr

// DevicePtr is a raw CUDA device pointer into a session-owned buffer,
// consumed directly by downstream GPU kernels.
type DevicePtr uint64

// BufferUsage declares what role a buffer plays in flow computation.
type BufferUsage uint32

const (
	UsageInput BufferUsage = iota + 1
	UsageOutput
	UsageHint
	UsageCost
)

func (u BufferUsage) String() string {
	switch u {
	case UsageInput:
		return "input"
	case UsageOutput:
		return "output"
	case UsageHint:
		return "hint"
	case UsageCost:
		return "cost"
	default:
		return fmt.Sprintf("usage(%d)", uint32(u))
	}
}

// BufferFormat is the vendor pixel format tag for a buffer.
type BufferFormat uint32

const (
	FormatGrayscale8 BufferFormat = iota + 1
	FormatABGR8
	FormatNV12
	FormatShort2 // packed (flowx, flowy) S10.5 flow vectors
	FormatUint8  // cost values
)

func (f BufferFormat) String() string {
	switch f {
	case FormatGrayscale8:
		return "grayscale8"
	case FormatABGR8:
		return "abgr8"
	case FormatNV12:
		return "nv12"
	case FormatShort2:
		return "short2"
	case FormatUint8:
		return "uint8"
	default:
		return fmt.Sprintf("format(%d)", uint32(f))
	}
}

// OutputDims returns the dimensions of the flow vector field computed for a
// frame: the hardware emits one vector per gridSize x gridSize pixel block,
// with partial blocks at the right and bottom edges rounded up.
func OutputDims(width, height, gridSize uint32) (uint32, uint32) {
	if gridSize == 0 {
		gridSize = 1
	}
	return (width + gridSize - 1) / gridSize, (height + gridSize - 1) / gridSize
}

// BufferDescriptor describes a GPU buffer to the vendor allocator.
type BufferDescriptor struct {
	Width  uint32
	Height uint32
	Format BufferFormat
	Usage  BufferUsage
}

// Stride is the byte stride of an allocated buffer in both dimensions.
type Stride struct {
	X uint64
	Y uint64
}

// API is the subset of the vendor's CUDA function table used for buffer
// management. The production table is resolved from the driver library by
// LoadAPI; tests substitute fakes.
type API interface {
	// CreateGPUBuffer allocates a device-pointer-typed GPU buffer bound to
	// the session.
	CreateGPUBuffer(session SessionHandle, desc BufferDescriptor) (BufferHandle, error)

	// BufferDevicePtr returns the raw device pointer of an allocated
	// buffer. The vendor call cannot fail; an invalid handle yields zero.
	BufferDevicePtr(handle BufferHandle) DevicePtr

	// BufferStrideInfo queries the row/column byte stride of an allocated
	// buffer.
	BufferStrideInfo(handle BufferHandle) (Stride, error)

	// DestroyGPUBuffer releases an allocated buffer.
	DestroyGPUBuffer(handle BufferHandle) error
}
