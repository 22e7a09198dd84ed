package gpu

// Buffer represents a device memory buffer
type Buffer interface {
	// Size returns the size of the buffer in bytes
	Size() int64

	// Ptr returns the raw pointer to the buffer (for GPU APIs)
	Ptr() uintptr

	// CopyToHost copies buffer data to host memory
	CopyToHost(dst []byte) error

	// CopyFromHost copies host memory to the buffer
	CopyFromHost(src []byte) error

	// Free releases the buffer
	Free() error

	// Device returns the device that owns this buffer
	Device() Device
}

// ImageBuffer is a 2D buffer whose rows are padded to the device's pitch
// alignment. Decoders write planes into it row by row; GPU kernels index it
// with the pitch, not the logical row width.
type ImageBuffer struct {
	Buffer

	// Width and Height are the logical image dimensions in pixels.
	Width  int
	Height int

	// Pitch is the allocated row stride in bytes.
	Pitch int64
}
