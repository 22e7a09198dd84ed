package gpu

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"
)

// Device represents a compute device (CPU or GPU)
type Device interface {
	// Type returns the device type
	Type() DeviceType

	// Name returns a human-readable device name
	Name() string

	// Allocate allocates a buffer of the given size in bytes
	Allocate(size int64) (Buffer, error)

	// Copy copies data from src to dst buffer
	Copy(dst, src Buffer, size int64) error

	// Sync waits for all pending operations to complete
	Sync() error

	// Free releases the device and all associated resources
	Free() error

	// MemoryUsage returns current device memory usage in bytes (used, total)
	MemoryUsage() (int64, int64)
}

// DeviceType represents the type of compute device
type DeviceType int

const (
	DeviceTypeCPU DeviceType = iota
	DeviceTypeGPU
)

func (dt DeviceType) String() string {
	switch dt {
	case DeviceTypeCPU:
		return "CPU"
	case DeviceTypeGPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// GetDefaultDevice returns the best device for the current system: CUDA on
// Linux when the driver is present, CPU otherwise.
func GetDefaultDevice() (Device, error) {
	return GetDefaultDeviceWith(PoolConfig{})
}

// GetDefaultDeviceWith is GetDefaultDevice with explicit pool sizing for the
// CUDA case.
func GetDefaultDeviceWith(pool PoolConfig) (Device, error) {
	if runtime.GOOS == "linux" {
		dev, err := NewCUDADeviceWith(pool)
		if err == nil {
			return dev, nil
		}
		// Fall back to CPU when no usable GPU is found
	}

	return NewCPUDevice(), nil
}

// GetDevice returns a device of the specified type
func GetDevice(dtype DeviceType) (Device, error) {
	switch dtype {
	case DeviceTypeCPU:
		return NewCPUDevice(), nil
	case DeviceTypeGPU:
		if runtime.GOOS == "linux" {
			return NewCUDADevice()
		}
		return nil, fmt.Errorf("GPU not supported on %s", runtime.GOOS)
	default:
		return nil, fmt.Errorf("unknown device type: %v", dtype)
	}
}

// CPUDevice keeps decoded frames in host memory. It backs the pipeline when
// no GPU is available and the buffer pool tests.
type CPUDevice struct {
	name string
}

// NewCPUDevice creates a new CPU device
func NewCPUDevice() *CPUDevice {
	return &CPUDevice{
		name: fmt.Sprintf("CPU (%s)", runtime.GOARCH),
	}
}

func (d *CPUDevice) Type() DeviceType { return DeviceTypeCPU }
func (d *CPUDevice) Name() string     { return d.name }

func (d *CPUDevice) Allocate(size int64) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size: %d", size)
	}
	return &cpuBuffer{data: make([]byte, size), device: d}, nil
}

func (d *CPUDevice) Copy(dst, src Buffer, size int64) error {
	dstBuf, ok := dst.(*cpuBuffer)
	if !ok {
		return fmt.Errorf("dst is not a CPU buffer")
	}
	srcBuf, ok := src.(*cpuBuffer)
	if !ok {
		return fmt.Errorf("src is not a CPU buffer")
	}
	if size > int64(len(dstBuf.data)) || size > int64(len(srcBuf.data)) {
		return fmt.Errorf("copy size %d exceeds buffer size (dst: %d, src: %d)",
			size, len(dstBuf.data), len(srcBuf.data))
	}
	copy(dstBuf.data[:size], srcBuf.data[:size])
	return nil
}

func (d *CPUDevice) Sync() error {
	// No-op for CPU
	return nil
}

func (d *CPUDevice) Free() error {
	// No-op for CPU
	return nil
}

func (d *CPUDevice) MemoryUsage() (int64, int64) {
	// CPU memory accounting lives in the system package
	return 0, 0
}

// cpuBuffer implements Buffer for host memory
type cpuBuffer struct {
	data   []byte
	device *CPUDevice
	mu     sync.RWMutex
}

func (b *cpuBuffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.data))
}

func (b *cpuBuffer) Ptr() uintptr {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.data[0]))
}

func (b *cpuBuffer) CopyToHost(dst []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if int64(len(dst)) < int64(len(b.data)) {
		return fmt.Errorf("destination buffer too small: %d < %d", len(dst), len(b.data))
	}
	copy(dst, b.data)
	return nil
}

func (b *cpuBuffer) CopyFromHost(src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int64(len(b.data)) < int64(len(src)) {
		return fmt.Errorf("buffer too small: %d < %d", len(b.data), len(src))
	}
	copy(b.data, src)
	return nil
}

func (b *cpuBuffer) Free() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	return nil
}

func (b *cpuBuffer) Device() Device {
	return b.device
}
