package gpu

import (
	"testing"
)

func TestBufferPool(t *testing.T) {
	dev := NewCPUDevice()

	pool := NewBufferPool(dev, 10*1024*1024, 0)
	defer pool.Clear()

	buf1, err := pool.Allocate(1024)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if buf1.Size() != 1024 {
		t.Errorf("Buffer reports size %d, want 1024", buf1.Size())
	}

	if err := pool.Release(buf1); err != nil {
		t.Errorf("Release failed: %v", err)
	}

	stats := pool.Stats()
	if stats.Allocations != 1 {
		t.Errorf("Expected 1 allocation, got %d", stats.Allocations)
	}

	// Second allocation of the same size must come from the pool
	buf2, err := pool.Allocate(1024)
	if err != nil {
		t.Fatalf("Second allocate failed: %v", err)
	}

	stats = pool.Stats()
	if stats.Reuses != 1 {
		t.Errorf("Expected 1 reuse, got %d", stats.Reuses)
	}
	if stats.PoolHits != 1 {
		t.Errorf("Expected 1 pool hit, got %d", stats.PoolHits)
	}

	pool.Release(buf2)
}

// routedDevice fails the test if the pool ever allocates through the public
// Allocate path on a device that exposes direct allocation.
type routedDevice struct {
	*CPUDevice
	publicCalls int
	directCalls int
}

func (d *routedDevice) Allocate(size int64) (Buffer, error) {
	d.publicCalls++
	return d.CPUDevice.Allocate(size)
}

func (d *routedDevice) allocateDirect(size int64) (Buffer, error) {
	d.directCalls++
	return d.CPUDevice.Allocate(size)
}

func TestBufferPoolUsesDirectAllocation(t *testing.T) {
	dev := &routedDevice{CPUDevice: NewCPUDevice()}

	pool := NewBufferPool(dev, 10*1024*1024, 0)
	defer pool.Clear()

	buf, err := pool.Allocate(4096)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer pool.Release(buf)

	if dev.directCalls != 1 {
		t.Errorf("Expected 1 direct allocation, got %d", dev.directCalls)
	}
	if dev.publicCalls != 0 {
		t.Errorf("Pool allocated through the device's public Allocate %d times", dev.publicCalls)
	}
}

func TestBufferPoolSizeRounding(t *testing.T) {
	dev := NewCPUDevice()

	pool := NewBufferPool(dev, 10*1024*1024, 0)
	defer pool.Clear()

	// 100 and 200 bytes round to the same bucket
	buf1, _ := pool.Allocate(100)
	pool.Release(buf1)

	buf2, _ := pool.Allocate(200)

	stats := pool.Stats()
	if stats.Reuses != 1 {
		t.Errorf("Expected buffer reuse due to size rounding, got %d reuses", stats.Reuses)
	}

	pool.Release(buf2)
}

func TestBufferPoolEviction(t *testing.T) {
	dev := NewCPUDevice()

	// Pool parks at most 1MB
	pool := NewBufferPool(dev, 1*1024*1024, 0)
	defer pool.Clear()

	bufs := make([]Buffer, 0, 8)
	for i := 0; i < 8; i++ {
		buf, err := pool.Allocate(256 * 1024)
		if err != nil {
			t.Fatalf("Allocate %d failed: %v", i, err)
		}
		bufs = append(bufs, buf)
	}
	for _, buf := range bufs {
		pool.Release(buf)
	}

	parked, _, max := pool.MemoryUsage()
	if parked > max {
		t.Errorf("Pool exceeded limit: %d > %d", parked, max)
	}

	stats := pool.Stats()
	if stats.Evictions == 0 {
		t.Error("Expected evictions when releasing 2MB into a 1MB pool")
	}
}

func TestAllocateImage(t *testing.T) {
	dev := NewCPUDevice()

	pool := NewBufferPool(dev, 0, 256)
	defer pool.Clear()

	// 1920*1 = 1920 bytes per row, padded to 2048
	img, err := pool.AllocateImage(1920, 1080, 1)
	if err != nil {
		t.Fatalf("AllocateImage failed: %v", err)
	}
	defer pool.Release(img.Buffer)

	if img.Pitch != 2048 {
		t.Errorf("Expected pitch 2048, got %d", img.Pitch)
	}
	if img.Width != 1920 || img.Height != 1080 {
		t.Errorf("Image dimensions: got %dx%d", img.Width, img.Height)
	}
	if img.Size() != img.Pitch*int64(img.Height) {
		t.Errorf("Buffer size %d does not cover %d padded rows", img.Size(), img.Height)
	}

	// Already-aligned rows gain no padding
	img2, err := pool.AllocateImage(512, 4, 1)
	if err != nil {
		t.Fatalf("AllocateImage failed: %v", err)
	}
	defer pool.Release(img2.Buffer)
	if img2.Pitch != 512 {
		t.Errorf("Expected pitch 512, got %d", img2.Pitch)
	}

	if _, err := pool.AllocateImage(0, 4, 1); err == nil {
		t.Error("Zero-width image should fail")
	}
}

func TestReleaseForeignBuffer(t *testing.T) {
	dev := NewCPUDevice()
	pool := NewBufferPool(dev, 0, 0)
	defer pool.Clear()

	// A buffer allocated outside the pool is freed, not parked
	buf, err := dev.Allocate(512)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if err := pool.Release(buf); err != nil {
		t.Errorf("Release of foreign buffer failed: %v", err)
	}

	parked, _, _ := pool.MemoryUsage()
	if parked != 0 {
		t.Errorf("Foreign buffer was parked: %d bytes", parked)
	}
}

func TestRoundUpPowerOf2(t *testing.T) {
	tests := []struct {
		in, want int64
	}{
		{1, 256},
		{256, 256},
		{257, 512},
		{1024, 1024},
		{1025, 2048},
		{1 << 20, 1 << 20},
		{1<<20 + 1, 1 << 21},
	}
	for _, tt := range tests {
		if got := roundUpPowerOf2(tt.in); got != tt.want {
			t.Errorf("roundUpPowerOf2(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
