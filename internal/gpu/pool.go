package gpu

import (
	"fmt"
	"sync"
)

// defaultPitchAlign matches the CUDA texture pitch alignment; decoded frame
// rows padded to it stay coalesced for every kernel that reads them.
const defaultPitchAlign = 256

// BufferPool recycles device buffers across frames. A media pipeline
// allocates and frees identically sized plane buffers every iteration, so
// freed buffers are parked by rounded size instead of returned to the
// device.
type BufferPool struct {
	device     Device
	pools      map[int64][]*pooledBuffer // rounded size -> parked buffers
	active     map[*pooledBuffer]struct{}
	mu         sync.RWMutex
	maxBytes   int64 // maximum total bytes to park (0 = unlimited)
	curBytes   int64 // currently parked bytes
	pitchAlign int64
	stats      PoolStats
}

// PoolConfig sizes a device-embedded buffer pool.
type PoolConfig struct {
	MaxBytes   int64 // parking limit (0 = 90% of free device memory)
	PitchAlign int64 // row alignment for image planes (0 = CUDA default)
}

// PoolStats tracks buffer pool statistics
type PoolStats struct {
	Allocations int64 // total allocation requests
	Reuses      int64 // buffers reused from the pool
	Evictions   int64 // buffers freed due to memory pressure
	PoolHits    int64 // successful pool lookups
	PoolMisses  int64 // failed pool lookups (allocated new)
}

// pooledBuffer wraps a device buffer with reference counting
type pooledBuffer struct {
	Buffer
	requestedSize int64
	actualSize    int64
	poolKey       int64 // rounded size used for parking
	refCount      int32
	pool          *BufferPool
}

// NewBufferPool creates a pool on the given device.
// maxBytes: maximum memory to keep parked (0 = unlimited).
// pitchAlign: row alignment for image allocations (0 = CUDA default).
func NewBufferPool(device Device, maxBytes, pitchAlign int64) *BufferPool {
	if pitchAlign <= 0 {
		pitchAlign = defaultPitchAlign
	}
	return &BufferPool{
		device:     device,
		pools:      make(map[int64][]*pooledBuffer),
		active:     make(map[*pooledBuffer]struct{}),
		maxBytes:   maxBytes,
		pitchAlign: pitchAlign,
	}
}

// Allocate gets a buffer from the pool or allocates a new one
func (p *BufferPool) Allocate(size int64) (Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size: %d", size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Allocations++

	// Look for a parked buffer that is big enough, checking the rounded
	// size and the next power of two up.
	poolSize := roundUpPowerOf2(size)
	for checkSize := poolSize; checkSize <= poolSize*2; checkSize *= 2 {
		buffers, ok := p.pools[checkSize]
		if !ok || len(buffers) == 0 {
			continue
		}
		buf := buffers[len(buffers)-1]
		p.pools[checkSize] = buffers[:len(buffers)-1]

		buf.refCount = 1
		buf.requestedSize = size
		p.active[buf] = struct{}{}
		p.curBytes -= buf.actualSize

		p.stats.Reuses++
		p.stats.PoolHits++
		return buf, nil
	}

	p.stats.PoolMisses++

	// Allocate at the rounded size so the buffer parks cleanly under its
	// own key when released.
	raw, err := p.allocateDirect(poolSize)
	if err != nil {
		return nil, fmt.Errorf("allocate device buffer: %w", err)
	}

	buf := &pooledBuffer{
		Buffer:        raw,
		requestedSize: size,
		actualSize:    poolSize,
		poolKey:       poolSize,
		refCount:      1,
		pool:          p,
	}
	p.active[buf] = struct{}{}

	return buf, nil
}

// directAllocator is implemented by devices whose Allocate routes back
// through their own pool; the pool takes the raw path to avoid recursion.
type directAllocator interface {
	allocateDirect(size int64) (Buffer, error)
}

func (p *BufferPool) allocateDirect(size int64) (Buffer, error) {
	if da, ok := p.device.(directAllocator); ok {
		return da.allocateDirect(size)
	}
	return p.device.Allocate(size)
}

// AllocateImage allocates a pitch-aligned 2D plane buffer. Each of the
// height rows occupies pitch bytes, where pitch is width*bytesPerPixel
// rounded up to the pool's alignment.
func (p *BufferPool) AllocateImage(width, height, bytesPerPixel int) (*ImageBuffer, error) {
	if width <= 0 || height <= 0 || bytesPerPixel <= 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d, %d bpp", width, height, bytesPerPixel)
	}

	pitch := alignUp(int64(width)*int64(bytesPerPixel), p.pitchAlign)
	buf, err := p.Allocate(pitch * int64(height))
	if err != nil {
		return nil, err
	}

	return &ImageBuffer{
		Buffer: buf,
		Width:  width,
		Height: height,
		Pitch:  pitch,
	}, nil
}

// Release returns a buffer to the pool
func (p *BufferPool) Release(buf Buffer) error {
	poolBuf, ok := buf.(*pooledBuffer)
	if !ok {
		// Not one of ours, free directly
		return buf.Free()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, tracked := p.active[poolBuf]; !tracked {
		return poolBuf.Buffer.Free()
	}

	poolBuf.refCount--
	if poolBuf.refCount > 0 {
		return nil // still in use
	}

	delete(p.active, poolBuf)

	// Evict until the parked set fits
	for p.maxBytes > 0 && p.curBytes+poolBuf.actualSize > p.maxBytes {
		if !p.evictOne() {
			// Nothing left to evict and still over budget: free outright
			return poolBuf.Buffer.Free()
		}
	}

	p.pools[poolBuf.poolKey] = append(p.pools[poolBuf.poolKey], poolBuf)
	p.curBytes += poolBuf.actualSize

	return nil
}

// evictOne frees one parked buffer. Caller holds the lock.
func (p *BufferPool) evictOne() bool {
	for size, buffers := range p.pools {
		if len(buffers) == 0 {
			continue
		}
		buf := buffers[0]
		p.pools[size] = buffers[1:]
		p.curBytes -= buf.actualSize
		p.stats.Evictions++
		buf.Buffer.Free()
		return true
	}
	return false
}

// Clear empties the pool and frees all parked buffers
func (p *BufferPool) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for size, buffers := range p.pools {
		for _, buf := range buffers {
			if err := buf.Buffer.Free(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(p.pools, size)
	}
	p.curBytes = 0

	return firstErr
}

// Stats returns current pool statistics
func (p *BufferPool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// MemoryUsage returns parked bytes, active bytes, and the parking limit
func (p *BufferPool) MemoryUsage() (parked, active, max int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	activeBytes := int64(0)
	for buf := range p.active {
		activeBytes += buf.actualSize
	}

	return p.curBytes, activeBytes, p.maxBytes
}

func alignUp(n, align int64) int64 {
	return (n + align - 1) &^ (align - 1)
}

// roundUpPowerOf2 rounds up to the nearest power of 2, with a 256-byte floor
// so tiny metadata buffers share one bucket
func roundUpPowerOf2(n int64) int64 {
	if n <= 256 {
		return 256
	}

	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++

	return n
}

// pooledBuffer delegates to the wrapped buffer, reporting the requested size
// and routing Free through the pool

func (b *pooledBuffer) Size() int64 {
	return b.requestedSize
}

func (b *pooledBuffer) Free() error {
	if b.pool != nil {
		return b.pool.Release(b)
	}
	return b.Buffer.Free()
}
