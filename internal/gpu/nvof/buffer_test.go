package nvof

import (
	"errors"
	"testing"
)

// fakeAPI stands in for the vendor function table. Failure injection points
// cover every vendor call the wrapper makes.
type fakeAPI struct {
	createErr  error
	strideErr  error
	destroyErr error

	ptr    DevicePtr
	stride Stride

	createCalls  int
	destroyCalls int
	lastDesc     BufferDescriptor
}

func workingFakeAPI() *fakeAPI {
	return &fakeAPI{
		ptr:    0xdeadbeef000,
		stride: Stride{X: 256, Y: 256 * 48},
	}
}

func (f *fakeAPI) CreateGPUBuffer(session SessionHandle, desc BufferDescriptor) (BufferHandle, error) {
	f.createCalls++
	f.lastDesc = desc
	if f.createErr != nil {
		return 0, f.createErr
	}
	return BufferHandle(0x10), nil
}

func (f *fakeAPI) BufferDevicePtr(handle BufferHandle) DevicePtr {
	return f.ptr
}

func (f *fakeAPI) BufferStrideInfo(handle BufferHandle) (Stride, error) {
	if f.strideErr != nil {
		return Stride{}, f.strideErr
	}
	return f.stride, nil
}

func (f *fakeAPI) DestroyGPUBuffer(handle BufferHandle) error {
	f.destroyCalls++
	return f.destroyErr
}

func TestNewBuffer(t *testing.T) {
	api := workingFakeAPI()

	buf, err := NewBuffer(api, SessionHandle(1), 48, 36, UsageOutput, FormatShort2)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer buf.Destroy()

	desc := buf.Descriptor()
	if desc.Width != 48 || desc.Height != 36 {
		t.Errorf("Descriptor dimensions: got %dx%d, want 48x36", desc.Width, desc.Height)
	}
	if desc.Usage != UsageOutput || desc.Format != FormatShort2 {
		t.Errorf("Descriptor tags: got %s/%s", desc.Usage, desc.Format)
	}
	if api.lastDesc != desc {
		t.Errorf("Vendor saw descriptor %+v, wrapper reports %+v", api.lastDesc, desc)
	}

	if buf.Handle() == 0 {
		t.Error("Handle is zero")
	}
	if buf.DevicePtr() != api.ptr {
		t.Errorf("DevicePtr: got %#x, want %#x", buf.DevicePtr(), api.ptr)
	}
	if buf.Stride() != api.stride {
		t.Errorf("Stride: got %+v, want %+v", buf.Stride(), api.stride)
	}
}

func TestNewBufferAllocationFailure(t *testing.T) {
	api := workingFakeAPI()
	api.createErr = errors.New("NV_OF_ERR_OUT_OF_MEMORY")

	buf, err := NewBuffer(api, SessionHandle(1), 1920, 1080, UsageInput, FormatNV12)
	if err == nil {
		buf.Destroy()
		t.Fatal("Expected construction to fail when the vendor allocation fails")
	}
	if !errors.Is(err, api.createErr) {
		t.Errorf("Vendor error not surfaced: %v", err)
	}
	if api.destroyCalls != 0 {
		t.Errorf("Nothing was allocated but destroy was called %d times", api.destroyCalls)
	}
}

func TestNewBufferNullDevicePointer(t *testing.T) {
	api := workingFakeAPI()
	api.ptr = 0 // allocation "succeeds" but yields a null pointer

	buf, err := NewBuffer(api, SessionHandle(1), 1920, 1080, UsageInput, FormatNV12)
	if err == nil {
		buf.Destroy()
		t.Fatal("Expected construction to fail on a null device pointer")
	}
	// The half-allocated handle must not leak.
	if api.destroyCalls != 1 {
		t.Errorf("Expected 1 destroy call for cleanup, got %d", api.destroyCalls)
	}
}

func TestNewBufferStrideQueryFailure(t *testing.T) {
	api := workingFakeAPI()
	api.strideErr = errors.New("NV_OF_ERR_GENERIC")

	if _, err := NewBuffer(api, SessionHandle(1), 48, 36, UsageCost, FormatUint8); err == nil {
		t.Fatal("Expected construction to fail when the stride query fails")
	}
	if api.destroyCalls != 1 {
		t.Errorf("Expected 1 destroy call for cleanup, got %d", api.destroyCalls)
	}
}

func TestDestroy(t *testing.T) {
	api := workingFakeAPI()

	buf, err := NewBuffer(api, SessionHandle(1), 48, 36, UsageOutput, FormatShort2)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	buf.Destroy()
	if api.destroyCalls != 1 {
		t.Errorf("Expected 1 destroy call, got %d", api.destroyCalls)
	}

	// Repeated Destroy must not double-free.
	buf.Destroy()
	if api.destroyCalls != 1 {
		t.Errorf("Second Destroy reached the vendor: %d calls", api.destroyCalls)
	}
}

func TestDestroyFailureTerminates(t *testing.T) {
	api := workingFakeAPI()
	api.destroyErr = errors.New("NV_OF_ERR_GENERIC")

	terminations := 0
	var termErr error
	buf, err := NewBuffer(api, SessionHandle(1), 48, 36, UsageOutput, FormatShort2,
		WithTerminateFunc(func(err error) {
			terminations++
			termErr = err
		}))
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	buf.Destroy()
	if terminations != 1 {
		t.Fatalf("Expected exactly 1 termination, got %d", terminations)
	}
	if !errors.Is(termErr, api.destroyErr) {
		t.Errorf("Termination error should carry the vendor failure: %v", termErr)
	}

	// Even after a failed release the wrapper never retries.
	buf.Destroy()
	if terminations != 1 || api.destroyCalls != 1 {
		t.Errorf("Destroy retried after failure: %d terminations, %d vendor calls", terminations, api.destroyCalls)
	}
}
