//go:build linux

package nvof

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// The optical flow entry points ship with the display driver, not the CUDA
// toolkit.
const ofLibName = "libnvidia-opticalflow.so"

// API version handed to NvOFAPICreateInstanceCuda, from the SDK header.
const ofAPIVersion = 80

type ofStatus uint32

const (
	ofSuccess               ofStatus = 0
	ofErrOFNotAvailable     ofStatus = 1
	ofErrUnsupportedDev     ofStatus = 2
	ofErrDeviceDoesNotExist ofStatus = 3
	ofErrInvalidPtr         ofStatus = 4
	ofErrInvalidParam       ofStatus = 5
	ofErrInvalidCall        ofStatus = 6
	ofErrInvalidVersion     ofStatus = 7
	ofErrOutOfMemory        ofStatus = 8
	ofErrNotInitialized     ofStatus = 9
	ofErrUnsupportedFeature ofStatus = 10
	ofErrGeneric            ofStatus = 11
)

func (s ofStatus) String() string {
	switch s {
	case ofSuccess:
		return "NV_OF_SUCCESS"
	case ofErrOFNotAvailable:
		return "NV_OF_ERR_OF_NOT_AVAILABLE"
	case ofErrUnsupportedDev:
		return "NV_OF_ERR_UNSUPPORTED_DEVICE"
	case ofErrDeviceDoesNotExist:
		return "NV_OF_ERR_DEVICE_DOES_NOT_EXIST"
	case ofErrInvalidPtr:
		return "NV_OF_ERR_INVALID_PTR"
	case ofErrInvalidParam:
		return "NV_OF_ERR_INVALID_PARAM"
	case ofErrInvalidCall:
		return "NV_OF_ERR_INVALID_CALL"
	case ofErrInvalidVersion:
		return "NV_OF_ERR_INVALID_VERSION"
	case ofErrOutOfMemory:
		return "NV_OF_ERR_OUT_OF_MEMORY"
	case ofErrNotInitialized:
		return "NV_OF_ERR_NOT_INITIALIZED"
	case ofErrUnsupportedFeature:
		return "NV_OF_ERR_UNSUPPORTED_FEATURE"
	case ofErrGeneric:
		return "NV_OF_ERR_GENERIC"
	default:
		return fmt.Sprintf("NV_OF status %d", uint32(s))
	}
}

func (s ofStatus) err(op string) error {
	if s == ofSuccess {
		return nil
	}
	return fmt.Errorf("%s: %s", op, s)
}

// functionList mirrors NV_OF_CUDA_API_FUNCTION_LIST from nvOpticalFlowCuda.h.
// Field order is ABI; do not reorder.
type functionList struct {
	nvCreateOpticalFlowCuda     uintptr
	nvOFInit                    uintptr
	nvOFCreateGPUBufferCuda     uintptr
	nvOFGPUBufferGetCUdeviceptr uintptr
	nvOFGPUBufferGetStrideInfo  uintptr
	nvOFSetIOCudaStreams        uintptr
	nvOFExecute                 uintptr
	nvOFDestroyGPUBufferCuda    uintptr
	nvOFDestroy                 uintptr
	nvOFGetLastError            uintptr
	nvOFGetCaps                 uintptr
}

// ofBufferDescriptor mirrors NV_OF_BUFFER_DESCRIPTOR.
type ofBufferDescriptor struct {
	width  uint32
	height uint32
	usage  uint32
	format uint32
}

// ofStrideInfo mirrors NV_OF_CUDA_BUFFER_STRIDE_INFO (two planes at most;
// only NV12 uses the second one).
type ofStrideInfo struct {
	planes [2]struct {
		strideXInBytes uint32
		strideYInBytes uint32
	}
	numPlanes uint32
}

// Device-pointer-typed buffers; the SDK also supports cudaArray, which we
// never request.
const ofBufferTypeCUDevicePtr = 1

// driverAPI implements API on top of the vendor function table.
type driverAPI struct {
	fns functionList
}

// LoadAPI opens the vendor optical flow library and fetches its CUDA
// function table. The versioned soname installed by the driver is tried
// first.
func LoadAPI() (API, error) {
	handle, err := purego.Dlopen(ofLibName+".1", purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		handle, err = purego.Dlopen(ofLibName, purego.RTLD_NOW|purego.RTLD_LOCAL)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w (an NVIDIA driver with optical flow support is required)", ofLibName, err)
		}
	}

	createInstance, err := purego.Dlsym(handle, "NvOFAPICreateInstanceCuda")
	if err != nil {
		return nil, fmt.Errorf("resolve NvOFAPICreateInstanceCuda: %w", err)
	}

	api := &driverAPI{}
	status, _, _ := purego.SyscallN(createInstance,
		uintptr(ofAPIVersion),
		uintptr(unsafe.Pointer(&api.fns)))
	if err := ofStatus(status).err("NvOFAPICreateInstanceCuda"); err != nil {
		return nil, err
	}
	if api.fns.nvOFCreateGPUBufferCuda == 0 || api.fns.nvOFDestroyGPUBufferCuda == 0 {
		return nil, fmt.Errorf("vendor function table is incomplete")
	}
	return api, nil
}

func (a *driverAPI) CreateGPUBuffer(session SessionHandle, desc BufferDescriptor) (BufferHandle, error) {
	d := ofBufferDescriptor{
		width:  desc.Width,
		height: desc.Height,
		usage:  uint32(desc.Usage),
		format: uint32(desc.Format),
	}
	var handle BufferHandle
	status, _, _ := purego.SyscallN(a.fns.nvOFCreateGPUBufferCuda,
		uintptr(session),
		uintptr(unsafe.Pointer(&d)),
		uintptr(ofBufferTypeCUDevicePtr),
		uintptr(unsafe.Pointer(&handle)))
	if err := ofStatus(status).err("nvOFCreateGPUBufferCuda"); err != nil {
		return 0, err
	}
	return handle, nil
}

func (a *driverAPI) BufferDevicePtr(handle BufferHandle) DevicePtr {
	ptr, _, _ := purego.SyscallN(a.fns.nvOFGPUBufferGetCUdeviceptr, uintptr(handle))
	return DevicePtr(ptr)
}

func (a *driverAPI) BufferStrideInfo(handle BufferHandle) (Stride, error) {
	var info ofStrideInfo
	status, _, _ := purego.SyscallN(a.fns.nvOFGPUBufferGetStrideInfo,
		uintptr(handle),
		uintptr(unsafe.Pointer(&info)))
	if err := ofStatus(status).err("nvOFGPUBufferGetStrideInfo"); err != nil {
		return Stride{}, err
	}
	return Stride{
		X: uint64(info.planes[0].strideXInBytes),
		Y: uint64(info.planes[0].strideYInBytes),
	}, nil
}

func (a *driverAPI) DestroyGPUBuffer(handle BufferHandle) error {
	status, _, _ := purego.SyscallN(a.fns.nvOFDestroyGPUBufferCuda, uintptr(handle))
	return ofStatus(status).err("nvOFDestroyGPUBufferCuda")
}
