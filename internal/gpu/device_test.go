package gpu

import (
	"bytes"
	"testing"
)

func TestCPUDevice(t *testing.T) {
	dev := NewCPUDevice()

	if dev.Type() != DeviceTypeCPU {
		t.Errorf("Expected DeviceTypeCPU, got %v", dev.Type())
	}
	if dev.Name() == "" {
		t.Error("Device name is empty")
	}
}

func TestCPUBuffer(t *testing.T) {
	dev := NewCPUDevice()

	size := int64(4096)
	buf, err := dev.Allocate(size)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer buf.Free()

	if buf.Size() != size {
		t.Errorf("Expected size %d, got %d", size, buf.Size())
	}
	if buf.Ptr() == 0 {
		t.Error("Buffer pointer is null")
	}
	if buf.Device() != dev {
		t.Error("Buffer device mismatch")
	}
}

func TestCPUBufferInvalidSize(t *testing.T) {
	dev := NewCPUDevice()

	for _, size := range []int64{0, -1} {
		if _, err := dev.Allocate(size); err == nil {
			t.Errorf("Allocate(%d) should fail", size)
		}
	}
}

func TestCPUHostTransfer(t *testing.T) {
	dev := NewCPUDevice()

	size := int64(1024)
	hostData := make([]byte, size)
	for i := range hostData {
		hostData[i] = byte(i % 256)
	}

	buf, err := dev.Allocate(size)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	defer buf.Free()

	if err := buf.CopyFromHost(hostData); err != nil {
		t.Fatalf("CopyFromHost failed: %v", err)
	}

	got := make([]byte, size)
	if err := buf.CopyToHost(got); err != nil {
		t.Fatalf("CopyToHost failed: %v", err)
	}

	if !bytes.Equal(hostData, got) {
		t.Error("Round-tripped data does not match")
	}
}

func TestCPUDeviceCopy(t *testing.T) {
	dev := NewCPUDevice()

	src, _ := dev.Allocate(256)
	dst, _ := dev.Allocate(256)
	defer src.Free()
	defer dst.Free()

	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(255 - i)
	}
	if err := src.CopyFromHost(data); err != nil {
		t.Fatalf("CopyFromHost failed: %v", err)
	}

	if err := dev.Copy(dst, src, 256); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	got := make([]byte, 256)
	if err := dst.CopyToHost(got); err != nil {
		t.Fatalf("CopyToHost failed: %v", err)
	}
	if !bytes.Equal(data, got) {
		t.Error("Copied data does not match")
	}

	if err := dev.Copy(dst, src, 512); err == nil {
		t.Error("Oversized copy should fail")
	}
}

func TestGetDevice(t *testing.T) {
	dev, err := GetDevice(DeviceTypeCPU)
	if err != nil {
		t.Fatalf("GetDevice(CPU) failed: %v", err)
	}
	if dev.Type() != DeviceTypeCPU {
		t.Errorf("Expected CPU device, got %v", dev.Type())
	}

	if _, err := GetDevice(DeviceType(42)); err == nil {
		t.Error("Unknown device type should fail")
	}
}

func TestGetDefaultDeviceNeverFails(t *testing.T) {
	dev, err := GetDefaultDevice()
	if err != nil {
		t.Fatalf("GetDefaultDevice failed: %v", err)
	}
	if dev == nil {
		t.Fatal("GetDefaultDevice returned nil device")
	}
	t.Logf("Default device: %s", dev.Name())
}
