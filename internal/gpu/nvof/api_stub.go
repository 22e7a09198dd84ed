//go:build !linux

package nvof

import "fmt"

// LoadAPI is only supported on Linux, where the NVIDIA driver ships the
// optical flow library.
func LoadAPI() (API, error) {
	return nil, fmt.Errorf("optical flow is only supported on Linux with an NVIDIA driver")
}
