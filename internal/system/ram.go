package system

import (
	"fmt"
	"runtime"
)

// RAMInfo contains information about host memory
type RAMInfo struct {
	TotalBytes     int64
	AvailableBytes int64
	UsedBytes      int64
}

// GetRAMInfo returns information about host RAM
func GetRAMInfo() (*RAMInfo, error) {
	return getRAMInfo()
}

// FormatBytes formats bytes as human-readable string
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// EstimateStagingBudget returns host RAM that can safely back pinned staging
// buffers for host/device transfers. Pinned pages are unswappable, so a
// headroom for the OS and decoder working sets is left untouched.
func EstimateStagingBudget() (int64, error) {
	info, err := GetRAMInfo()
	if err != nil {
		return 0, err
	}

	headroom := int64(2 * 1024 * 1024 * 1024)
	if info.AvailableBytes < headroom {
		return 0, nil
	}

	return info.AvailableBytes - headroom, nil
}

// GetPlatform returns the current platform
func GetPlatform() string {
	return runtime.GOOS
}

// GetArchitecture returns the system architecture
func GetArchitecture() string {
	return runtime.GOARCH
}
