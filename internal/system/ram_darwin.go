package system

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

func getRAMInfo() (*RAMInfo, error) {
	totalBytes, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return nil, fmt.Errorf("sysctl hw.memsize: %w", err)
	}

	// No MemAvailable equivalent on macOS; approximate with free plus
	// inactive pages from vm_stat.
	vmOutput, err := exec.Command("vm_stat").Output()
	if err != nil {
		return nil, fmt.Errorf("vm_stat: %w", err)
	}

	var freePages, inactivePages int64
	pageSize := int64(4096)

	for _, line := range strings.Split(string(vmOutput), "\n") {
		fields := strings.Fields(line)
		switch {
		case strings.HasPrefix(line, "Pages free:") && len(fields) >= 3:
			freePages, _ = strconv.ParseInt(strings.TrimSuffix(fields[2], "."), 10, 64)
		case strings.HasPrefix(line, "Pages inactive:") && len(fields) >= 3:
			inactivePages, _ = strconv.ParseInt(strings.TrimSuffix(fields[2], "."), 10, 64)
		case strings.HasPrefix(line, "Mach Virtual Memory Statistics:") && len(fields) >= 8:
			if ps, err := strconv.ParseInt(fields[7], 10, 64); err == nil {
				pageSize = ps
			}
		}
	}

	availableBytes := (freePages + inactivePages) * pageSize

	return &RAMInfo{
		TotalBytes:     int64(totalBytes),
		AvailableBytes: availableBytes,
		UsedBytes:      int64(totalBytes) - availableBytes,
	}, nil
}
