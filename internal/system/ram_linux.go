package system

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

func getRAMInfo() (*RAMInfo, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return nil, fmt.Errorf("sysinfo: %w", err)
	}

	unit := int64(si.Unit)
	if unit == 0 {
		unit = 1
	}
	totalBytes := int64(si.Totalram) * unit

	// Sysinfo's Freeram undercounts reclaimable page cache; prefer the
	// kernel's MemAvailable estimate when present.
	availableBytes, err := memAvailable()
	if err != nil {
		availableBytes = int64(si.Freeram) * unit
	}

	return &RAMInfo{
		TotalBytes:     totalBytes,
		AvailableBytes: availableBytes,
		UsedBytes:      totalBytes - availableBytes,
	}, nil
}

func memAvailable() (int64, error) {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] != "MemAvailable:" {
			continue
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, err
		}
		return kb * 1024, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("MemAvailable not found in /proc/meminfo")
}
