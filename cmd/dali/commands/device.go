package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rohankumardubey/DALI/internal/config"
	"github.com/rohankumardubey/DALI/internal/gpu"
	"github.com/rohankumardubey/DALI/internal/gpu/nvof"
	"github.com/rohankumardubey/DALI/internal/system"
)

var deviceInfoCmd = &cobra.Command{
	Use:   "device",
	Short: "Show compute device information",
	Long: `Display information about the compute device the pipeline would use.

This command shows which device (CPU or CUDA GPU) is selected and reports
available compute and memory resources.`,
	RunE: runDeviceInfo,
}

func init() {
	rootCmd.AddCommand(deviceInfoCmd)
}

// poolConfigFrom converts the configured pool sizing into device units
func poolConfigFrom(cfg *config.Config) gpu.PoolConfig {
	return gpu.PoolConfig{
		MaxBytes:   int64(cfg.GPU.PoolLimitMB) * 1024 * 1024,
		PitchAlign: int64(cfg.GPU.PitchAlign),
	}
}

// getDeviceFromFlag returns the device selected by the gpu.device setting
func getDeviceFromFlag(deviceFlag string, pool gpu.PoolConfig) (gpu.Device, error) {
	switch strings.ToLower(strings.TrimSpace(deviceFlag)) {
	case "auto":
		return gpu.GetDefaultDeviceWith(pool)

	case "cpu":
		return gpu.NewCPUDevice(), nil

	case "cuda", "gpu":
		dev, err := gpu.NewCUDADeviceWith(pool)
		if err != nil {
			return nil, fmt.Errorf("GPU not available: %w\nUse --device cpu to force CPU mode", err)
		}
		return dev, nil

	default:
		return nil, fmt.Errorf("unknown device %q (expected auto, cpu or cuda)", deviceFlag)
	}
}

func runDeviceInfo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println("  DALI Device Information")
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println()

	deviceFlag := viper.GetString("gpu.device")
	fmt.Printf("Device Flag: %s\n\n", deviceFlag)

	dev, err := getDeviceFromFlag(deviceFlag, poolConfigFrom(cfg))
	if err != nil {
		fmt.Printf("❌ Device Error: %v\n\n", err)

		fmt.Println("Available devices:")
		fmt.Println("  • auto - Auto-detect best device")
		fmt.Println("  • cpu  - Force CPU mode")
		if runtime.GOOS == "linux" {
			fmt.Println("  • cuda - CUDA GPU (requires NVIDIA GPU + driver)")
		}

		return err
	}

	fmt.Printf("✅ Device: %s\n", dev.Name())
	fmt.Printf("   Type: %s\n", dev.Type())
	fmt.Printf("   Platform: %s/%s\n\n", system.GetPlatform(), system.GetArchitecture())

	if dev.Type() == gpu.DeviceTypeGPU {
		used, total := dev.MemoryUsage()
		if total > 0 {
			fmt.Printf("GPU Memory:\n")
			fmt.Printf("   Used: %s / %s\n", system.FormatBytes(used), system.FormatBytes(total))
			fmt.Printf("   Free: %s\n\n", system.FormatBytes(total-used))
		}

		if cudaDev, ok := dev.(*gpu.CUDADevice); ok {
			parked, active, max := cudaDev.PoolMemoryUsage()
			fmt.Printf("Buffer Pool:\n")
			fmt.Printf("   Parked: %s, Active: %s, Limit: %s\n", system.FormatBytes(parked),
				system.FormatBytes(active), system.FormatBytes(max))
			fmt.Printf("   Pitch alignment: %d bytes\n\n", cfg.GPU.PitchAlign)
		}

		if _, err := nvof.LoadAPI(); err != nil {
			fmt.Printf("Optical Flow: not available (%v)\n\n", err)
		} else {
			of := cfg.OpticalFlow
			flowW, flowH := nvof.OutputDims(1920, 1080, uint32(of.OutputGridSize))
			fmt.Printf("Optical Flow: available\n")
			fmt.Printf("   Preset: %s\n", of.Preset)
			fmt.Printf("   Grid: %dpx (1080p flow field: %dx%d vectors)\n",
				of.OutputGridSize, flowW, flowH)
			fmt.Printf("   Cost buffers: %v, external hints: %v\n\n", of.EnableCost, of.EnableHints)
		}
	}

	fmt.Println("System Information:")
	fmt.Printf("   OS: %s\n", system.GetPlatform())
	fmt.Printf("   Arch: %s\n", system.GetArchitecture())
	fmt.Printf("   CPUs: %d\n", runtime.NumCPU())

	if ram, err := system.GetRAMInfo(); err == nil {
		fmt.Printf("   Host RAM: %s available / %s total\n",
			system.FormatBytes(ram.AvailableBytes), system.FormatBytes(ram.TotalBytes))
		if budget, err := system.EstimateStagingBudget(); err == nil {
			fmt.Printf("   Pinned staging budget: %s\n", system.FormatBytes(budget))
		}
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════")

	return nil
}
