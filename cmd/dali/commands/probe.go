package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankumardubey/DALI/internal/config"
	"github.com/rohankumardubey/DALI/internal/logging"
	"github.com/rohankumardubey/DALI/internal/npp"
)

// Routines the pipeline feature-detects before picking a color-conversion
// path. Probed when no symbols are given on the command line.
var defaultProbeSymbols = []string{
	"nppGetLibVersion",
	"nppGetStreamContext",
	"nppiNV12ToRGB_8u_P2C3R",
	"nppiYUV420ToRGB_8u_P3C3R",
	"nppiRGBToYUV420_8u_C3P3R",
	"nppiGammaFwd_8u_C3R",
	"nppiGammaInv_8u_C3R",
}

var probeCmd = &cobra.Command{
	Use:   "probe [symbol...]",
	Short: "Check NPP routine availability",
	Long: `Probe the NVIDIA Performance Primitives libraries for the named
routines. Without arguments a default set of color-conversion entry points
is checked.

The NPP libraries are opened on first use and the result of every probe is
cached for the lifetime of the process.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console); err != nil {
		return err
	}

	symbols := args
	if len(symbols) == 0 {
		symbols = defaultProbeSymbols
	}

	cache := npp.Default()

	available := 0
	for _, symbol := range symbols {
		ok, err := cache.Available(symbol)
		if err != nil {
			// Library acquisition failed; nothing else will resolve
			return fmt.Errorf("probe %s: %w", symbol, err)
		}
		if ok {
			available++
			fmt.Printf("✅ %s\n", symbol)
		} else {
			fmt.Printf("❌ %s\n", symbol)
		}
		logging.Debugf("probe %s: available=%v", symbol, ok)
	}

	fmt.Printf("\n%d/%d routines available\n", available, len(symbols))
	return nil
}
