package cmd

import (
	"fmt"

	"github.com/coreflash/flashmgr/pkg/connection"
	"github.com/coreflash/flashmgr/pkg/flash"
	"github.com/coreflash/flashmgr/pkg/flashalgo"
	"github.com/coreflash/flashmgr/pkg/flashload"
	"github.com/coreflash/flashmgr/pkg/flashproto"
	"github.com/coreflash/flashmgr/pkg/loader"
	"github.com/coreflash/flashmgr/pkg/memmap"
	"github.com/coreflash/flashmgr/pkg/util"
	"github.com/spf13/cobra"
)

var (
	programChipErase  bool
	programSmartFlash bool
	programAddress    string
	programFormat     string
)

// eraseCmd represents the flash erase command
var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase every flash region in the memory map",
	Long: `Erase every flash region described by the configured memory map.

⚠️  WARNING: This is a destructive operation that cannot be undone.

Example:
  flashmgr erase`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return eraseAllFlash()
	},
}

// programCmd represents the flash programming command
var programCmd = &cobra.Command{
	Use:   "program <file>",
	Short: "Plan and program a file into flash",
	Long: `Program file into the target's flash memory.

The file's data is routed through the configured memory map into one
FlashBuilder per flash region it touches; each region then plans the
cheapest chip-erase-vs-sector-erase strategy for the bytes it received and
executes it over the debug-probe connection.

Supported formats (--format): bin (default), intelhex, srec, wdc, elf.
For bin, --address sets the destination; it defaults to the memory map's
boot region.

⚠️  WARNING: This will overwrite flash memory.

Example:
  flashmgr program firmware.bin --address 08000000
  flashmgr program firmware.hex --format intelhex
  flashmgr program firmware.elf --format elf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return programFlash(args[0])
	},
}

func init() {
	rootCmd.AddCommand(eraseCmd)
	rootCmd.AddCommand(programCmd)

	programCmd.Flags().BoolVar(&programChipErase, "chip-erase", false, "Prefer a chip erase over sector erase where supported")
	programCmd.Flags().BoolVar(&programSmartFlash, "smart-flash", true, "Skip pages whose flash content already matches")
	programCmd.Flags().StringVar(&programAddress, "address", "", "Destination address for --format bin (hex, e.g., 08000000)")
	programCmd.Flags().StringVar(&programFormat, "format", "bin", "File format: bin, intelhex, srec, wdc, elf")
}

// openTarget opens the configured connection, loads the memory map and
// algorithm, and halts the target, returning everything programFlash and
// eraseAllFlash need.
func openTarget() (*memmap.MemoryMap, flashalgo.Algorithm, *flashproto.Session, connection.Connection, error) {
	if cfg.MemoryMapFile == "" {
		return nil, flashalgo.Algorithm{}, nil, nil, fmt.Errorf("no memory map configured (set memory_map in flashmgr.ini)")
	}
	if cfg.AlgorithmFile == "" {
		return nil, flashalgo.Algorithm{}, nil, nil, fmt.Errorf("no flash algorithm configured (set algorithm in flashmgr.ini)")
	}

	memMap, err := memmap.LoadFromFile(cfg.MemoryMapFile)
	if err != nil {
		return nil, flashalgo.Algorithm{}, nil, nil, fmt.Errorf("failed to load memory map: %w", err)
	}

	algo, err := flashalgo.LoadFromFile(cfg.AlgorithmFile)
	if err != nil {
		return nil, flashalgo.Algorithm{}, nil, nil, fmt.Errorf("failed to load flash algorithm: %w", err)
	}

	conn := connection.NewConnection(cfg.Port)
	if err := conn.Open(cfg.Port); err != nil {
		return nil, flashalgo.Algorithm{}, nil, nil, fmt.Errorf("failed to open connection: %w", err)
	}

	session := flashproto.NewSession(conn)
	if !util.IsStopped() {
		if err := session.Halt(); err != nil {
			conn.Close()
			return nil, flashalgo.Algorithm{}, nil, nil, fmt.Errorf("failed to halt target: %w", err)
		}
	}

	return memMap, algo, session, conn, nil
}

// newFlashLoader builds a flashload.FlashLoader over memMap whose
// DriverFactory lazily creates one flash.Driver per flash region, all
// sharing the same probe session.
func newFlashLoader(memMap *memmap.MemoryMap, algo flashalgo.Algorithm, session *flashproto.Session) *flashload.FlashLoader {
	probe := flashproto.NewProbeTarget(session)
	return flashload.NewFlashLoader(memMap, func(region memmap.Region) (*flash.Driver, error) {
		return flash.NewDriver(probe, region, algo), nil
	})
}

// eraseAllFlash erases every flash region in the configured memory map.
func eraseAllFlash() error {
	if err := validateConnectionFlags(); err != nil {
		return err
	}
	if !util.ConfirmDanger("You are about to ERASE every flash region in the memory map") {
		printInfo("Operation cancelled.\n")
		return nil
	}

	memMap, algo, session, conn, err := openTarget()
	if err != nil {
		return err
	}
	defer conn.Close()
	defer session.Resume()

	probe := flashproto.NewProbeTarget(session)
	for _, region := range memMap.RegionsOfKind(memmap.Flash) {
		driver := flash.NewDriver(probe, region, algo)
		printInfo("Erasing region %q...\n", region.Name)
		if err := driver.Init(flash.Erase); err != nil {
			return fmt.Errorf("failed to prepare region %q: %w", region.Name, err)
		}
		if driver.IsEraseAllSupported {
			err = driver.EraseAll()
		} else {
			err = eraseRegionBySector(driver, region)
		}
		if uninitErr := driver.Uninit(); err == nil {
			err = uninitErr
		}
		if err != nil {
			return fmt.Errorf("failed to erase region %q: %w", region.Name, err)
		}
	}

	printInfo("Flash memory erased successfully.\n")
	return nil
}

func eraseRegionBySector(driver *flash.Driver, region memmap.Region) error {
	for addr := region.Start; addr < region.End(); addr += region.BlockSize {
		if err := driver.ErasePage(addr); err != nil {
			return err
		}
	}
	return nil
}

// programFlash loads filename with the selected format, routes it through
// the memory map, and commits the plan to the target's flash.
func programFlash(filename string) error {
	if err := validateConnectionFlags(); err != nil {
		return err
	}

	if !util.Confirm("Are you sure you want to reprogram the flash memory? (y/n): ") {
		printInfo("Operation cancelled.\n")
		return nil
	}

	memMap, algo, session, conn, err := openTarget()
	if err != nil {
		return err
	}
	defer conn.Close()
	defer session.Resume()

	fl := newFlashLoader(memMap, algo, session)
	fl.ChipErase = programChipErase
	fl.SmartFlash = programSmartFlash

	ldr, err := buildLoader(filename, memMap)
	if err != nil {
		return err
	}
	defer ldr.Close()

	ldr.SetHandler(fl.AddData)

	printInfo("Reading %s...\n", filename)
	if err := ldr.Process(); err != nil {
		return fmt.Errorf("failed to process %s: %w", filename, err)
	}

	printInfo("Programming flash...\n")
	if err := fl.Commit(); err != nil {
		return fmt.Errorf("flash programming failed: %w", err)
	}

	printInfo("Flash programming complete.\n")
	return nil
}

// buildLoader constructs the file-format loader requested by --format,
// opening filename and resolving bin's default base address from memMap's
// boot region when --address isn't given.
func buildLoader(filename string, memMap *memmap.MemoryMap) (loader.Loader, error) {
	var ldr loader.Loader

	switch programFormat {
	case "bin":
		addr, err := binBaseAddress(memMap)
		if err != nil {
			return nil, err
		}
		ldr = loader.NewBinLoader(addr, 0)
	case "intelhex":
		ldr = loader.NewIntelHexLoader()
	case "srec":
		ldr = loader.NewSRecLoader()
	case "wdc":
		ldr = loader.NewWDCLoader()
	case "elf":
		ldr = loader.NewElfLoader(memMap)
	default:
		return nil, fmt.Errorf("unsupported format: %s", programFormat)
	}

	if err := ldr.Open(filename); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	return ldr, nil
}

func binBaseAddress(memMap *memmap.MemoryMap) (uint32, error) {
	if programAddress != "" {
		return util.ParseHexAddress(programAddress)
	}
	boot, ok := memMap.BootMemory()
	if !ok {
		return 0, fmt.Errorf("no --address given and memory map has no boot region to default to")
	}
	return boot.Start, nil
}
