package cmd

import (
	"fmt"

	"github.com/coreflash/flashmgr/pkg/connection"
	"github.com/coreflash/flashmgr/pkg/flashproto"
	"github.com/coreflash/flashmgr/pkg/loader"
	"github.com/coreflash/flashmgr/pkg/util"
	"github.com/spf13/cobra"
)

var uploadAddress string

// uploadChunkSize bounds how much data one WriteMem8 call carries, so a
// large file doesn't produce a single oversized wire packet.
const uploadChunkSize = 4096

// uploadCmd represents the Intel HEX upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <hexfile>",
	Short: "Upload an Intel HEX format file to target RAM",
	Long: `Upload a program in Intel HEX format to the target over the debug probe.

Example:
  flashmgr upload program.hex`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return uploadFile(args[0], "intelhex")
	},
}

// uploadSrecCmd represents the SREC upload command
var uploadSrecCmd = &cobra.Command{
	Use:   "upload-srec <srecfile>",
	Short: "Upload a Motorola SREC format file to target RAM",
	Long: `Upload a program in Motorola SREC format to the target over the debug probe.

Example:
  flashmgr upload-srec program.srec`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return uploadFile(args[0], "srec")
	},
}

// uploadWdcCmd represents the WDC binary upload command
var uploadWdcCmd = &cobra.Command{
	Use:   "upload-wdc <wdcfile>",
	Short: "Upload a WDCTools binary format file to target RAM",
	Long: `Upload a program in WDCTools binary format to the target over the debug probe.

Example:
  flashmgr upload-wdc program.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return uploadFile(args[0], "wdc")
	},
}

// binaryCmd represents the raw binary upload command
var binaryCmd = &cobra.Command{
	Use:   "binary <binfile>",
	Short: "Upload a raw binary file to target RAM",
	Long: `Upload a raw binary file to the target at the specified address.

Example:
  flashmgr binary program.bin --address 20000000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return uploadBinary(args[0])
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(uploadSrecCmd)
	rootCmd.AddCommand(uploadWdcCmd)
	rootCmd.AddCommand(binaryCmd)

	binaryCmd.Flags().StringVar(&uploadAddress, "address", "", "Target address (hex, e.g., 20000000)")
	binaryCmd.MarkFlagRequired("address")
}

// uploadFile is the common upload handler for file formats whose loader
// already carries per-block addresses (Intel HEX, SREC, WDC).
func uploadFile(filename string, format string) error {
	if err := validateConnectionFlags(); err != nil {
		return err
	}

	conn := connection.NewConnection(cfg.Port)
	if err := conn.Open(cfg.Port); err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer conn.Close()

	session := flashproto.NewSession(conn)

	isHalted := util.IsStopped()
	if !isHalted {
		if err := session.Halt(); err != nil {
			return fmt.Errorf("failed to halt target: %w", err)
		}
		defer session.Resume()
	}

	var ldr loader.Loader
	switch format {
	case "intelhex":
		ldr = loader.NewIntelHexLoader()
	case "srec":
		ldr = loader.NewSRecLoader()
	case "wdc":
		ldr = loader.NewWDCLoader()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	if err := ldr.Open(filename); err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer ldr.Close()

	ldr.SetHandler(func(address uint32, data []byte) error {
		return writeChunked(session, address, data)
	})

	printInfo("Uploading %s...\n", filename)
	if err := ldr.Process(); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	printInfo("Upload complete.\n")
	return nil
}

// uploadBinary uploads a raw binary file to the specified address
func uploadBinary(filename string) error {
	if err := validateConnectionFlags(); err != nil {
		return err
	}

	addr, err := util.ParseHexAddress(uploadAddress)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	data, err := util.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	conn := connection.NewConnection(cfg.Port)
	if err := conn.Open(cfg.Port); err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer conn.Close()

	session := flashproto.NewSession(conn)

	isHalted := util.IsStopped()
	if !isHalted {
		if err := session.Halt(); err != nil {
			return fmt.Errorf("failed to halt target: %w", err)
		}
		defer session.Resume()
	}

	printInfo("Uploading %d bytes to 0x%X...\n", len(data), addr)
	if err := writeChunked(session, addr, data); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	printInfo("Upload complete.\n")
	return nil
}

// writeChunked splits data into uploadChunkSize pieces so a large transfer
// doesn't become one oversized wire packet.
func writeChunked(session *flashproto.Session, addr uint32, data []byte) error {
	for offset := 0; offset < len(data); offset += uploadChunkSize {
		end := offset + uploadChunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := session.WriteMem8(addr+uint32(offset), data[offset:end]); err != nil {
			return fmt.Errorf("write failed at offset 0x%X: %w", offset, err)
		}
	}
	return nil
}
