package cmd

import (
	"fmt"

	"github.com/coreflash/flashmgr/pkg/connection"
	"github.com/coreflash/flashmgr/pkg/flashproto"
	"github.com/coreflash/flashmgr/pkg/util"
	"github.com/spf13/cobra"
)

var (
	dumpAddress string
	dumpCount   string
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Read and display target memory from a specified address",
	Long: `Read a block of memory from the target over the debug probe and display
it in hex dump format.

Example:
  flashmgr dump --address 08000000 --count 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateConnectionFlags(); err != nil {
			return err
		}

		addr, err := util.ParseHexAddress(dumpAddress)
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}

		count, err := util.ParseHexSize(dumpCount)
		if err != nil {
			return fmt.Errorf("invalid count: %w", err)
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

		data, err := session.ReadMem8(addr, int(count))
		if err != nil {
			return fmt.Errorf("failed to read memory: %w", err)
		}

		util.HexDump(data, addr)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVar(&dumpAddress, "address", "", "Starting address (hex, e.g., 08000000)")
	dumpCmd.Flags().StringVar(&dumpCount, "count", "10", "Number of bytes to read (hex, e.g., 100)")
	dumpCmd.MarkFlagRequired("address")
}
