package cmd

import (
	"fmt"

	"github.com/coreflash/flashmgr/pkg/connection"
	"github.com/coreflash/flashmgr/pkg/flashproto"
	"github.com/coreflash/flashmgr/pkg/util"
	"github.com/spf13/cobra"
)

// haltCmd represents the target halt command
var haltCmd = &cobra.Command{
	Use:   "halt",
	Short: "Halt the target CPU",
	Long: `Halt the target CPU so it can be driven by the register-call protocol.

This creates a persistent halted state tracked by a local indicator file,
allowing multiple commands (dump, upload, program, erase) to share one halt without resuming
the target between them.

Example:
  flashmgr halt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return haltTarget()
	},
}

// resumeCmd represents the target resume command
var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the target CPU",
	Long: `Resume the target CPU after a halt command.

This clears the persistent halted state left by 'halt'.

Example:
  flashmgr resume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return resumeTarget()
	},
}

func init() {
	rootCmd.AddCommand(haltCmd)
	rootCmd.AddCommand(resumeCmd)
}

// haltTarget halts the target and sets the halt indicator
func haltTarget() error {
	if err := validateConnectionFlags(); err != nil {
		return err
	}

	conn := connection.NewConnection(cfg.Port)
	if err := conn.Open(cfg.Port); err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer conn.Close()

	session := flashproto.NewSession(conn)

	printInfo("Halting target...\n")
	if err := session.Halt(); err != nil {
		return fmt.Errorf("failed to halt target: %w", err)
	}

	if err := util.SetStopIndicator(); err != nil {
		return fmt.Errorf("failed to set halt indicator: %w", err)
	}

	printInfo("Target halted. Use 'resume' to continue execution.\n")
	return nil
}

// resumeTarget resumes the target and clears the halt indicator
func resumeTarget() error {
	if err := validateConnectionFlags(); err != nil {
		return err
	}

	if !util.IsStopped() {
		printInfo("Target is not in a halted state.\n")
		return nil
	}

	conn := connection.NewConnection(cfg.Port)
	if err := conn.Open(cfg.Port); err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer conn.Close()

	session := flashproto.NewSession(conn)

	printInfo("Resuming target...\n")
	if err := session.Resume(); err != nil {
		return fmt.Errorf("failed to resume target: %w", err)
	}

	if err := util.ClearStopIndicator(); err != nil {
		return fmt.Errorf("failed to clear halt indicator: %w", err)
	}

	printInfo("Target resumed.\n")
	return nil
}
