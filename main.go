// flashmgr - Command-line tool for programming microcontroller flash through
// a debug probe
//
// This tool enables uploading binaries, programming flash memory,
// reading/writing memory, and controlling CPU state over serial or TCP.
package main

import (
	"fmt"
	"os"

	"github.com/coreflash/flashmgr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
