package loader

import (
	"fmt"
	"os"
)

// BinLoader loads a raw binary file as a single contiguous block, skipping a
// configurable header and starting at a configurable base address. Grounded
// on original_source/src/load.rs's BinOptions/download_bin: skip bytes are
// dropped before the handler sees any data. BaseAddress is used as given;
// the loader applies no default for it.
type BinLoader struct {
	BaseLoader
	data []byte

	// Skip is the number of leading bytes to discard before the handler is
	// invoked, e.g. to drop a vector table a bootloader already owns.
	Skip uint32

	// BaseAddress is where the (post-skip) data is written. Callers that
	// want the "defaults to boot memory" behavior should resolve it via
	// memmap.MemoryMap.BootMemory() before calling Process.
	BaseAddress uint32
}

// NewBinLoader creates a raw binary loader that writes at baseAddress,
// skipping skip bytes of the file's head.
func NewBinLoader(baseAddress, skip uint32) *BinLoader {
	return &BinLoader{BaseAddress: baseAddress, Skip: skip}
}

func (l *BinLoader) Open(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if uint32(len(data)) < l.Skip {
		return fmt.Errorf("file is shorter than skip offset %d", l.Skip)
	}
	l.data = data[l.Skip:]
	return nil
}

func (l *BinLoader) Close() error {
	l.data = nil
	return nil
}

func (l *BinLoader) Process() error {
	if l.data == nil {
		return fmt.Errorf("file not open")
	}
	if l.handler == nil {
		return fmt.Errorf("handler not set")
	}
	if len(l.data) == 0 {
		return nil
	}
	return l.handler(l.BaseAddress, l.data)
}
