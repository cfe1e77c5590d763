package flash

import (
	"fmt"
	"math/bits"

	"github.com/coreflash/flashmgr/pkg/analyzer"
)

// ReadMemoryBlock8 passes a host-side read straight through to the target,
// letting Driver satisfy analyzer.Target and the builder's gap-fill and
// confirming-read paths without exposing the underlying Target interface.
func (d *Driver) ReadMemoryBlock8(addr uint32, length int) ([]byte, error) {
	return d.t.ReadMemoryBlock8(addr, length)
}

// ComputeCRCs loads the algorithm's analyzer blob, submits one command word
// per sector, and returns the on-target CRC32 of each sector in order. Every
// sector's size must be a power of two and its address a multiple of size.
// Gated by algo.AnalyzerSupported.
func (d *Driver) ComputeCRCs(sectors []analyzer.Sector) ([]uint32, error) {
	if !d.algo.AnalyzerSupported {
		return nil, fmt.Errorf("flash: analyzer not supported by this algorithm")
	}
	if len(sectors) == 0 {
		return nil, nil
	}

	if err := d.t.WriteMemoryBlock32(d.algo.AnalyzerAddress, d.algo.AnalyzerCode); err != nil {
		return nil, fmt.Errorf("flash: load analyzer: %w", err)
	}

	commands := make([]uint32, len(sectors))
	for i, s := range sectors {
		if s.Size == 0 || s.Size&(s.Size-1) != 0 {
			return nil, fmt.Errorf("flash: analyzer sector size %d at 0x%X is not a power of two", s.Size, s.Addr)
		}
		if s.Addr%s.Size != 0 {
			return nil, fmt.Errorf("flash: analyzer sector 0x%X is not aligned to its size %d", s.Addr, s.Size)
		}
		sizeLog2 := uint32(bits.TrailingZeros32(s.Size))
		addrVal := s.Addr / s.Size
		commands[i] = sizeLog2 | (addrVal << 16)
	}

	beginData := d.algo.BeginData()
	if err := d.t.WriteMemoryBlock32(beginData, commands); err != nil {
		return nil, fmt.Errorf("flash: write analyzer commands: %w", err)
	}

	if _, err := d.callFunctionAndWait(d.algo.AnalyzerAddress, CallArgs{arg(beginData), arg(uint32(len(commands))), nil, nil}, false); err != nil {
		return nil, fmt.Errorf("flash: run analyzer: %w", err)
	}

	return d.t.ReadMemoryBlock32(beginData, len(commands))
}
