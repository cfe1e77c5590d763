package analyzer

import (
	"fmt"

	"github.com/coreflash/flashmgr/pkg/memmap"
	"github.com/coreflash/flashmgr/pkg/util"
)

// CRC32Analyzer classifies pages using an on-target CRC32 computation: pad
// the host data to a full page with the erased-byte value, compute CRC32 on
// the host, and compare against the target's CRC32 of the same page. Equal
// CRCs mean "probably same" (false positives occur with probability ~2^-32);
// unequal CRCs mean "definitely different".
type CRC32Analyzer struct {
	// AssumeEstimateCorrect: when true, equal CRCs set Same=Yes outright.
	// When false, equal CRCs leave Same=Unknown, forcing a confirming read
	// before the page is skipped.
	AssumeEstimateCorrect bool
}

// Run classifies every page in pages whose Same flag is Unknown.
func (a CRC32Analyzer) Run(pages []Page, crc CRC, erasedByte byte) error {
	var pending []Page
	var sectors []Sector
	for _, p := range pages {
		if p.Same() != memmap.Unknown {
			continue
		}
		pending = append(pending, p)
		sectors = append(sectors, Sector{Addr: p.BaseAddr(), Size: p.Size()})
	}
	if len(pending) == 0 {
		return nil
	}

	targetCRCs, err := crc.ComputeCRCs(sectors)
	if err != nil {
		return fmt.Errorf("analyzer: compute target crcs: %w", err)
	}
	if len(targetCRCs) != len(pending) {
		return fmt.Errorf("analyzer: expected %d crcs, got %d", len(pending), len(targetCRCs))
	}

	for i, p := range pending {
		padded := PadPage(p.Data(), int(p.Size()), erasedByte)
		hostCRC := util.CalculateCRC32(padded)
		if hostCRC != targetCRCs[i] {
			p.SetSame(memmap.No)
			continue
		}
		if a.AssumeEstimateCorrect {
			p.SetSame(memmap.Yes)
		}
	}
	return nil
}

// PadPage right-pads data to size with erasedByte, or truncates it to size
// if it's already at least that long. Used to compare host data against a
// full flash page when the host side only has a partial prefix.
func PadPage(data []byte, size int, erasedByte byte) []byte {
	if len(data) >= size {
		return data[:size]
	}
	padded := make([]byte, size)
	copy(padded, data)
	for i := len(data); i < size; i++ {
		padded[i] = erasedByte
	}
	return padded
}
