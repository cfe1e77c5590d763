package target

import (
	"github.com/coreflash/flashmgr/pkg/flashalgo"
	"github.com/coreflash/flashmgr/pkg/memmap"
	"github.com/coreflash/flashmgr/pkg/util"
)

// simAlgorithm emulates a flash algorithm's entry points against a
// SimTarget's backing memory: it lets pkg/flash and pkg/flashbuilder be
// exercised by the real register-call protocol without a physical probe.
type simAlgorithm struct {
	algo   flashalgo.Algorithm
	region memmap.Region
}

// NewFlashSimAlgorithm returns a SimTarget pre-filled with region's
// erased-byte value and wired to emulate algo: EraseAll and EraseSector fill
// with the erased byte, ProgramPage copies from the staged page buffer into
// flash, and (when algo declares an analyzer) the analyzer entry computes a
// real CRC32 of the addressed flash content and writes it back to the
// command buffer, exactly as the wire protocol expects.
func NewFlashSimAlgorithm(algo flashalgo.Algorithm, region memmap.Region) *SimTarget {
	t := NewSimTarget()
	t.Fill(region.Start, int(region.Length), region.ErasedByte)
	t.algo = &simAlgorithm{algo: algo, region: region}
	return t
}

func (a *simAlgorithm) execute(t *SimTarget) {
	pc := t.regs[PC]
	switch {
	case pc == a.algo.PCInit, pc == a.algo.PCUninit:
		t.regs[R0] = 0

	case a.algo.SupportsEraseAll() && pc == a.algo.PCEraseAll:
		t.Fill(a.region.Start, int(a.region.Length), a.region.ErasedByte)
		t.regs[R0] = 0

	case pc == a.algo.PCEraseSector:
		addr := t.regs[R0]
		size := a.region.BlockSize
		base := addr - addr%size
		t.Fill(base, int(size), a.region.ErasedByte)
		t.EraseSectorCalls++
		t.regs[R0] = 0

	case pc == a.algo.PCProgramPage:
		addr := t.regs[R0]
		length := t.regs[R1]
		bufAddr := t.regs[R2]
		data := make([]byte, length)
		for i := range data {
			data[i] = t.mem[bufAddr+uint32(i)]
		}
		t.WriteMemoryBlock8(addr, data)
		t.ProgramPageCalls++
		t.regs[R0] = 0

	case a.algo.AnalyzerSupported && pc == a.algo.AnalyzerAddress:
		a.runAnalyzer(t)
		t.regs[R0] = 0

	default:
		t.regs[R0] = 0
	}
}

// runAnalyzer reads the (sizeLog2 | (addr/size)<<16) command table the
// driver wrote at r0, computes the real CRC32 of each addressed sector's
// current flash content, and writes the results back to the same buffer,
// matching pkg/flash.Driver.ComputeCRCs's read-back address.
func (a *simAlgorithm) runAnalyzer(t *SimTarget) {
	beginData := t.regs[R0]
	count := t.regs[R1]

	commands := make([]uint32, count)
	for i := range commands {
		addr := beginData + uint32(i)*4
		commands[i] = uint32(t.mem[addr]) | uint32(t.mem[addr+1])<<8 | uint32(t.mem[addr+2])<<16 | uint32(t.mem[addr+3])<<24
	}

	results := make([]uint32, count)
	for i, cmd := range commands {
		sizeLog2 := cmd & 0xFFFF
		addrDivSize := cmd >> 16
		size := uint32(1) << sizeLog2
		addr := addrDivSize * size

		data := make([]byte, size)
		for j := range data {
			data[j] = t.mem[addr+uint32(j)]
		}
		results[i] = util.CalculateCRC32(data)
	}

	t.WriteMemoryBlock32(beginData, results)
}
