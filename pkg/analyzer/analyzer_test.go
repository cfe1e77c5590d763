package analyzer

import (
	"testing"

	"github.com/coreflash/flashmgr/pkg/memmap"
	"github.com/coreflash/flashmgr/pkg/util"
)

type fakePage struct {
	base uint32
	size uint32
	data []byte
	same memmap.Tristate
}

func (p *fakePage) BaseAddr() uint32          { return p.base }
func (p *fakePage) Size() uint32              { return p.size }
func (p *fakePage) Data() []byte              { return p.data }
func (p *fakePage) SetSame(s memmap.Tristate) { p.same = s }
func (p *fakePage) Same() memmap.Tristate     { return p.same }

type fakeCRC struct {
	crcs []uint32
}

func (f fakeCRC) ComputeCRCs(sectors []Sector) ([]uint32, error) {
	return f.crcs, nil
}

type fakeTarget struct {
	mem map[uint32]byte
}

func (f fakeTarget) ReadMemoryBlock8(addr uint32, length int) ([]byte, error) {
	out := make([]byte, length)
	for i := range out {
		out[i] = f.mem[addr+uint32(i)]
	}
	return out, nil
}

func TestCRC32AnalyzerMatchWithoutAssumeLeavesUnknown(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	page := &fakePage{base: 0x100, size: 4, data: data, same: memmap.Unknown}
	hostCRC := util.CalculateCRC32(data)

	a := CRC32Analyzer{AssumeEstimateCorrect: false}
	if err := a.Run([]Page{page}, fakeCRC{crcs: []uint32{hostCRC}}, 0xFF); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if page.Same() != memmap.Unknown {
		t.Fatalf("Same() = %v, want Unknown (confirming read required)", page.Same())
	}
}

func TestCRC32AnalyzerMatchWithAssumeSetsYes(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	page := &fakePage{base: 0x100, size: 4, data: data, same: memmap.Unknown}
	hostCRC := util.CalculateCRC32(data)

	a := CRC32Analyzer{AssumeEstimateCorrect: true}
	if err := a.Run([]Page{page}, fakeCRC{crcs: []uint32{hostCRC}}, 0xFF); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if page.Same() != memmap.Yes {
		t.Fatalf("Same() = %v, want Yes", page.Same())
	}
}

func TestCRC32AnalyzerMismatchSetsNoRegardlessOfAssume(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	page := &fakePage{base: 0x100, size: 4, data: data, same: memmap.Unknown}

	a := CRC32Analyzer{AssumeEstimateCorrect: true}
	if err := a.Run([]Page{page}, fakeCRC{crcs: []uint32{0xDEADBEEF}}, 0xFF); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if page.Same() != memmap.No {
		t.Fatalf("Same() = %v, want No", page.Same())
	}
}

func TestCRC32AnalyzerFalsePositiveRequiresConfirmingRead(t *testing.T) {
	// A deliberate CRC collision: host data differs from flash, but the
	// analyzer's (faked) target CRC happens to match the host CRC.
	hostData := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	collidedCRC := util.CalculateCRC32(hostData)
	page := &fakePage{base: 0x200, size: 4, data: hostData, same: memmap.Unknown}

	a := CRC32Analyzer{AssumeEstimateCorrect: false}
	if err := a.Run([]Page{page}, fakeCRC{crcs: []uint32{collidedCRC}}, 0xFF); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if page.Same() != memmap.Unknown {
		t.Fatal("false positive must leave Same=Unknown so a confirming read still happens")
	}
}

func TestPartialReadAnalyzerFlagsDifference(t *testing.T) {
	page := &fakePage{base: 0x300, size: 8, data: []byte{1, 2, 3, 4}, same: memmap.Unknown}
	tgt := fakeTarget{mem: map[uint32]byte{0x300: 1, 0x301: 2, 0x302: 9, 0x303: 4}}

	if err := (PartialReadAnalyzer{}).Run([]Page{page}, tgt); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if page.Same() != memmap.No {
		t.Fatalf("Same() = %v, want No", page.Same())
	}
}

func TestPartialReadAnalyzerNeverSetsYes(t *testing.T) {
	page := &fakePage{base: 0x300, size: 8, data: []byte{1, 2, 3, 4}, same: memmap.Unknown}
	tgt := fakeTarget{mem: map[uint32]byte{0x300: 1, 0x301: 2, 0x302: 3, 0x303: 4}}

	if err := (PartialReadAnalyzer{}).Run([]Page{page}, tgt); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if page.Same() != memmap.Unknown {
		t.Fatalf("Same() = %v, want Unknown (matching prefix is not proof)", page.Same())
	}
}
