package flashload

import (
	"bytes"
	"errors"
	"testing"

	"github.com/coreflash/flashmgr/pkg/flash"
	"github.com/coreflash/flashmgr/pkg/flashalgo"
	"github.com/coreflash/flashmgr/pkg/memmap"
	"github.com/coreflash/flashmgr/pkg/target"
)

func testAlgorithm() flashalgo.Algorithm {
	return flashalgo.Algorithm{
		Instructions:  make([]uint32, 256),
		LoadAddress:   0x2000_0000,
		StaticBase:    0x2000_0000,
		BeginStack:    0x2000_1000,
		PageBuffers:   []uint32{0x2000_2000},
		PCInit:        0x2000_0001,
		PCUninit:      0x2000_0011,
		PCEraseAll:    0x2000_0041,
		PCEraseSector: 0x2000_0021,
		PCProgramPage: 0x2000_0031,
	}
}

func testMemoryMap(t *testing.T) (*memmap.MemoryMap, memmap.Region, memmap.Region) {
	t.Helper()
	regionA := memmap.NewFlashRegion("flashA", 0x0800_0000, 0x1000, 0x400, 0xFF)
	regionB := memmap.NewFlashRegion("flashB", 0x0801_0000, 0x1000, 0x400, 0xFF)
	ram := memmap.NewRegion("ram", memmap.Ram, 0x2000_0000, 0x1_0000)
	mm, err := memmap.New(regionA, regionB, ram)
	if err != nil {
		t.Fatalf("memmap.New() error = %v", err)
	}
	return mm, regionA, regionB
}

// driverRegistry builds flash.Driver instances lazily and records the order
// regions were asked for, so tests can assert Commit's at-most-one-chip-erase
// sequencing.
type driverRegistry struct {
	algo  flashalgo.Algorithm
	sims  map[memmap.Region]*target.SimTarget
	order []string
}

func newDriverRegistry(algo flashalgo.Algorithm) *driverRegistry {
	return &driverRegistry{algo: algo, sims: make(map[memmap.Region]*target.SimTarget)}
}

func (r *driverRegistry) factory(region memmap.Region) (*flash.Driver, error) {
	sim, ok := r.sims[region]
	if !ok {
		sim = target.NewFlashSimAlgorithm(r.algo, region)
		r.sims[region] = sim
	}
	r.order = append(r.order, region.Name)
	return flash.NewDriver(sim, region, r.algo), nil
}

func TestFlashLoaderAddDataSplitsAcrossRegions(t *testing.T) {
	mm, regionA, regionB := testMemoryMap(t)
	reg := newDriverRegistry(testAlgorithm())
	l := NewFlashLoader(mm, reg.factory)

	// Straddle the gap between regionA and regionB: AddData must only ever
	// see addresses inside a single region, since the gap itself isn't
	// mapped, so seed each half separately.
	if err := l.AddData(regionA.Start+regionA.Length-2, []byte{1, 2}); err != nil {
		t.Fatalf("AddData() error = %v", err)
	}
	if err := l.AddData(regionB.Start, []byte{3, 4}); err != nil {
		t.Fatalf("AddData() error = %v", err)
	}

	if err := l.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	gotA, err := reg.sims[regionA].ReadMemoryBlock8(regionA.Start+regionA.Length-2, 2)
	if err != nil {
		t.Fatalf("ReadMemoryBlock8(A) error = %v", err)
	}
	if !bytes.Equal(gotA, []byte{1, 2}) {
		t.Fatalf("region A content = % X, want 01 02", gotA)
	}

	gotB, err := reg.sims[regionB].ReadMemoryBlock8(regionB.Start, 2)
	if err != nil {
		t.Fatalf("ReadMemoryBlock8(B) error = %v", err)
	}
	if !bytes.Equal(gotB, []byte{3, 4}) {
		t.Fatalf("region B content = % X, want 03 04", gotB)
	}
}

func TestFlashLoaderAddDataSpanningRegionBoundary(t *testing.T) {
	// A single AddData call whose byte range crosses from one region into an
	// adjacent one must be split transparently between the two builders.
	regionA := memmap.NewFlashRegion("flashA", 0x0800_0000, 0x10, 0x10, 0xFF)
	regionB := memmap.NewFlashRegion("flashB", 0x0800_0010, 0x10, 0x10, 0xFF)
	mm, err := memmap.New(regionA, regionB)
	if err != nil {
		t.Fatalf("memmap.New() error = %v", err)
	}

	reg := newDriverRegistry(testAlgorithm())
	l := NewFlashLoader(mm, reg.factory)

	payload := []byte{1, 2, 3, 4}
	addr := regionA.Start + regionA.Length - 2
	if err := l.AddData(addr, payload); err != nil {
		t.Fatalf("AddData() error = %v", err)
	}
	if err := l.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	gotA, _ := reg.sims[regionA].ReadMemoryBlock8(addr, 2)
	if !bytes.Equal(gotA, payload[:2]) {
		t.Fatalf("region A tail = % X, want % X", gotA, payload[:2])
	}
	gotB, _ := reg.sims[regionB].ReadMemoryBlock8(regionB.Start, 2)
	if !bytes.Equal(gotB, payload[2:]) {
		t.Fatalf("region B head = % X, want % X", gotB, payload[2:])
	}
}

func TestFlashLoaderAddDataRejectsUnmappedAddress(t *testing.T) {
	mm, _, regionB := testMemoryMap(t)
	reg := newDriverRegistry(testAlgorithm())
	l := NewFlashLoader(mm, reg.factory)

	err := l.AddData(regionB.Start-1, []byte{1})
	var notDefined *MemoryRegionNotDefinedError
	if !errors.As(err, &notDefined) {
		t.Fatalf("error = %v, want MemoryRegionNotDefinedError", err)
	}
}

func TestFlashLoaderAddDataRejectsNonFlashRegion(t *testing.T) {
	ram := memmap.NewRegion("ram", memmap.Ram, 0x2000_0000, 0x1000)
	mm, err := memmap.New(ram)
	if err != nil {
		t.Fatalf("memmap.New() error = %v", err)
	}
	reg := newDriverRegistry(testAlgorithm())
	l := NewFlashLoader(mm, reg.factory)

	err = l.AddData(ram.Start, []byte{1})
	var notFlash *MemoryRegionNotFlashError
	if !errors.As(err, &notFlash) {
		t.Fatalf("error = %v, want MemoryRegionNotFlashError", err)
	}
}

func TestFlashLoaderCommitChipErasesOnlyFirstRegion(t *testing.T) {
	mm, regionA, regionB := testMemoryMap(t)
	reg := newDriverRegistry(testAlgorithm())
	l := NewFlashLoader(mm, reg.factory)
	l.ChipErase = true

	// Pre-existing content the chip-erase pass would wipe; set it on both
	// regions so any unwanted second chip erase is observable.
	if err := l.AddData(regionB.Start, []byte{0xAA}); err != nil {
		t.Fatalf("AddData(B) error = %v", err)
	}
	if err := l.AddData(regionA.Start, []byte{0xBB}); err != nil {
		t.Fatalf("AddData(A) error = %v", err)
	}

	if err := l.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	// regionA sorts first by start address, so it alone is asked for a chip
	// erase: it is programmed without any sector erase. regionB is passed
	// chipErase=false, and for its single one-byte page the weights pick a
	// sector erase.
	if n := reg.sims[regionA].EraseSectorCalls; n != 0 {
		t.Fatalf("region A EraseSectorCalls = %d, want 0 (chip erase)", n)
	}
	if n := reg.sims[regionB].EraseSectorCalls; n != 1 {
		t.Fatalf("region B EraseSectorCalls = %d, want 1 (sector erase)", n)
	}

	gotA, _ := reg.sims[regionA].ReadMemoryBlock8(regionA.Start, 1)
	if gotA[0] != 0xBB {
		t.Fatalf("region A content = %X, want BB", gotA[0])
	}
	gotB, _ := reg.sims[regionB].ReadMemoryBlock8(regionB.Start, 1)
	if gotB[0] != 0xAA {
		t.Fatalf("region B content = %X, want AA", gotB[0])
	}
}

func TestFlashLoaderCommitResetsForReuse(t *testing.T) {
	mm, regionA, _ := testMemoryMap(t)
	reg := newDriverRegistry(testAlgorithm())
	l := NewFlashLoader(mm, reg.factory)

	if err := l.AddData(regionA.Start, []byte{1}); err != nil {
		t.Fatalf("AddData() error = %v", err)
	}
	if err := l.Commit(); err != nil {
		t.Fatalf("first Commit() error = %v", err)
	}
	// A second commit with nothing queued must be a harmless no-op, proving
	// the builder map was actually cleared.
	if err := l.Commit(); err != nil {
		t.Fatalf("second Commit() error = %v", err)
	}
}
