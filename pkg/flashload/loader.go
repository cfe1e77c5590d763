// Package flashload implements the FlashLoader (C7): the multi-region
// coordinator that routes an address/data pair across flash region
// boundaries, keeps one FlashBuilder per region, and sequences commits so
// a requested chip erase is passed to the first region only.
package flashload

import (
	"fmt"
	"sort"

	"github.com/coreflash/flashmgr/pkg/flash"
	"github.com/coreflash/flashmgr/pkg/flashbuilder"
	"github.com/coreflash/flashmgr/pkg/memmap"
)

// DriverFactory returns the flash.Driver bound to region, creating it lazily
// on first use. FlashLoader calls it at most once per region between resets.
type DriverFactory func(region memmap.Region) (*flash.Driver, error)

// FlashLoader walks a target's memory map, routing add_data calls to the
// FlashBuilder that owns each address's flash region, and sequences Commit
// so a requested chip erase is passed only to the first region in a
// multi-region commit.
type FlashLoader struct {
	memMap    *memmap.MemoryMap
	driverFor DriverFactory
	builders  map[memmap.Region]*flashbuilder.Builder
	order     []memmap.Region

	// ChipErase requests a chip-erase plan for the first region committed;
	// every subsequent region in the same commit is passed chipErase=false
	// regardless of this flag, and its builder then picks chip or sector
	// erase from its own weight comparison.
	ChipErase bool

	// SmartFlash, when false, forces every page in every region to be
	// reprogrammed regardless of classification. Defaults to true.
	SmartFlash bool
}

// NewFlashLoader creates a loader over memMap. driverFor supplies the
// flash.Driver for a region the first time data lands in it.
func NewFlashLoader(memMap *memmap.MemoryMap, driverFor DriverFactory) *FlashLoader {
	return &FlashLoader{
		memMap:     memMap,
		driverFor:  driverFor,
		builders:   make(map[memmap.Region]*flashbuilder.Builder),
		SmartFlash: true,
	}
}

// AddData queues data to be programmed starting at address, splitting it
// across region boundaries as needed. It fails with MemoryRegionNotDefined
// if any byte falls outside the memory map, or MemoryRegionNotFlash if it
// falls in a non-flash region.
func (l *FlashLoader) AddData(address uint32, data []byte) error {
	remaining := len(data)
	offset := 0

	for remaining > 0 {
		region, ok := l.memMap.GetRegionForAddress(address)
		if !ok {
			return &MemoryRegionNotDefinedError{Address: address}
		}
		if region.Kind != memmap.Flash {
			return &MemoryRegionNotFlashError{Address: address}
		}

		builder, err := l.builderFor(region)
		if err != nil {
			return err
		}

		programLength := remaining
		if avail := int(region.End() - address); avail < programLength {
			programLength = avail
		}

		if err := builder.AddData(address, data[offset:offset+programLength]); err != nil {
			return err
		}

		remaining -= programLength
		address += uint32(programLength)
		offset += programLength
	}
	return nil
}

func (l *FlashLoader) builderFor(region memmap.Region) (*flashbuilder.Builder, error) {
	if b, ok := l.builders[region]; ok {
		return b, nil
	}
	driver, err := l.driverFor(region)
	if err != nil {
		return nil, fmt.Errorf("flashload: no driver for region %q: %w", region.Name, err)
	}
	b := flashbuilder.NewBuilder(driver, region)
	l.builders[region] = b
	l.order = append(l.order, region)
	return b, nil
}

// Commit programs every region with queued data, ascending by flash start
// address, and resets the loader so it can be reused for another add/commit
// cycle. At most one region's program call requests a chip erase, even when
// ChipErase is set and data spans several regions.
func (l *FlashLoader) Commit() error {
	order := append([]memmap.Region(nil), l.order...)
	sort.Slice(order, func(i, j int) bool { return order[i].Start < order[j].Start })

	didChipErase := false
	for _, region := range order {
		builder := l.builders[region]
		chipErase := l.ChipErase && !didChipErase
		if err := builder.Program(chipErase, l.SmartFlash); err != nil {
			l.reset()
			return err
		}
		didChipErase = true
	}

	l.reset()
	return nil
}

func (l *FlashLoader) reset() {
	l.builders = make(map[memmap.Region]*flashbuilder.Builder)
	l.order = nil
}
