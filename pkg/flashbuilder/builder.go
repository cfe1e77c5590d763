package flashbuilder

import (
	"fmt"
	"sort"

	"github.com/coreflash/flashmgr/pkg/analyzer"
	"github.com/coreflash/flashmgr/pkg/flash"
	"github.com/coreflash/flashmgr/pkg/memmap"
)

type operation struct {
	address uint32
	data    []byte
}

func (o operation) end() uint32 { return o.address + uint32(len(o.data)) }

// Builder accumulates writes destined for a single flash region and, on
// Program, materializes them into pages, picks a chip-erase or
// sector-erase strategy, and drives driver through the chosen plan.
// Nothing touches the target until Program is called.
type Builder struct {
	flashStart uint32
	region     memmap.Region
	driver     *flash.Driver
	operations []operation
	pages      []*Page

	// EnableDoubleBuffering opts into the double-buffered program
	// routines when the bound driver's algorithm supports it. Off by
	// default: double buffering only pays for itself on links slow
	// enough that overlap hides real latency, which callers must judge.
	EnableDoubleBuffering bool

	// MaxErrors bounds how many page operation failures a single commit
	// tolerates before aborting.
	MaxErrors int

	// AssumeEstimateCorrect, when true, trusts an equal CRC32 from the
	// refining analyzer outright and marks the page same without a
	// confirming read. Off by default: the caller must opt into the
	// ~2^-32 collision risk explicitly.
	AssumeEstimateCorrect bool
}

// NewBuilder creates a builder for flashStart (the owning region's first
// address) bound to driver.
func NewBuilder(driver *flash.Driver, region memmap.Region) *Builder {
	return &Builder{
		flashStart: region.Start,
		region:     region,
		driver:     driver,
		MaxErrors:  10,
	}
}

// AddData queues data to be programmed starting at address. Programming
// does not start until Program is called.
func (b *Builder) AddData(address uint32, data []byte) error {
	if address < b.flashStart {
		return &AddressBeforeFlashStartError{Address: address}
	}
	if len(data) == 0 {
		return nil
	}

	op := operation{address: address, data: data}
	i := sort.Search(len(b.operations), func(i int) bool { return b.operations[i].address >= address })

	if i > 0 && b.operations[i-1].end() > op.address {
		return &DataOverlapError{Address: address}
	}
	if i < len(b.operations) && op.end() > b.operations[i].address {
		return &DataOverlapError{Address: address}
	}

	b.operations = append(b.operations, operation{})
	copy(b.operations[i+1:], b.operations[i:])
	b.operations[i] = op
	return nil
}

// Operations exposes the sorted, non-overlapping pending writes, used by
// tests asserting the sort/overlap property.
func (b *Builder) Operations() []struct {
	Address uint32
	Length  int
} {
	out := make([]struct {
		Address uint32
		Length  int
	}, len(b.operations))
	for i, op := range b.operations {
		out[i] = struct {
			Address uint32
			Length  int
		}{op.address, len(op.data)}
	}
	return out
}

// Program materializes the queued operations into pages, chooses a
// programming strategy, and executes it. chipErase requests a chip-erase
// plan (subject to algorithm support and the weight comparison in §4.4);
// smartFlash, when false, forces every page to be reprogrammed regardless
// of classification. Program always calls the driver's Cleanup, including
// on error paths, and resets the builder so it can be reused.
func (b *Builder) Program(chipErase, smartFlash bool) error {
	defer func() {
		b.operations = nil
		b.pages = nil
	}()
	defer b.driver.Cleanup()

	if len(b.operations) == 0 {
		return nil
	}

	if err := b.materializePages(); err != nil {
		return err
	}

	if !smartFlash {
		for _, p := range b.pages {
			p.SetErased(memmap.Unknown)
			p.SetSame(memmap.No)
		}
	}
	if !b.driver.IsEraseAllSupported {
		chipErase = false
	}

	chipEraseWeight := b.computeChipEraseWeight()
	pageEraseMinWeight := b.computePageEraseMinWeight()

	requestedChipErase := chipErase
	if !requestedChipErase {
		chipErase = b.driver.IsEraseAllSupported && chipEraseWeight < pageEraseMinWeight
	}

	if !chipErase {
		refined, err := b.refinePageEraseWeight()
		if err != nil {
			return err
		}
		if b.driver.IsEraseAllSupported && chipEraseWeight < refined {
			chipErase = true
		}
	}

	doubleBuffer := b.EnableDoubleBuffering && b.driver.IsDoubleBufferingSupported
	switch {
	case chipErase && doubleBuffer:
		return b.chipEraseProgramDoubleBuffer()
	case chipErase:
		return b.chipEraseProgram()
	case doubleBuffer:
		return b.pageEraseProgramDoubleBuffer()
	default:
		return b.pageEraseProgram()
	}
}

func (b *Builder) materializePages() error {
	first := b.operations[0]
	info, ok := b.driver.GetPageInfo(first.address)
	if !ok {
		return &InvalidFlashAddressError{Address: first.address}
	}
	current := newPage(first.address-(first.address%info.Size), info.Size, info.EraseWeight, info.ProgramWeight)
	b.pages = append(b.pages, current)

	for _, op := range b.operations {
		pos := 0
		for pos < len(op.data) {
			addr := op.address + uint32(pos)
			if addr >= current.baseAddr+current.size {
				info, ok = b.driver.GetPageInfo(addr)
				if !ok {
					return &InvalidFlashAddressError{Address: addr}
				}
				current = newPage(addr-(addr%info.Size), info.Size, info.EraseWeight, info.ProgramWeight)
				b.pages = append(b.pages, current)
			}

			pageDataEnd := current.baseAddr + uint32(len(current.data))
			if addr != pageDataEnd {
				gap, err := b.driver.ReadMemoryBlock8(pageDataEnd, int(addr-pageDataEnd))
				if err != nil {
					return fmt.Errorf("flashbuilder: gap-fill read at 0x%X: %w", pageDataEnd, err)
				}
				current.extend(gap)
			}

			spaceLeftInPage := int(info.Size) - len(current.data)
			spaceLeftInOp := len(op.data) - pos
			amount := spaceLeftInPage
			if spaceLeftInOp < amount {
				amount = spaceLeftInOp
			}
			current.extend(op.data[pos : pos+amount])
			pos += amount
		}
	}
	return nil
}

func (b *Builder) computeChipEraseWeight() float64 {
	weight := b.driver.GetFlashInfo().EraseWeight
	for _, p := range b.pages {
		if p.Erased() == memmap.Unknown {
			if b.region.IsErased(p.Data()) {
				p.SetErased(memmap.Yes)
			} else {
				p.SetErased(memmap.No)
			}
		}
		if p.Erased() != memmap.Yes {
			weight += p.ProgramWeight()
		}
	}
	return weight
}

func (b *Builder) computePageEraseMinWeight() float64 {
	var weight float64
	for _, p := range b.pages {
		weight += p.VerifyWeight()
	}
	return weight
}

// refinePageEraseWeight tightens the page-erase estimate using the CRC32
// analyzer when the algorithm supports it, else the partial-read filter.
func (b *Builder) refinePageEraseWeight() (float64, error) {
	pagesIface := make([]analyzer.Page, len(b.pages))
	for i, p := range b.pages {
		pagesIface[i] = p
	}

	var err error
	if b.driver.GetFlashInfo().CRCSupported {
		a := analyzer.CRC32Analyzer{AssumeEstimateCorrect: b.AssumeEstimateCorrect}
		err = a.Run(pagesIface, b.driver, b.region.ErasedByte)
	} else {
		a := analyzer.PartialReadAnalyzer{}
		err = a.Run(pagesIface, b.driver)
	}
	if err != nil {
		return 0, err
	}

	var weight float64
	for _, p := range b.pages {
		switch p.Same() {
		case memmap.No:
			weight += p.EraseProgramWeight()
		case memmap.Unknown:
			weight += p.VerifyWeight()
		}
	}
	return weight, nil
}
