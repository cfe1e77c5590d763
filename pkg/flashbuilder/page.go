// Package flashbuilder converts address-sorted write operations into
// page-sized programming units, decides between chip-erase and sector-erase
// strategies, and drives a flash.Driver through the chosen plan.
package flashbuilder

import (
	"github.com/coreflash/flashmgr/pkg/memmap"
)

// DataTransferBytesPerSecond estimates host-to-target transfer throughput
// for page verify/program time estimates.
const DataTransferBytesPerSecond = 40_000

// PageEstimateSize is a nominal page size in bytes. Nothing in this package
// reads it; the builder always uses the driver's per-page size.
const PageEstimateSize = 32

// PageReadWeight is a named, documented constant for callers that want to
// override the verify-step weight; the weight formulas below use actual
// page size over DataTransferBytesPerSecond instead.
const PageReadWeight = 0.3

// Page is one programmable unit materialized by the builder: a page-aligned
// base address, a fixed size, accumulated host data (at most Size bytes, a
// prefix if the image doesn't fill the page), and two tri-state
// classification flags: erased, set by the builder from the page data, and
// same, set by the analyzer and the builder's confirming read.
type Page struct {
	baseAddr      uint32
	size          uint32
	data          []byte
	eraseWeight   float64
	programWeight float64

	erased memmap.Tristate
	same   memmap.Tristate
}

func newPage(baseAddr, size uint32, eraseWeight, programWeight float64) *Page {
	return &Page{
		baseAddr:      baseAddr,
		size:          size,
		eraseWeight:   eraseWeight,
		programWeight: programWeight,
	}
}

func (p *Page) extend(data []byte) { p.data = append(p.data, data...) }

// BaseAddr, Size, Data, Same, and SetSame implement analyzer.Page.
func (p *Page) BaseAddr() uint32              { return p.baseAddr }
func (p *Page) Size() uint32                  { return p.size }
func (p *Page) Data() []byte                  { return p.data }
func (p *Page) Same() memmap.Tristate         { return p.same }
func (p *Page) SetSame(s memmap.Tristate)     { p.same = s }
func (p *Page) Erased() memmap.Tristate       { return p.erased }
func (p *Page) SetErased(s memmap.Tristate)   { p.erased = s }

// VerifyWeight is the time estimate for reading and comparing the page.
func (p *Page) VerifyWeight() float64 {
	return float64(p.size) / DataTransferBytesPerSecond
}

// ProgramWeight is the time estimate for programming the page, including
// data transfer.
func (p *Page) ProgramWeight() float64 {
	return p.programWeight + float64(len(p.data))/DataTransferBytesPerSecond
}

// EraseProgramWeight is the time estimate for erasing then programming the
// page, including data transfer.
func (p *Page) EraseProgramWeight() float64 {
	return p.eraseWeight + p.ProgramWeight()
}
