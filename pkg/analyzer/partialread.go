package analyzer

import (
	"bytes"
	"fmt"

	"github.com/coreflash/flashmgr/pkg/memmap"
)

// PartialReadEstimateSize is the maximum prefix length read from the target
// when screening a page; cheap enough to run on every unknown page, but
// only ever produces a negative ("definitely different") classification.
const PartialReadEstimateSize = 32

// PartialReadAnalyzer is a fast negative filter: it reads a short prefix of
// each page from the target and flags a page as definitely different the
// moment the prefix disagrees with the host data. It never classifies a
// page as same, since a matching prefix says nothing about the rest of the
// page.
type PartialReadAnalyzer struct{}

// Run classifies every page in pages whose Same flag is Unknown.
func (PartialReadAnalyzer) Run(pages []Page, t Target) error {
	for _, p := range pages {
		if p.Same() != memmap.Unknown {
			continue
		}
		n := PartialReadEstimateSize
		if len(p.Data()) < n {
			n = len(p.Data())
		}
		if n == 0 {
			continue
		}
		got, err := t.ReadMemoryBlock8(p.BaseAddr(), n)
		if err != nil {
			return fmt.Errorf("analyzer: partial read page 0x%X: %w", p.BaseAddr(), err)
		}
		if !bytes.Equal(got, p.Data()[:n]) {
			p.SetSame(memmap.No)
		}
	}
	return nil
}
