// Package flashalgo describes the flash algorithm: a small, position
// independent routine preloaded into the target's RAM that the flash driver
// (pkg/flash) calls into to perform erase and program operations.
package flashalgo

import "fmt"

// Algorithm is the opaque code blob plus the symbolic addresses needed to
// call into it, per spec §3/§6.
type Algorithm struct {
	// Instructions is the algorithm's machine code, as whole 32-bit words
	// (ready for Target.WriteMemoryBlock32).
	Instructions []uint32 `json:"instructions"`

	LoadAddress uint32 `json:"load_address"` // where Instructions is copied in target RAM
	StaticBase  uint32 `json:"static_base"`  // r9 for position-independent code
	BeginStack  uint32 `json:"begin_stack"`  // initial SP while the algorithm runs

	// PageBuffers holds one or more target RAM addresses for staging page
	// data before calling ProgramPage. A single entry disables double
	// buffering; two or more enables it.
	PageBuffers []uint32 `json:"page_buffers"`

	PCInit        uint32 `json:"pc_init"`
	PCUninit      uint32 `json:"pc_uninit"`
	PCEraseAll    uint32 `json:"pc_erase_all,omitempty"`
	PCEraseSector uint32 `json:"pc_erase_sector"`
	PCProgramPage uint32 `json:"pc_program_page"`

	AnalyzerSupported bool     `json:"analyzer_supported,omitempty"`
	AnalyzerAddress   uint32   `json:"analyzer_address,omitempty"`
	AnalyzerCode      []uint32 `json:"analyzer_code,omitempty"`

	// MinProgramLength is the minimum aligned write granularity for
	// ProgramPhrase. Zero means "use the page size".
	MinProgramLength uint32 `json:"min_program_length,omitempty"`
}

// BeginData is the first (and, without double buffering, only) page buffer.
func (a Algorithm) BeginData() uint32 {
	if len(a.PageBuffers) == 0 {
		return 0
	}
	return a.PageBuffers[0]
}

// CodeEnd returns the address one past the last byte of the loaded code.
func (a Algorithm) CodeEnd() uint32 {
	return a.LoadAddress + uint32(len(a.Instructions))*4
}

// SupportsDoubleBuffering reports whether the algorithm exposes more than
// one page buffer.
func (a Algorithm) SupportsDoubleBuffering() bool {
	return len(a.PageBuffers) > 1
}

// Validate checks the invariant from spec §3: every entry PC must lie
// within the loaded code's address range.
func (a Algorithm) Validate() error {
	if len(a.Instructions) == 0 {
		return fmt.Errorf("flashalgo: algorithm has no instructions")
	}
	end := a.CodeEnd()
	check := func(name string, pc uint32) error {
		if pc < a.LoadAddress || pc >= end {
			return fmt.Errorf("flashalgo: entry point %s (0x%X) lies outside code range [0x%X,0x%X)", name, pc, a.LoadAddress, end)
		}
		return nil
	}
	if err := check("pc_init", a.PCInit); err != nil {
		return err
	}
	if err := check("pc_uninit", a.PCUninit); err != nil {
		return err
	}
	if err := check("pc_erase_sector", a.PCEraseSector); err != nil {
		return err
	}
	if err := check("pc_program_page", a.PCProgramPage); err != nil {
		return err
	}
	// pc_erase_all is optional: a zero value means erase-all is unsupported,
	// and the flash driver gates on IsEraseAllSupported rather than this
	// range check.
	if a.PCEraseAll != 0 {
		if err := check("pc_erase_all", a.PCEraseAll); err != nil {
			return err
		}
	}
	if len(a.PageBuffers) == 0 {
		return fmt.Errorf("flashalgo: algorithm must declare at least one page buffer")
	}
	return nil
}

// SupportsEraseAll reports whether the algorithm declares an EraseAll entry
// point.
func (a Algorithm) SupportsEraseAll() bool {
	return a.PCEraseAll != 0
}
