// Package flash implements the flash driver (C4): the operation state
// machine that invokes a flash algorithm's entry points on the target via
// the register-call protocol, and waits for each call to hit its return
// breakpoint.
package flash

import (
	"fmt"

	"github.com/coreflash/flashmgr/pkg/flashalgo"
	"github.com/coreflash/flashmgr/pkg/memmap"
	"github.com/coreflash/flashmgr/pkg/target"
)

const (
	DefaultPageProgramWeight = 0.130
	DefaultPageEraseWeight   = 0.048
	DefaultChipEraseWeight   = 0.174
)

// PageInfo describes the page containing an address.
type PageInfo struct {
	BaseAddr      uint32
	Size          uint32
	EraseWeight   float64
	ProgramWeight float64
}

// FlashInfo is a per-region summary used by the planner.
type FlashInfo struct {
	RomStart      uint32
	EraseWeight   float64
	CRCSupported  bool
}

// CallArgs is the fixed-capacity argument record for the register-call
// protocol: up to four optional argument words, modeled as pointers rather
// than a variadic list so "not supplied" is representable distinctly from
// zero.
type CallArgs [4]*uint32

func arg(v uint32) *uint32 { return &v }

// Driver drives one flash algorithm bound to one memory region through a
// Target. It is not safe to use concurrently; the spec assumes a single
// host process driving a single target.
type Driver struct {
	t      target.Target
	region memmap.Region
	algo   flashalgo.Algorithm

	IsEraseAllSupported         bool
	IsDoubleBufferingSupported  bool

	didPrepareTarget bool
	activeOperation  Operation
}

// NewDriver binds algo to region over t.
func NewDriver(t target.Target, region memmap.Region, algo flashalgo.Algorithm) *Driver {
	return &Driver{
		t:                          t,
		region:                     region,
		algo:                      algo,
		IsEraseAllSupported:        algo.SupportsEraseAll(),
		IsDoubleBufferingSupported: algo.SupportsDoubleBuffering(),
		activeOperation:            None,
	}
}

// GetPageInfo returns the page covering address, or false if address isn't
// in this driver's region.
func (d *Driver) GetPageInfo(address uint32) (PageInfo, bool) {
	if !d.region.ContainsAddress(address) {
		return PageInfo{}, false
	}
	base := address - (address % d.region.BlockSize)
	return PageInfo{
		BaseAddr:      base,
		Size:          d.region.BlockSize,
		EraseWeight:   DefaultPageEraseWeight,
		ProgramWeight: DefaultPageProgramWeight,
	}, true
}

// GetFlashInfo summarizes this driver's region for the planner.
func (d *Driver) GetFlashInfo() FlashInfo {
	return FlashInfo{
		RomStart:     d.region.Start,
		EraseWeight:  DefaultChipEraseWeight,
		CRCSupported: d.algo.AnalyzerSupported,
	}
}

// ActiveOperation reports the current state-machine state.
func (d *Driver) ActiveOperation() Operation { return d.activeOperation }

// Init halts the target, loads the algorithm into RAM on first use, and
// invokes the algorithm's Init entry. It must be paired with Uninit (or
// Cleanup) on every exit path, including error paths.
func (d *Driver) Init(op Operation) error {
	info := d.GetFlashInfo()
	const clock = 0

	if err := d.t.Halt(); err != nil {
		return fmt.Errorf("flash: halt before init: %w", err)
	}

	if !d.didPrepareTarget {
		if err := d.t.SetTargetState("PROGRAM"); err != nil {
			return fmt.Errorf("flash: set target state: %w", err)
		}
		if err := d.t.WriteMemoryBlock32(d.algo.LoadAddress, d.algo.Instructions); err != nil {
			return fmt.Errorf("flash: load algorithm: %w", err)
		}
		d.didPrepareTarget = true
	}

	result, err := d.callFunctionAndWait(d.algo.PCInit, CallArgs{arg(info.RomStart), arg(clock), arg(uint32(op)), nil}, true)
	if err != nil {
		return err
	}
	if result != 0 {
		return &InitError{Code: result}
	}
	d.activeOperation = op
	return nil
}

// Uninit invokes the algorithm's Uninit entry if an operation is active,
// and resets the state machine to None. Safe to call when already None.
func (d *Driver) Uninit() error {
	if d.activeOperation == None {
		return nil
	}
	op := d.activeOperation
	result, err := d.callFunctionAndWait(d.algo.PCUninit, CallArgs{arg(uint32(op)), nil, nil, nil}, false)
	if err != nil {
		return err
	}
	d.activeOperation = None
	if result != 0 {
		return &UninitError{Code: result}
	}
	return nil
}

// Cleanup is the idempotent joint teardown: Uninit, then discard any cached
// target-preparation state so the next Init reloads the algorithm.
func (d *Driver) Cleanup() error {
	err := d.Uninit()
	d.didPrepareTarget = false
	return err
}

// EraseAll erases the entire flash region. Must be called from the Erase
// state; gated by IsEraseAllSupported.
func (d *Driver) EraseAll() error {
	if d.activeOperation != Erase {
		return &WrongOperationOngoingError{Current: d.activeOperation}
	}
	if !d.IsEraseAllSupported {
		return &EraseAllNotSupportedError{}
	}
	result, err := d.callFunctionAndWait(d.algo.PCEraseAll, CallArgs{}, false)
	if err != nil {
		return err
	}
	if result != 0 {
		return &EraseAllError{Code: result}
	}
	return nil
}

// ErasePage erases the sector containing address. Must be called from the
// Erase state.
func (d *Driver) ErasePage(address uint32) error {
	if d.activeOperation != Erase {
		return &WrongOperationOngoingError{Current: d.activeOperation}
	}
	result, err := d.callFunctionAndWait(d.algo.PCEraseSector, CallArgs{arg(address), nil, nil, nil}, false)
	if err != nil {
		return err
	}
	if result != 0 {
		return &ErasePageError{Code: result, Address: address}
	}
	return nil
}

// ProgramPage writes data to the algorithm's page buffer and invokes
// ProgramPage. Must be called from the Program state.
func (d *Driver) ProgramPage(address uint32, data []byte) error {
	if d.activeOperation != Program {
		return &WrongOperationOngoingError{Current: d.activeOperation}
	}
	bufAddr := d.algo.BeginData()
	if err := d.t.WriteMemoryBlock8(bufAddr, data); err != nil {
		return fmt.Errorf("flash: stage page buffer: %w", err)
	}
	result, err := d.callFunctionAndWait(d.algo.PCProgramPage, CallArgs{arg(address), arg(uint32(len(data))), arg(bufAddr), nil}, false)
	if err != nil {
		return err
	}
	if result != 0 {
		return &ProgramPageError{Code: result, Address: address}
	}
	return nil
}

// ProgramPhrase writes a sub-page-sized, alignment-constrained chunk
// directly, used by algorithms that declare a MinProgramLength smaller than
// a full page. Must be called from the Program state.
func (d *Driver) ProgramPhrase(address uint32, data []byte) error {
	if d.activeOperation != Program {
		return &WrongOperationOngoingError{Current: d.activeOperation}
	}
	minLen := d.algo.MinProgramLength
	if minLen == 0 {
		if pi, ok := d.GetPageInfo(address); ok {
			minLen = pi.Size
		}
	}
	if minLen != 0 {
		if address%minLen != 0 {
			return fmt.Errorf("flash: program-phrase(0x%X): unaligned address", address)
		}
		if uint32(len(data))%minLen != 0 {
			return fmt.Errorf("flash: program-phrase(0x%X): unaligned length %d", address, len(data))
		}
	}
	return d.ProgramPage(address, data)
}

// LoadPageBuffer stages data into the numbered double-buffer slot, for use
// with StartProgramPageWithBuffer. It checks only that bufferNumber indexes
// one of the algorithm's page buffers.
func (d *Driver) LoadPageBuffer(bufferNumber int, data []byte) error {
	if bufferNumber < 0 || bufferNumber >= len(d.algo.PageBuffers) {
		return fmt.Errorf("flash: invalid page buffer number %d", bufferNumber)
	}
	return d.t.WriteMemoryBlock8(d.algo.PageBuffers[bufferNumber], data)
}

// StartProgramPageWithBuffer kicks off programming from the numbered buffer
// without waiting for completion; the caller is responsible for a later
// WaitForCompletion call before reusing the buffer.
func (d *Driver) StartProgramPageWithBuffer(bufferNumber int, address uint32, length int) error {
	if d.activeOperation != Program {
		return &WrongOperationOngoingError{Current: d.activeOperation}
	}
	if bufferNumber < 0 || bufferNumber >= len(d.algo.PageBuffers) {
		return fmt.Errorf("flash: invalid page buffer number %d", bufferNumber)
	}
	return d.callFunction(d.algo.PCProgramPage, CallArgs{arg(address), arg(uint32(length)), arg(d.algo.PageBuffers[bufferNumber]), nil}, false)
}

// WaitForCompletion polls the target until it is no longer running and
// returns the algorithm's return code (r0). Exposed for double-buffered
// pipelines that call StartProgramPageWithBuffer directly.
func (d *Driver) WaitForCompletion() (uint32, error) {
	return d.waitForCompletion()
}

func (d *Driver) callFunction(pc uint32, args CallArgs, initRegs bool) error {
	regs := make([]target.RegisterValue, 0, 8)
	regs = append(regs, target.RegisterValue{Name: target.PC, Value: pc})
	if args[0] != nil {
		regs = append(regs, target.RegisterValue{Name: target.R0, Value: *args[0]})
	}
	if args[1] != nil {
		regs = append(regs, target.RegisterValue{Name: target.R1, Value: *args[1]})
	}
	if args[2] != nil {
		regs = append(regs, target.RegisterValue{Name: target.R2, Value: *args[2]})
	}
	if args[3] != nil {
		regs = append(regs, target.RegisterValue{Name: target.R3, Value: *args[3]})
	}
	if initRegs {
		regs = append(regs,
			target.RegisterValue{Name: target.R9, Value: d.algo.StaticBase},
			target.RegisterValue{Name: target.SP, Value: d.algo.BeginStack},
		)
	}
	regs = append(regs, target.RegisterValue{Name: target.LR, Value: d.algo.LoadAddress | 1})

	if err := d.t.WriteCoreRegistersRaw(regs); err != nil {
		return fmt.Errorf("flash: write core registers: %w", err)
	}
	return d.t.Resume()
}

func (d *Driver) waitForCompletion() (uint32, error) {
	for {
		state, err := d.t.GetState()
		if err != nil {
			return 0, fmt.Errorf("flash: poll target state: %w", err)
		}
		if state != target.Running {
			break
		}
	}
	return d.t.ReadCoreRegister(target.R0)
}

func (d *Driver) callFunctionAndWait(pc uint32, args CallArgs, initRegs bool) (uint32, error) {
	if err := d.callFunction(pc, args, initRegs); err != nil {
		return 0, err
	}
	return d.waitForCompletion()
}
