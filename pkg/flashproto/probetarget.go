package flashproto

import "github.com/coreflash/flashmgr/pkg/target"

// ProbeTarget adapts a Session to pkg/target.Target, so pkg/flash.Driver can
// drive a real debug probe the same way pkg/target.SimTarget lets it drive a
// simulator. It lives here rather than in pkg/target to avoid an import
// cycle: Session already depends on pkg/target for target.State.
type ProbeTarget struct {
	session *Session
}

// NewProbeTarget wraps an already-open Session.
func NewProbeTarget(session *Session) *ProbeTarget {
	return &ProbeTarget{session: session}
}

func (p *ProbeTarget) Halt() error  { return p.session.Halt() }
func (p *ProbeTarget) Resume() error { return p.session.Resume() }

func (p *ProbeTarget) SetTargetState(tag string) error { return p.session.SetState(tag) }
func (p *ProbeTarget) GetState() (target.State, error) { return p.session.GetState() }

func (p *ProbeTarget) ReadMemoryBlock8(addr uint32, length int) ([]byte, error) {
	return p.session.ReadMem8(addr, length)
}

func (p *ProbeTarget) WriteMemoryBlock8(addr uint32, data []byte) error {
	return p.session.WriteMem8(addr, data)
}

func (p *ProbeTarget) WriteMemoryBlock32(addr uint32, words []uint32) error {
	return p.session.WriteMem32(addr, words)
}

func (p *ProbeTarget) ReadMemoryBlock32(addr uint32, count int) ([]uint32, error) {
	return p.session.ReadMem32(addr, count)
}

func (p *ProbeTarget) ReadCoreRegister(name target.RegisterName) (uint32, error) {
	return p.session.ReadReg(string(name))
}

func (p *ProbeTarget) WriteCoreRegistersRaw(regs []target.RegisterValue) error {
	m := make(map[string]uint32, len(regs))
	for _, r := range regs {
		m[string(r.Name)] = r.Value
	}
	return p.session.WriteRegs(m)
}

var _ target.Target = (*ProbeTarget)(nil)
