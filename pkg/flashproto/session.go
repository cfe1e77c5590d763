// Package flashproto implements the wire protocol between the host and a
// debug probe: a synchronization-byte-framed, LRC-checksummed packet format
// carrying halt/resume, memory, and register-call commands.
package flashproto

import (
	"encoding/binary"
	"fmt"

	"github.com/coreflash/flashmgr/pkg/connection"
	"github.com/coreflash/flashmgr/pkg/target"
)

// Sync bytes that open a request and a response packet.
const (
	RequestSyncByte  byte = 0x55
	ResponseSyncByte byte = 0xAA
)

// Command codes.
const (
	CmdHalt       byte = 0x01
	CmdResume     byte = 0x02
	CmdGetState   byte = 0x03
	CmdSetState   byte = 0x04
	CmdReadMem8   byte = 0x10
	CmdWriteMem8  byte = 0x11
	CmdReadMem32  byte = 0x12
	CmdWriteMem32 byte = 0x13
	CmdReadReg    byte = 0x20
	CmdWriteRegs  byte = 0x21
)

// register IDs used in the address field of CmdReadReg/CmdWriteRegs packets.
var registerIDs = map[string]uint32{
	"r0": 0, "r1": 1, "r2": 2, "r3": 3, "r9": 9,
	"sp": 13, "lr": 14, "pc": 15, "ipsr": 16,
}

func registerID(name string) (uint32, error) {
	id, ok := registerIDs[name]
	if !ok {
		return 0, fmt.Errorf("flashproto: unknown register %q", name)
	}
	return id, nil
}

// Session speaks the framed request/response protocol over a
// pkg/connection.Connection. It is the transport layer beneath
// pkg/target.ProbeTarget.
//
// Request packet: [0x55][CMD][ADDR(4, BE)][LEN(2, BE)][...DATA...][LRC]
// Response packet: [0xAA][STATUS0][STATUS1][...DATA...][LRC]
// LRC is the XOR of every byte in the packet preceding it, sync byte
// included, the same checksum the debug port this protocol descends from
// uses. The response LRC is read but not checked.
type Session struct {
	conn    connection.Connection
	status0 byte
	status1 byte
}

// NewSession wraps an already-open connection.
func NewSession(conn connection.Connection) *Session {
	return &Session{conn: conn}
}

func (s *Session) transfer(command byte, address uint32, data []byte, readLength uint16) ([]byte, error) {
	s.status0, s.status1 = 0, 0

	length := readLength
	if len(data) > 0 {
		length = uint16(len(data))
	}

	header := make([]byte, 7)
	header[0] = command
	binary.BigEndian.PutUint32(header[1:5], address)
	binary.BigEndian.PutUint16(header[5:7], length)

	lrc := RequestSyncByte
	for _, b := range header {
		lrc ^= b
	}
	for _, b := range data {
		lrc ^= b
	}

	packet := make([]byte, 0, 1+len(header)+len(data)+1)
	packet = append(packet, RequestSyncByte)
	packet = append(packet, header...)
	packet = append(packet, data...)
	packet = append(packet, lrc)

	written, err := s.conn.Write(packet)
	if err != nil {
		return nil, fmt.Errorf("flashproto: write packet: %w", err)
	}
	if written != len(packet) {
		return nil, fmt.Errorf("flashproto: incomplete write: wrote %d bytes, expected %d", written, len(packet))
	}

	for {
		b, err := s.conn.Read(1)
		if err != nil {
			return nil, fmt.Errorf("flashproto: read sync byte: %w", err)
		}
		if b[0] == ResponseSyncByte {
			break
		}
	}

	statusBytes, err := s.conn.Read(2)
	if err != nil {
		return nil, fmt.Errorf("flashproto: read status bytes: %w", err)
	}
	s.status0, s.status1 = statusBytes[0], statusBytes[1]

	var readBytes []byte
	if readLength > 0 {
		readBytes, err = s.conn.Read(int(readLength))
		if err != nil {
			return nil, fmt.Errorf("flashproto: read data: %w", err)
		}
	}

	if _, err := s.conn.Read(1); err != nil {
		return nil, fmt.Errorf("flashproto: read lrc: %w", err)
	}

	if s.status0 != 0 {
		return readBytes, fmt.Errorf("flashproto: command 0x%X failed, status0=0x%X status1=0x%X", command, s.status0, s.status1)
	}
	return readBytes, nil
}

func (s *Session) Halt() error {
	_, err := s.transfer(CmdHalt, 0, nil, 0)
	return err
}

func (s *Session) Resume() error {
	_, err := s.transfer(CmdResume, 0, nil, 0)
	return err
}

// SetState puts the target in the named mode by encoding tag's first byte
// as the address field; "" clears it.
func (s *Session) SetState(tag string) error {
	var code uint32
	if len(tag) > 0 {
		code = uint32(tag[0])
	}
	_, err := s.transfer(CmdSetState, code, nil, 0)
	return err
}

// GetState reports the target's run state, encoded in status1 by the probe
// (0 = unknown, 1 = running, 2 = halted).
func (s *Session) GetState() (target.State, error) {
	_, err := s.transfer(CmdGetState, 0, nil, 0)
	if err != nil {
		return target.Unknown, err
	}
	switch s.status1 {
	case 1:
		return target.Running, nil
	case 2:
		return target.Halted, nil
	default:
		return target.Unknown, nil
	}
}

func (s *Session) ReadMem8(addr uint32, length int) ([]byte, error) {
	return s.transfer(CmdReadMem8, addr, nil, uint16(length))
}

func (s *Session) WriteMem8(addr uint32, data []byte) error {
	_, err := s.transfer(CmdWriteMem8, addr, data, 0)
	return err
}

func (s *Session) WriteMem32(addr uint32, words []uint32) error {
	data := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	_, err := s.transfer(CmdWriteMem32, addr, data, 0)
	return err
}

func (s *Session) ReadMem32(addr uint32, count int) ([]uint32, error) {
	raw, err := s.transfer(CmdReadMem32, addr, nil, uint16(count*4))
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return out, nil
}

func (s *Session) ReadReg(name string) (uint32, error) {
	id, err := registerID(name)
	if err != nil {
		return 0, err
	}
	raw, err := s.transfer(CmdReadReg, id, nil, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// WriteRegs sets several registers in one packet: each entry is encoded as
// a register ID byte followed by its 4-byte little-endian value.
func (s *Session) WriteRegs(regs map[string]uint32) error {
	data := make([]byte, 0, len(regs)*5)
	for name, value := range regs {
		id, err := registerID(name)
		if err != nil {
			return err
		}
		entry := make([]byte, 5)
		entry[0] = byte(id)
		binary.LittleEndian.PutUint32(entry[1:], value)
		data = append(data, entry...)
	}
	_, err := s.transfer(CmdWriteRegs, 0, data, 0)
	return err
}
