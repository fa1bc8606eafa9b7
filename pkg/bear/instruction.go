// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import "fmt"

// Bank selects one of the two register files of a BEAR.
type Bank uint8

// Register banks
const (
	BankStatus Bank = iota // volatile, read/write while running
	BankConfig             // persisted by SaveConfig
)

func (b Bank) String() string {
	switch b {
	case BankStatus:
		return "status"
	case BankConfig:
		return "config"
	default:
		return fmt.Sprintf("bank(%d)", uint8(b))
	}
}

func (b Bank) valid() bool {
	return b == BankStatus || b == BankConfig
}

func (b Bank) readCode() uint8 {
	if b == BankConfig {
		return InstReadCfg
	}
	return InstReadStat
}

func (b Bank) writeCode() uint8 {
	if b == BankConfig {
		return InstWriteCfg
	}
	return InstWriteStat
}

// Address locates a register in device memory.
type Address struct {
	Bank Bank
	Reg  uint8
}

// StatusAddr returns the address of a status register.
func StatusAddr(reg uint8) Address {
	return Address{Bank: BankStatus, Reg: reg}
}

// ConfigAddr returns the address of a config register.
func ConfigAddr(reg uint8) Address {
	return Address{Bank: BankConfig, Reg: reg}
}

func (a Address) String() string {
	return fmt.Sprintf("%s[0x%02X]", a.Bank, a.Reg)
}

// Instruction is a request a device can execute. The set is closed: Read,
// Write and SaveConfig are the only implementations.
type Instruction interface {
	// Code returns the instruction byte.
	Code() uint8
	// ParamLen returns the number of parameter bytes on the wire.
	ParamLen() int
	// ResponseLen returns the number of data bytes a successful response carries.
	ResponseLen() int
	// AppendParams appends the wire parameters to dst.
	AppendParams(dst []byte) []byte
	// Validate rejects arguments that must never reach the wire.
	Validate() error

	instruction()
}

// Read queries Length bytes starting at Address. The device answers with 4
// bytes per register, so Length must be a positive multiple of RegisterSize
// and one address byte is sent per register.
type Read struct {
	Address Address
	Length  int
}

func (r Read) Code() uint8 {
	return r.Address.Bank.readCode()
}

func (r Read) registers() int {
	return r.Length / RegisterSize
}

func (r Read) ParamLen() int {
	return r.registers()
}

func (r Read) ResponseLen() int {
	return r.Length
}

func (r Read) AppendParams(dst []byte) []byte {
	for i := 0; i < r.registers(); i++ {
		dst = append(dst, r.Address.Reg+uint8(i))
	}
	return dst
}

func (r Read) Validate() error {
	if !r.Address.Bank.valid() {
		return invalidArgument("unknown bank %d", r.Address.Bank)
	}
	if r.Length <= 0 {
		return invalidArgument("read length %d must be positive", r.Length)
	}
	if r.Length%RegisterSize != 0 {
		return invalidArgument("read length %d is not a multiple of %d", r.Length, RegisterSize)
	}
	if err := checkSpan(r.Address, r.registers()); err != nil {
		return err
	}
	return checkCapacity(HeaderSize+minLength+r.Length, MaxPacketSize)
}

func (Read) instruction() {}

// Write stores Data starting at Address. Each register is sent as its
// address followed by its 4 data bytes.
type Write struct {
	Address Address
	Data    []byte
}

func (w Write) Code() uint8 {
	return w.Address.Bank.writeCode()
}

func (w Write) registers() int {
	return len(w.Data) / RegisterSize
}

func (w Write) ParamLen() int {
	return w.registers() * (1 + RegisterSize)
}

func (w Write) ResponseLen() int {
	return 0
}

func (w Write) AppendParams(dst []byte) []byte {
	for i := 0; i < w.registers(); i++ {
		dst = append(dst, w.Address.Reg+uint8(i))
		dst = append(dst, w.Data[i*RegisterSize:(i+1)*RegisterSize]...)
	}
	return dst
}

func (w Write) Validate() error {
	if !w.Address.Bank.valid() {
		return invalidArgument("unknown bank %d", w.Address.Bank)
	}
	if len(w.Data) == 0 {
		return invalidArgument("write data is empty")
	}
	if len(w.Data)%RegisterSize != 0 {
		return invalidArgument("write length %d is not a multiple of %d", len(w.Data), RegisterSize)
	}
	if err := checkSpan(w.Address, w.registers()); err != nil {
		return err
	}
	return checkCapacity(HeaderSize+minLength+w.ParamLen(), MaxPacketSize)
}

func (Write) instruction() {}

// SaveConfig persists the config bank to flash.
type SaveConfig struct{}

func (SaveConfig) Code() uint8                    { return InstSaveCfg }
func (SaveConfig) ParamLen() int                  { return 0 }
func (SaveConfig) ResponseLen() int               { return 0 }
func (SaveConfig) AppendParams(dst []byte) []byte { return dst }
func (SaveConfig) Validate() error                { return nil }
func (SaveConfig) instruction()                   {}

func checkSpan(a Address, registers int) error {
	if last := int(a.Reg) + registers - 1; last > 0xFF {
		return invalidArgument("register span %s+%d runs past 0xFF", a, registers)
	}
	return nil
}

// EncodeRequest writes the request packet for inst addressed to id into buf
// and returns its size. It never allocates; arguments are validated before
// any byte is written.
func EncodeRequest(buf []byte, id uint8, inst Instruction) (int, error) {
	if inst == nil {
		return 0, invalidArgument("nil instruction")
	}
	if err := inst.Validate(); err != nil {
		return 0, err
	}
	if err := checkCapacity(HeaderSize+minLength+inst.ParamLen(), len(buf)); err != nil {
		return 0, err
	}
	params := inst.AppendParams(buf[offParams:offParams])
	return Packet{ID: id, Code: inst.Code(), Params: params}.MarshalTo(buf)
}

// AppendRequest appends the request packet for inst addressed to id to dst.
func AppendRequest(dst []byte, id uint8, inst Instruction) ([]byte, error) {
	var frame [MaxPacketSize]byte
	n, err := EncodeRequest(frame[:], id, inst)
	if err != nil {
		return dst, err
	}
	return append(dst, frame[:n]...), nil
}
