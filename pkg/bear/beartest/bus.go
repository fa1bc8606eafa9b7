// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beartest

import (
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

// Device is a simulated BEAR with two register banks.
type Device struct {
	ID uint8
	// Flags is reported as the status of every response.
	Flags bear.ErrorFlags

	mu     sync.Mutex
	status [256]uint32
	config [256]uint32
	saved  [256]uint32
	saves  int
}

// NewDevice creates a device answering to id.
func NewDevice(id uint8) *Device {
	d := &Device{ID: id}
	d.config[0] = uint32(id)
	return d
}

// Get returns a register value.
func (d *Device) Get(addr bear.Address) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bank(addr.Bank)[addr.Reg]
}

// Set stores a register value.
func (d *Device) Set(addr bear.Address, v uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bank(addr.Bank)[addr.Reg] = v
}

// Saved returns a config register as it was at the last SaveConfig.
func (d *Device) Saved(reg uint8) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saved[reg]
}

// Saves returns the number of SaveConfig instructions executed.
func (d *Device) Saves() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saves
}

func (d *Device) bank(b bear.Bank) *[256]uint32 {
	if b == bear.BankConfig {
		return &d.config
	}
	return &d.status
}

// execute runs a request and returns the response status and data.
func (d *Device) execute(p bear.Packet) (bear.ErrorFlags, []byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const entry = 1 + bear.RegisterSize
	switch p.Code {
	case bear.InstPing:
		return d.Flags, nil, true
	case bear.InstReadStat, bear.InstReadCfg:
		bank := &d.status
		if p.Code == bear.InstReadCfg {
			bank = &d.config
		}
		data := make([]byte, 0, len(p.Params)*bear.RegisterSize)
		for _, reg := range p.Params {
			data = binary.LittleEndian.AppendUint32(data, bank[reg])
		}
		return d.Flags, data, true
	case bear.InstWriteStat, bear.InstWriteCfg:
		if len(p.Params) == 0 || len(p.Params)%entry != 0 {
			return d.Flags | bear.FlagCommunication, nil, true
		}
		bank := &d.status
		if p.Code == bear.InstWriteCfg {
			bank = &d.config
		}
		for i := 0; i < len(p.Params); i += entry {
			bank[p.Params[i]] = binary.LittleEndian.Uint32(p.Params[i+1 : i+entry])
		}
		return d.Flags, nil, true
	case bear.InstSaveCfg:
		d.saved = d.config
		d.saves++
		return d.Flags, nil, true
	default:
		return d.Flags | bear.FlagCommunication, nil, true
	}
}

// Fault alters the response to one request.
type Fault int

// Faults a Bus can inject
const (
	FaultNone Fault = iota
	// FaultDrop sends no response.
	FaultDrop
	// FaultChecksum flips the checksum of the response.
	FaultChecksum
	// FaultWrongID answers with the id plus one.
	FaultWrongID
	// FaultGarbage prefixes the response with noise, including a false marker.
	FaultGarbage
	// FaultTruncate sends all but the last byte of the response.
	FaultTruncate
)

// Bus is a bear.Transport connected to simulated devices. Requests are
// executed as soon as they are written and the answers become readable.
type Bus struct {
	Clock bear.Clock
	// Bytewise delivers responses one byte per Read.
	Bytewise bool

	mu      sync.Mutex
	devices map[uint8]*Device
	faults  []Fault
	pending []byte
	writes  int
	dropped int
}

// NewBus creates a bus with the given devices attached.
func NewBus(devices ...*Device) *Bus {
	b := &Bus{devices: make(map[uint8]*Device)}
	for _, d := range devices {
		b.Attach(d)
	}
	return b
}

// Attach connects a device to the bus.
func (b *Bus) Attach(d *Device) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices[d.ID] = d
}

// Device returns the device answering to id, or nil.
func (b *Bus) Device(id uint8) *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.devices[id]
}

// IDs returns the attached device ids in ascending order.
func (b *Bus) IDs() []uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]uint8, 0, len(b.devices))
	for id := range b.devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Inject queues faults, applied in order to the next responses.
func (b *Bus) Inject(faults ...Fault) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = append(b.faults, faults...)
}

// Writes returns the number of frames written to the bus.
func (b *Bus) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

// Dropped returns the number of written frames no device accepted.
func (b *Bus) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *Bus) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++

	req, err := bear.ParsePacket(p)
	if err != nil {
		b.dropped++
		return len(p), nil
	}

	if req.IsBroadcast() {
		for _, d := range b.devices {
			d.execute(req)
		}
		return len(p), nil
	}

	d, ok := b.devices[req.ID]
	if !ok {
		b.dropped++
		return len(p), nil
	}
	status, data, _ := d.execute(req)
	resp, err := bear.EncodePacket(req.ID, uint8(status), data)
	if err != nil {
		b.dropped++
		return len(p), nil
	}

	fault := FaultNone
	if len(b.faults) > 0 {
		fault = b.faults[0]
		b.faults = b.faults[1:]
	}
	switch fault {
	case FaultDrop:
		return len(p), nil
	case FaultChecksum:
		resp[len(resp)-1] ^= 0xFF
	case FaultWrongID:
		resp, _ = bear.EncodePacket(req.ID+1, uint8(status), data)
	case FaultGarbage:
		resp = append([]byte{0x00, 0x13, bear.HeaderByte, bear.HeaderByte, bear.HeaderByte, 0x00}, resp...)
	case FaultTruncate:
		resp = resp[:len(resp)-1]
	}
	b.pending = append(b.pending, resp...)
	return len(p), nil
}

func (b *Bus) Read(p []byte, deadline time.Time) (int, error) {
	b.mu.Lock()
	if len(b.pending) > 0 {
		max := len(p)
		if b.Bytewise && max > 1 {
			max = 1
		}
		n := copy(p[:max], b.pending)
		b.pending = b.pending[n:]
		b.mu.Unlock()
		return n, nil
	}
	b.mu.Unlock()

	clock := b.Clock
	if clock == nil {
		clock = bear.SystemClock
	}
	clock.Sleep(deadline.Sub(clock.Now()))
	return 0, nil
}

// DiscardInput drops unread response bytes.
func (b *Bus) DiscardInput() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
	return nil
}
