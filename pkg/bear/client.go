// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bear

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the exchange policy of a Client. The zero value is usable:
// DefaultTimeout, no retries, no command gap and strict status checking.
type Config struct {
	// Timeout is the maximum wait for a response, per attempt. When zero it
	// is derived from BaudRate, or DefaultTimeout if that is zero too.
	Timeout time.Duration
	// Retries is the number of re-sends after a timeout or a corrupted
	// response. A request is transmitted at most Retries+1 times.
	Retries int
	// BaudRate of the bus, used to derive Timeout.
	BaudRate int
	// MinCommandGap is the minimum time between two request transmissions.
	MinCommandGap time.Duration
	// AllowWarnings accepts responses whose status only carries warning
	// flags. The flags are still reported to the caller.
	AllowWarnings bool
}

// Trace describes one finished Client operation.
type Trace struct {
	Start    time.Time
	Duration time.Duration
	ID       uint8
	Code     uint8
	Request  []byte // last request frame written
	Response []byte // last response frame framed, nil when none arrived
	Attempts int
	Status   ErrorFlags
	Err      error
}

// Tracer receives a Trace after every Client operation. The byte slices are
// only valid for the duration of the call.
type Tracer interface {
	TraceExchange(t Trace)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Packets and resynchronization are logged at
// debug level and retries at warn level.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithTracer installs a Tracer.
func WithTracer(t Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// WithStatistics makes the Client count into s instead of its own tracker.
func WithStatistics(s *Statistics) Option {
	return func(c *Client) {
		if s != nil {
			c.stats = s
		}
	}
}

// Client drives request/response exchanges with BEAR devices over one
// Transport.
//
// Exchanges are strictly sequential and a Client is not safe for concurrent
// use: applications sharing a bus must serialize access to it. All packet
// buffers are fixed-size fields, so an exchange through ReadInto, Write or
// SaveConfig does not allocate on the success path.
type Client struct {
	transport Transport
	cfg       Config
	log       *zap.Logger
	clock     Clock
	tracer    Tracer
	stats     *Statistics
	limiter   *rate.Limiter

	req       [MaxPacketSize]byte
	resp      [MaxPacketSize]byte
	dec       Decoder
	skipped   uint64
	respFrame []byte
}

// NewClient creates a client that owns t.
func NewClient(t Transport, cfg Config, opts ...Option) *Client {
	c := &Client{
		transport: t,
		cfg:       cfg,
		log:       zap.NewNop(),
		clock:     SystemClock,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.stats == nil {
		c.stats = NewStatistics()
	}
	if cfg.MinCommandGap > 0 {
		c.limiter = rate.NewLimiter(rate.Every(cfg.MinCommandGap), 1)
	}
	if cfg.Retries < 0 {
		c.cfg.Retries = 0
	}
	return c
}

// Config returns the exchange policy.
func (c *Client) Config() Config {
	return c.cfg
}

// Statistics returns the statistics tracker of the client.
func (c *Client) Statistics() *Statistics {
	return c.stats
}

// Read returns length bytes of registers starting at addr on device id.
func (c *Client) Read(id uint8, addr Address, length int) ([]byte, error) {
	if id == BroadcastID {
		return nil, invalidArgument("cannot read from the broadcast id")
	}
	resp, err := c.Exchange(id, Read{Address: addr, Length: length})
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), resp.Data...), nil
}

// ReadInto fills dst with registers starting at addr on device id. The
// returned status is non-zero only when warnings are allowed.
func (c *Client) ReadInto(dst []byte, id uint8, addr Address) (ErrorFlags, error) {
	if id == BroadcastID {
		return 0, invalidArgument("cannot read from the broadcast id")
	}
	resp, err := c.Exchange(id, Read{Address: addr, Length: len(dst)})
	if err != nil {
		return resp.Status, err
	}
	copy(dst, resp.Data)
	return resp.Status, nil
}

// Write stores data at addr on device id and returns the device status.
// Writing to BroadcastID behaves like WriteBroadcast.
func (c *Client) Write(id uint8, addr Address, data []byte) (ErrorFlags, error) {
	resp, err := c.Exchange(id, Write{Address: addr, Data: data})
	return resp.Status, err
}

// WriteBroadcast stores data at addr on every device. No device answers a
// broadcast, so it returns as soon as the request is written.
func (c *Client) WriteBroadcast(addr Address, data []byte) error {
	_, err := c.Exchange(BroadcastID, Write{Address: addr, Data: data})
	return err
}

// SaveConfig asks device id to persist its config bank.
func (c *Client) SaveConfig(id uint8) (ErrorFlags, error) {
	if id == BroadcastID {
		return 0, invalidArgument("cannot save config through the broadcast id")
	}
	resp, err := c.Exchange(id, SaveConfig{})
	return resp.Status, err
}

// ReadUint32 reads one register as a little-endian unsigned integer.
func (c *Client) ReadUint32(id uint8, addr Address) (uint32, error) {
	var buf [RegisterSize]byte
	if _, err := c.ReadInto(buf[:], id, addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadFloat32 reads one register as a little-endian IEEE 754 float.
func (c *Client) ReadFloat32(id uint8, addr Address) (float32, error) {
	v, err := c.ReadUint32(id, addr)
	return math.Float32frombits(v), err
}

// WriteUint32 writes one register as a little-endian unsigned integer.
func (c *Client) WriteUint32(id uint8, addr Address, v uint32) (ErrorFlags, error) {
	var buf [RegisterSize]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return c.Write(id, addr, buf[:])
}

// WriteFloat32 writes one register as a little-endian IEEE 754 float.
func (c *Client) WriteFloat32(id uint8, addr Address, v float32) (ErrorFlags, error) {
	return c.WriteUint32(id, addr, math.Float32bits(v))
}

// Exchange performs inst against device id and returns the validated
// response. Response.Data aliases a client buffer and is only valid until
// the next call on the client.
//
// Arguments are validated before any byte is written. A Write to BroadcastID
// is sent once and never waits for an answer; any other instruction to
// BroadcastID is rejected.
func (c *Client) Exchange(id uint8, inst Instruction) (Response, error) {
	start := c.clock.Now()
	broadcast := id == BroadcastID
	c.stats.exchangeStarted(broadcast)
	c.respFrame = nil

	resp, frame, attempts, err := c.exchange(id, inst, broadcast)

	if c.tracer != nil {
		t := Trace{
			Start:    start,
			Duration: c.clock.Now().Sub(start),
			ID:       id,
			Request:  frame,
			Response: c.respFrame,
			Attempts: attempts,
			Status:   resp.Status,
			Err:      err,
		}
		if inst != nil {
			t.Code = inst.Code()
		}
		c.tracer.TraceExchange(t)
	}
	return resp, err
}

func (c *Client) exchange(id uint8, inst Instruction, broadcast bool) (Response, []byte, int, error) {
	if broadcast {
		if _, ok := inst.(Write); !ok && inst != nil {
			err := invalidArgument("instruction 0x%02X cannot be broadcast", inst.Code())
			c.stats.attempt(err)
			return Response{}, nil, 0, err
		}
	}

	n, err := EncodeRequest(c.req[:], id, inst)
	if err != nil {
		c.stats.attempt(err)
		return Response{}, nil, 0, err
	}
	frame := c.req[:n]

	if broadcast {
		c.pace()
		err := c.send(frame, false)
		if err != nil {
			c.stats.attempt(err)
		}
		return Response{ID: id}, frame, 1, err
	}

	respSize := HeaderSize + minLength + inst.ResponseLen()
	timeout := exchangeTimeout(c.cfg, n, respSize)

	var resp Response
	attempts := 0
	for {
		attempts++
		resp, err = c.attempt(frame, id, inst, timeout, attempts > 1)
		c.stats.attempt(err)
		if err == nil || !Retryable(err) || attempts > c.cfg.Retries {
			break
		}
		c.log.Warn("retrying exchange",
			zap.Uint8("id", id),
			zap.Uint8("instruction", inst.Code()),
			zap.Int("attempt", attempts),
			zap.Error(err))
	}
	return resp, frame, attempts, err
}

// attempt transmits frame once and waits up to timeout for the response.
func (c *Client) attempt(frame []byte, id uint8, inst Instruction, timeout time.Duration, retry bool) (Response, error) {
	c.pace()
	if err := c.discard(); err != nil {
		return Response{}, err
	}
	c.dec.Reset()
	if err := c.send(frame, retry); err != nil {
		return Response{}, err
	}
	defer c.countSkipped()

	deadline := c.clock.Now().Add(timeout)
	for {
		p, err := c.dec.Next()
		switch {
		case err == nil:
			c.keepResponse(p)
			if ce := c.log.Check(zap.DebugLevel, "rx"); ce != nil {
				ce.Write(zap.String("packet", FormatResponse(p)))
			}
			return DecodeResponse(p, id, inst, c.cfg.AllowWarnings)
		case !errors.Is(err, ErrIncomplete):
			c.log.Debug("discarding corrupt response", zap.Uint8("id", id), zap.Error(err))
			return Response{}, err
		}

		if !c.clock.Now().Before(deadline) {
			return Response{}, fmt.Errorf("%w: device 0x%02X did not answer within %s", ErrTimeout, id, timeout)
		}
		free := c.dec.Free()
		if len(free) == 0 {
			return Response{}, &FramingError{Reason: "response buffer full", Value: c.dec.Buffered()}
		}
		got, err := c.transport.Read(free, deadline)
		if err != nil {
			return Response{}, &TransportError{Op: "read", Err: err}
		}
		c.dec.Commit(got)
		if got > 0 {
			c.stats.received(got)
		}
	}
}

func (c *Client) send(frame []byte, retry bool) error {
	if ce := c.log.Check(zap.DebugLevel, "tx"); ce != nil {
		ce.Write(zap.String("packet", FormatFrame(frame)), zap.Bool("retry", retry))
	}
	n, err := c.transport.Write(frame)
	if err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if n != len(frame) {
		return &TransportError{Op: "write", Err: io.ErrShortWrite}
	}
	c.stats.transmitted(n, retry)
	return nil
}

func (c *Client) discard() error {
	d, ok := c.transport.(InputDiscarder)
	if !ok {
		return nil
	}
	if err := d.DiscardInput(); err != nil {
		return &TransportError{Op: "discard", Err: err}
	}
	return nil
}

// pace holds back a transmission until MinCommandGap has passed since the
// previous one.
func (c *Client) pace() {
	if c.limiter == nil {
		return
	}
	now := c.clock.Now()
	if d := c.limiter.ReserveN(now, 1).DelayFrom(now); d > 0 {
		c.clock.Sleep(d)
	}
}

func (c *Client) countSkipped() {
	total := c.dec.Skipped()
	if n := total - c.skipped; n > 0 {
		c.log.Debug("skipped bytes while framing", zap.Uint64("bytes", n))
		c.stats.skipped(n)
	}
	c.skipped = total
}

// keepResponse copies the framed response for the tracer.
func (c *Client) keepResponse(p Packet) {
	if c.tracer == nil {
		return
	}
	n, err := p.MarshalTo(c.resp[:])
	if err != nil {
		return
	}
	c.respFrame = c.resp[:n]
}
