// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package trace records BEAR client exchanges as a stream of CBOR records
// and reads them back.
package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

// Record is one traced exchange. Fields use integer keys on the wire.
type Record struct {
	Time     time.Time     `cbor:"1,keyasint"`
	Duration time.Duration `cbor:"2,keyasint"`
	ID       uint8         `cbor:"3,keyasint"`
	Code     uint8         `cbor:"4,keyasint"`
	Request  []byte        `cbor:"5,keyasint,omitempty"`
	Response []byte        `cbor:"6,keyasint,omitempty"`
	Attempts int           `cbor:"7,keyasint"`
	Status   uint8         `cbor:"8,keyasint"`
	Error    string        `cbor:"9,keyasint,omitempty"`
	// Session identifies the Recorder that wrote the record, so runs
	// appended to one file can be told apart.
	Session  string        `cbor:"10,keyasint,omitempty"`
}

// FromTrace converts a client trace, copying its buffers.
func FromTrace(t bear.Trace) Record {
	rec := Record{
		Time:     t.Start,
		Duration: t.Duration,
		ID:       t.ID,
		Code:     t.Code,
		Attempts: t.Attempts,
		Status:   uint8(t.Status),
	}
	if len(t.Request) > 0 {
		rec.Request = append([]byte(nil), t.Request...)
	}
	if len(t.Response) > 0 {
		rec.Response = append([]byte(nil), t.Response...)
	}
	if t.Err != nil {
		rec.Error = t.Err.Error()
	}
	return rec
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Recorder writes one CBOR record per exchange. It implements bear.Tracer;
// the first write error is kept and reported by Err and Close.
type Recorder struct {
	mu      sync.Mutex
	enc     *cbor.Encoder
	closer  io.Closer
	session string
	count   int
	err     error
}

// NewRecorder writes records to w under a fresh session id.
func NewRecorder(w io.Writer) *Recorder {
	r := &Recorder{enc: encMode.NewEncoder(w), session: uuid.NewString()}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r
}

// Create opens path for appending and records to it.
func Create(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return NewRecorder(f), nil
}

// TraceExchange implements bear.Tracer.
func (r *Recorder) TraceExchange(t bear.Trace) {
	r.Write(FromTrace(t))
}

// Session returns the id stamped on records written by r.
func (r *Recorder) Session() string {
	return r.session
}

// Write appends a record. Records without a session get the recorder's.
func (r *Recorder) Write(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	if rec.Session == "" {
		rec.Session = r.session
	}
	if err := r.enc.Encode(rec); err != nil {
		r.err = fmt.Errorf("failed to write trace record: %w", err)
		return
	}
	r.count++
}

// Count returns the number of records written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Err returns the first write error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close closes the underlying writer when it is closable.
func (r *Recorder) Close() error {
	err := r.Err()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader decodes records written by a Recorder.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader reads records from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to decode trace record: %w", err)
	}
	return rec, nil
}

// ReadAll returns every record in r.
func ReadAll(r io.Reader) ([]Record, error) {
	tr := NewReader(r)
	var recs []Record
	for {
		rec, err := tr.Next()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}

// Format renders a record on one or more lines.
func Format(rec Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s id=0x%02X attempts=%d took=%s",
		rec.Time.Format("15:04:05.000"), bear.FormatInstruction(rec.Code), rec.ID, rec.Attempts, rec.Duration)
	if rec.Error != "" {
		fmt.Fprintf(&b, " error=%q", rec.Error)
	}
	b.WriteByte('\n')
	if p, err := bear.ParsePacket(rec.Request); err == nil {
		fmt.Fprintf(&b, "  -> %s\n", bear.FormatRequest(p))
	}
	if p, err := bear.ParsePacket(rec.Response); err == nil {
		fmt.Fprintf(&b, "  <- %s\n", bear.FormatResponse(p))
	}
	return b.String()
}
