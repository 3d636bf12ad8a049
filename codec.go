package evmbridge

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Wire layout of engine arguments and outcomes: fixed-size fields are raw
// bytes, 256-bit values are 32 big-endian bytes, byte vectors carry a
// little-endian uint32 length prefix and enums a one-byte tag.

const callArgsV2Tag = 0

// EncodeOutcome serializes an outcome.
func EncodeOutcome(o Outcome) []byte {
	w := &wireWriter{}
	w.u8(byte(o.Status))
	if o.Status.carriesData() {
		w.vec(o.Data)
	}
	return w.buf
}

// DecodeOutcome parses an outcome produced by EncodeOutcome.
func DecodeOutcome(data []byte) (Outcome, error) {
	r := &wireReader{buf: data}
	tag, err := r.u8()
	if err != nil {
		return Outcome{}, err
	}
	status := Status(tag)
	if status > StatusRecursionTooDeep {
		return Outcome{}, fmt.Errorf("%w: unknown outcome tag %d", ErrInvalidEncoding, tag)
	}
	o := Outcome{Status: status}
	if status.carriesData() {
		if o.Data, err = r.vec(); err != nil {
			return Outcome{}, err
		}
	}
	return o, r.done()
}

// EncodeViewArgs serializes the arguments of the engine view operation.
func EncodeViewArgs(sender common.Address, p CallPayload) []byte {
	w := &wireWriter{}
	w.raw(sender.Bytes())
	w.raw(p.Target.Bytes())
	value := p.Value.Bytes32()
	w.raw(value[:])
	w.vec(p.Input)
	return w.buf
}

// DecodeViewArgs is the inverse of EncodeViewArgs.
func DecodeViewArgs(data []byte) (common.Address, CallPayload, error) {
	r := &wireReader{buf: data}
	sender, err := r.address()
	if err != nil {
		return common.Address{}, CallPayload{}, err
	}
	p, err := r.payload()
	if err != nil {
		return common.Address{}, CallPayload{}, err
	}
	return sender, p, r.done()
}

// EncodeCallArgs serializes the arguments of the engine call operation.
func EncodeCallArgs(p CallPayload) []byte {
	w := &wireWriter{}
	w.u8(callArgsV2Tag)
	w.raw(p.Target.Bytes())
	value := p.Value.Bytes32()
	w.raw(value[:])
	w.vec(p.Input)
	return w.buf
}

// DecodeCallArgs is the inverse of EncodeCallArgs.
func DecodeCallArgs(data []byte) (CallPayload, error) {
	r := &wireReader{buf: data}
	tag, err := r.u8()
	if err != nil {
		return CallPayload{}, err
	}
	if tag != callArgsV2Tag {
		return CallPayload{}, fmt.Errorf("%w: unknown call args version %d", ErrInvalidEncoding, tag)
	}
	p, err := r.payload()
	if err != nil {
		return CallPayload{}, err
	}
	return p, r.done()
}

type wireWriter struct {
	buf []byte
}

func (w *wireWriter) u8(b byte) {
	w.buf = append(w.buf, b)
}

func (w *wireWriter) raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *wireWriter) vec(b []byte) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(len(b)))
	w.buf = append(w.buf, b...)
}

type wireReader struct {
	buf []byte
	pos int
}

func (r *wireReader) take(n int) ([]byte, error) {
	if n < 0 || len(r.buf)-r.pos < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrInvalidEncoding, n, r.pos, len(r.buf)-r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *wireReader) u8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *wireReader) address() (common.Address, error) {
	b, err := r.take(AddressLength)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(b), nil
}

func (r *wireReader) vec() ([]byte, error) {
	lenBytes, err := r.take(4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBytes)
	if uint64(n) > uint64(len(r.buf)-r.pos) {
		return nil, fmt.Errorf("%w: vector length %d exceeds remaining %d bytes", ErrInvalidEncoding, n, len(r.buf)-r.pos)
	}
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	return common.CopyBytes(b), nil
}

// payload reads target, value and input.
func (r *wireReader) payload() (CallPayload, error) {
	target, err := r.address()
	if err != nil {
		return CallPayload{}, err
	}
	value, err := r.take(32)
	if err != nil {
		return CallPayload{}, err
	}
	input, err := r.vec()
	if err != nil {
		return CallPayload{}, err
	}
	p := CallPayload{Target: target, Input: input}
	p.Value.SetBytes32(value)
	return p, nil
}

func (r *wireReader) done() error {
	if r.pos != len(r.buf) {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidEncoding, len(r.buf)-r.pos)
	}
	return nil
}
