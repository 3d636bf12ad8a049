package evmbridge

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// CallPayload is a single outgoing remote call. It is built per call and
// handed to the engine immediately; it is never persisted.
type CallPayload struct {
	Target common.Address
	Value  uint256.Int
	Input  []byte
}

// NewCallPayload creates a zero-value payload for target.
func NewCallPayload(target common.Address, input []byte) CallPayload {
	return CallPayload{Target: target, Input: input}
}

// Selector returns the 4-byte function selector of the payload input, or
// zeros if the input is shorter than a selector.
func (p CallPayload) Selector() [SelectorSize]byte {
	var sel [SelectorSize]byte
	if len(p.Input) >= SelectorSize {
		copy(sel[:], p.Input[:SelectorSize])
	}
	return sel
}

// HasValue reports whether native value is attached.
func (p CallPayload) HasValue() bool {
	return !p.Value.IsZero()
}
