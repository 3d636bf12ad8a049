package evmbridge

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Gas is the engine's dimensionless cost unit.
type Gas uint64

// TGas is 10^12 gas.
const TGas Gas = 1_000_000_000_000

// DefaultEngineAccount is the local account id of the remote engine.
const DefaultEngineAccount = "aurora"

// Operation names one of the four engine operations.
type Operation uint8

const (
	OpGetBalance Operation = iota
	OpResolveAddress
	OpView
	OpCall
)

func (op Operation) String() string {
	switch op {
	case OpGetBalance:
		return "get_balance"
	case OpResolveAddress:
		return "resolve_address"
	case OpView:
		return "view"
	case OpCall:
		return "call"
	default:
		return "unknown"
	}
}

// Mutates reports whether the operation changes remote state.
func (op Operation) Mutates() bool {
	return op == OpCall
}

// Engine is the remote execution engine. Every method is a single
// round trip carrying a fixed gas budget.
//
// GetBalance returns a 32-byte big-endian integer and ResolveAddress a raw
// 20-byte address. View and Call return an encoded Outcome (see
// DecodeOutcome). An error wrapping ErrResourceExhausted means the budget
// was too small; any other error is a transport failure.
type Engine interface {
	GetBalance(ctx context.Context, gas Gas, address common.Address) ([]byte, error)
	ResolveAddress(ctx context.Context, gas Gas, tokenID string) ([]byte, error)
	View(ctx context.Context, gas Gas, sender common.Address, payload CallPayload) ([]byte, error)
	Call(ctx context.Context, gas Gas, payload CallPayload) ([]byte, error)
}

// Budgets holds the fixed gas attached to each engine operation.
type Budgets struct {
	GetBalance     Gas
	ResolveAddress Gas
	View           Gas
	Call           Gas
}

// DefaultBudgets returns the standard per-operation budgets.
func DefaultBudgets() Budgets {
	return Budgets{
		GetBalance:     5 * TGas,
		ResolveAddress: 10 * TGas,
		View:           100 * TGas,
		Call:           200 * TGas,
	}
}

// For returns the budget of op.
func (b Budgets) For(op Operation) Gas {
	switch op {
	case OpGetBalance:
		return b.GetBalance
	case OpResolveAddress:
		return b.ResolveAddress
	case OpView:
		return b.View
	case OpCall:
		return b.Call
	default:
		return 0
	}
}
