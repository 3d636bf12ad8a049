package evmbridge

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Proxy issues the four engine operations with their fixed budgets. It
// never looks at results: each call is handed to the router and delivered
// to whichever continuation gets attached.
type Proxy struct {
	engine  Engine
	budgets Budgets
	router  *Router
	log     log.Logger
}

// NewProxy creates a proxy issuing calls to engine and registering them
// with router.
func NewProxy(engine Engine, router *Router, budgets Budgets, logger log.Logger) *Proxy {
	if logger == nil {
		logger = log.Root()
	}
	return &Proxy{
		engine:  engine,
		budgets: budgets,
		router:  router,
		log:     logger,
	}
}

// Budgets returns the per-operation budgets.
func (p *Proxy) Budgets() Budgets {
	return p.budgets
}

// GetNativeBalance asks for the native balance of address.
func (p *Proxy) GetNativeBalance(ctx context.Context, address common.Address) *IssuedCall {
	return p.issue(ctx, OpGetBalance, func(ctx context.Context, gas Gas) ([]byte, error) {
		return p.engine.GetBalance(ctx, gas, address)
	})
}

// ResolveRemoteAddress asks for the remote address of an external token id.
func (p *Proxy) ResolveRemoteAddress(ctx context.Context, tokenID string) *IssuedCall {
	return p.issue(ctx, OpResolveAddress, func(ctx context.Context, gas Gas) ([]byte, error) {
		return p.engine.ResolveAddress(ctx, gas, tokenID)
	})
}

// ViewCall issues a read-only invocation on behalf of sender. The value
// field is always zero.
func (p *Proxy) ViewCall(ctx context.Context, sender common.Address, payload CallPayload) *IssuedCall {
	payload.Value = uint256.Int{}
	return p.issue(ctx, OpView, func(ctx context.Context, gas Gas) ([]byte, error) {
		return p.engine.View(ctx, gas, sender, payload)
	})
}

// StateCall issues a state-mutating invocation. The value field is always
// zero; only the encoded input travels.
func (p *Proxy) StateCall(ctx context.Context, payload CallPayload) *IssuedCall {
	payload.Value = uint256.Int{}
	return p.issue(ctx, OpCall, func(ctx context.Context, gas Gas) ([]byte, error) {
		return p.engine.Call(ctx, gas, payload)
	})
}

func (p *Proxy) issue(ctx context.Context, op Operation, send func(context.Context, Gas) ([]byte, error)) *IssuedCall {
	call := p.router.register(op)
	gas := p.budgets.For(op)
	p.log.Debug("Issuing remote call", "id", call.id, "op", op, "gas", uint64(gas))

	go func() {
		data, err := send(ctx, gas)
		call.deliver(Response{Op: op, Data: data, Err: err})
	}()
	return call
}
