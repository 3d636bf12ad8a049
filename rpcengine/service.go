package rpcengine

import (
	"context"
	"errors"

	evmbridge "github.com/branched-services/go-evmbridge"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Service exposes an evmbridge.Engine as JSON-RPC methods. It is the
// server half of Client and is mostly useful for engine simulators.
type Service struct {
	engine evmbridge.Engine
}

// NewService wraps engine.
func NewService(engine evmbridge.Engine) *Service {
	return &Service{engine: engine}
}

// Register adds the engine methods to srv under Namespace.
func Register(srv *rpc.Server, engine evmbridge.Engine) error {
	return srv.RegisterName(Namespace, NewService(engine))
}

// GetBalance serves engine_getBalance.
func (s *Service) GetBalance(ctx context.Context, address common.Address, gas hexutil.Uint64) (hexutil.Bytes, error) {
	out, err := s.engine.GetBalance(ctx, evmbridge.Gas(gas), address)
	return out, toRPCError(err)
}

// ResolveAddress serves engine_resolveAddress.
func (s *Service) ResolveAddress(ctx context.Context, tokenID string, gas hexutil.Uint64) (hexutil.Bytes, error) {
	out, err := s.engine.ResolveAddress(ctx, evmbridge.Gas(gas), tokenID)
	return out, toRPCError(err)
}

// View serves engine_view.
func (s *Service) View(ctx context.Context, args hexutil.Bytes, gas hexutil.Uint64) (hexutil.Bytes, error) {
	sender, payload, err := evmbridge.DecodeViewArgs(args)
	if err != nil {
		return nil, &engineError{code: CodeInvalidParams, err: err}
	}
	out, err := s.engine.View(ctx, evmbridge.Gas(gas), sender, payload)
	return out, toRPCError(err)
}

// Call serves engine_call.
func (s *Service) Call(ctx context.Context, args hexutil.Bytes, gas hexutil.Uint64) (hexutil.Bytes, error) {
	payload, err := evmbridge.DecodeCallArgs(args)
	if err != nil {
		return nil, &engineError{code: CodeInvalidParams, err: err}
	}
	out, err := s.engine.Call(ctx, evmbridge.Gas(gas), payload)
	return out, toRPCError(err)
}

// engineError carries a JSON-RPC error code.
type engineError struct {
	code int
	err  error
}

func (e *engineError) Error() string  { return e.err.Error() }
func (e *engineError) ErrorCode() int { return e.code }
func (e *engineError) Unwrap() error  { return e.err }

func toRPCError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, evmbridge.ErrResourceExhausted) {
		return &engineError{code: CodeResourceExhausted, err: err}
	}
	return err
}
