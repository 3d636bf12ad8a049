// Package rpcengine connects a bridge to a remote execution engine over
// go-ethereum's JSON-RPC transport.
//
// Methods live in the "engine" namespace. Addresses travel as hex strings,
// gas budgets as hex quantities, and the view/call arguments and outcomes
// as hex-encoded byte blobs in the bridge's wire layout.
package rpcengine

import (
	"context"
	"errors"
	"fmt"

	evmbridge "github.com/branched-services/go-evmbridge"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Namespace is the JSON-RPC namespace of the engine methods.
const Namespace = "engine"

// Error codes for failures that must survive the transport.
const (
	CodeResourceExhausted = -32010
	CodeInvalidParams     = -32602
)

var _ evmbridge.Engine = (*Client)(nil)

// Client is an evmbridge.Engine backed by a JSON-RPC connection.
type Client struct {
	c *rpc.Client
}

// Dial connects to the engine endpoint at rawurl.
func Dial(ctx context.Context, rawurl string) (*Client, error) {
	c, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

// NewClient wraps an existing RPC client.
func NewClient(c *rpc.Client) *Client {
	return &Client{c: c}
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.c.Close()
}

// GetBalance implements evmbridge.Engine.
func (c *Client) GetBalance(ctx context.Context, gas evmbridge.Gas, address common.Address) ([]byte, error) {
	return c.call(ctx, "getBalance", address, hexutil.Uint64(gas))
}

// ResolveAddress implements evmbridge.Engine.
func (c *Client) ResolveAddress(ctx context.Context, gas evmbridge.Gas, tokenID string) ([]byte, error) {
	return c.call(ctx, "resolveAddress", tokenID, hexutil.Uint64(gas))
}

// View implements evmbridge.Engine.
func (c *Client) View(ctx context.Context, gas evmbridge.Gas, sender common.Address, payload evmbridge.CallPayload) ([]byte, error) {
	return c.call(ctx, "view", hexutil.Bytes(evmbridge.EncodeViewArgs(sender, payload)), hexutil.Uint64(gas))
}

// Call implements evmbridge.Engine.
func (c *Client) Call(ctx context.Context, gas evmbridge.Gas, payload evmbridge.CallPayload) ([]byte, error) {
	return c.call(ctx, "call", hexutil.Bytes(evmbridge.EncodeCallArgs(payload)), hexutil.Uint64(gas))
}

func (c *Client) call(ctx context.Context, method string, args ...any) ([]byte, error) {
	var out hexutil.Bytes
	if err := c.c.CallContext(ctx, &out, Namespace+"_"+method, args...); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == CodeResourceExhausted {
			return nil, fmt.Errorf("%w: %w", evmbridge.ErrResourceExhausted, err)
		}
		return nil, err
	}
	return out, nil
}
