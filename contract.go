package evmbridge

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Token method signatures used by the bridge.
const (
	BalanceOfSignature = "balanceOf(address)"
	TransferSignature  = "transfer(address,uint256)"
)

// tokenABIJSON covers the part of the token standard the bridge calls.
const tokenABIJSON = `[
	{
		"name": "balanceOf",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "transfer",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "bool"}]
	}
]`

// tokenABI is the parsed token interface.
var tokenABI = MustParseABI(tokenABIJSON)

// Token wraps a token contract in the remote namespace. It only builds
// payloads and decodes results; it never talks to the engine.
type Token struct {
	address common.Address
	abi     abi.ABI
}

// NewToken creates a Token wrapper for the contract at address.
func NewToken(address common.Address) *Token {
	return &Token{address: address, abi: tokenABI}
}

// Address returns the token contract address.
func (t *Token) Address() common.Address {
	return t.address
}

// BalanceOf builds the read-only payload querying account's balance.
func (t *Token) BalanceOf(account common.Address) (CallPayload, error) {
	input, err := BuildInput(BalanceOfSignature, AddressArg(account))
	if err != nil {
		return CallPayload{}, err
	}
	return NewCallPayload(t.address, input), nil
}

// Transfer builds the state-mutating payload moving amount to receiver.
// No native value is attached.
func (t *Token) Transfer(receiver common.Address, amount *uint256.Int) (CallPayload, error) {
	input, err := BuildInput(TransferSignature, AddressArg(receiver), Uint256Arg(amount))
	if err != nil {
		return CallPayload{}, err
	}
	return NewCallPayload(t.address, input), nil
}

// UnpackBalance decodes the return data of balanceOf.
func (t *Token) UnpackBalance(data []byte) (*uint256.Int, error) {
	return unpackBalance(t.abi, data)
}

// UnpackBalance decodes the return data of a token balanceOf call.
func UnpackBalance(data []byte) (*uint256.Int, error) {
	return unpackBalance(tokenABI, data)
}

func unpackBalance(tokenABI abi.ABI, data []byte) (*uint256.Int, error) {
	out, err := tokenABI.Unpack("balanceOf", data)
	if err != nil {
		return nil, &EncodingError{Value: data, Err: err}
	}
	if len(out) != 1 {
		return nil, &EncodingError{Value: data, Err: ErrInvalidEncoding}
	}
	v, ok := out[0].(*big.Int)
	if !ok || v.Sign() < 0 {
		return nil, &EncodingError{Value: data, Err: ErrInvalidEncoding}
	}
	bal, overflow := uint256.FromBig(v)
	if overflow {
		return nil, &EncodingError{Value: data, Err: ErrInvalidEncoding}
	}
	return bal, nil
}

// HasMethod returns true if the token ABI has a method with the given name.
func (t *Token) HasMethod(methodName string) bool {
	_, ok := t.abi.Methods[methodName]
	return ok
}

// ParseABI parses a JSON ABI string into an abi.ABI.
func ParseABI(abiJSON string) (abi.ABI, error) {
	return abi.JSON(strings.NewReader(abiJSON))
}

// MustParseABI is like ParseABI but panics on error.
func MustParseABI(abiJSON string) abi.ABI {
	parsed, err := ParseABI(abiJSON)
	if err != nil {
		panic(err)
	}
	return parsed
}
