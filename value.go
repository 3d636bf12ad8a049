package evmbridge

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	addressType = mustNewType("address")
	uint256Type = mustNewType("uint256")
)

func mustNewType(typeStr string) abi.Type {
	t, err := abi.NewType(typeStr, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

// Arg is a typed positional argument of a remote call.
// This is a sealed interface - only types within this package can implement it.
type Arg interface {
	// isArg is unexported to seal the interface.
	isArg()

	// Type returns the ABI type of this argument.
	Type() abi.Type

	// Data returns the 32-byte ABI word for this argument.
	Data() []byte

	// packable returns the value in the form accounts/abi expects.
	packable() any
}

// AddressValue is an address argument, encoded as a left-padded 32-byte word.
type AddressValue struct {
	addr common.Address
}

func (v *AddressValue) isArg() {}

// Type returns the ABI address type.
func (v *AddressValue) Type() abi.Type {
	return addressType
}

// Data returns the address left-padded to 32 bytes.
func (v *AddressValue) Data() []byte {
	return common.LeftPadBytes(v.addr.Bytes(), 32)
}

// Address returns the wrapped address.
func (v *AddressValue) Address() common.Address {
	return v.addr
}

func (v *AddressValue) packable() any {
	return v.addr
}

// Uint256Value is an unsigned 256-bit integer argument, encoded as a
// big-endian 32-byte word.
type Uint256Value struct {
	v uint256.Int
}

func (v *Uint256Value) isArg() {}

// Type returns the ABI uint256 type.
func (v *Uint256Value) Type() abi.Type {
	return uint256Type
}

// Data returns the big-endian 32-byte word.
func (v *Uint256Value) Data() []byte {
	word := v.v.Bytes32()
	return word[:]
}

// Int returns a copy of the wrapped integer.
func (v *Uint256Value) Int() *uint256.Int {
	return new(uint256.Int).Set(&v.v)
}

func (v *Uint256Value) packable() any {
	return v.v.ToBig()
}

// AddressArg creates an address argument.
func AddressArg(a common.Address) *AddressValue {
	return &AddressValue{addr: a}
}

// Uint256Arg creates a uint256 argument. A nil value encodes as zero.
func Uint256Arg(v *uint256.Int) *Uint256Value {
	arg := &Uint256Value{}
	if v != nil {
		arg.v.Set(v)
	}
	return arg
}

// Uint64Arg is a convenience wrapper around Uint256Arg.
func Uint64Arg(v uint64) *Uint256Value {
	return Uint256Arg(uint256.NewInt(v))
}

// toArg converts a Go value into an Arg for the expected ABI type.
// Supported inputs: Arg, common.Address, *uint256.Int, *big.Int, uint64.
func toArg(v any, expected abi.Type) (Arg, error) {
	var arg Arg
	switch val := v.(type) {
	case Arg:
		arg = val
	case common.Address:
		arg = AddressArg(val)
	case *uint256.Int:
		arg = Uint256Arg(val)
	case *big.Int:
		u, overflow := uint256.FromBig(val)
		if overflow || val.Sign() < 0 {
			return nil, &EncodingError{Value: v, Err: ErrInvalidEncoding}
		}
		arg = Uint256Arg(u)
	case uint64:
		arg = Uint64Arg(val)
	default:
		return nil, &TypeMismatchError{Expected: expected.String(), Got: typeName(v)}
	}
	if arg.Type().String() != expected.String() {
		return nil, &TypeMismatchError{Expected: expected.String(), Got: arg.Type().String()}
	}
	return arg, nil
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
