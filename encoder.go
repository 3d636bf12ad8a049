package evmbridge

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// SelectorSize is the size of a function selector in bytes.
const SelectorSize = 4

// Selector returns the first 4 bytes of keccak256(signature), e.g. for
// "transfer(address,uint256)".
func Selector(signature string) [SelectorSize]byte {
	var sel [SelectorSize]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:SelectorSize])
	return sel
}

// BuildInput produces selector(signature) followed by the ABI encoding of
// args. Parameter types are taken from the signature and each argument must
// match its position. Arguments can be Arg values or Go values accepted by
// toArg.
func BuildInput(signature string, args ...any) ([]byte, error) {
	_, types, err := parseSignature(signature)
	if err != nil {
		return nil, err
	}
	if len(args) != len(types) {
		return nil, &ArgumentError{Signature: signature, Index: len(args), Err: ErrArgumentCount}
	}

	arguments := make(abi.Arguments, len(types))
	values := make([]any, len(args))
	for i, raw := range args {
		arg, err := toArg(raw, types[i])
		if err != nil {
			return nil, &ArgumentError{Signature: signature, Index: i, Err: err}
		}
		arguments[i] = abi.Argument{Type: types[i]}
		values[i] = arg.packable()
	}

	packed, err := arguments.Pack(values...)
	if err != nil {
		return nil, &EncodingError{Value: args, Err: err}
	}

	sel := Selector(signature)
	input := make([]byte, 0, SelectorSize+len(packed))
	input = append(input, sel[:]...)
	return append(input, packed...), nil
}

// MustBuildInput is like BuildInput but panics on error.
func MustBuildInput(signature string, args ...any) []byte {
	input, err := BuildInput(signature, args...)
	if err != nil {
		panic(err)
	}
	return input
}

// parseSignature splits "name(type1,type2)" into its name and parameter
// types. Tuple parameters are not supported.
func parseSignature(signature string) (string, []abi.Type, error) {
	open := strings.IndexByte(signature, '(')
	if open <= 0 || !strings.HasSuffix(signature, ")") {
		return "", nil, &EncodingError{Value: signature, Err: ErrInvalidSignature}
	}
	name := signature[:open]
	params := signature[open+1 : len(signature)-1]
	if strings.ContainsAny(params, "() ") {
		return "", nil, &EncodingError{Value: signature, Err: ErrInvalidSignature}
	}
	if params == "" {
		return name, nil, nil
	}

	parts := strings.Split(params, ",")
	types := make([]abi.Type, len(parts))
	for i, p := range parts {
		if p == "" {
			return "", nil, &EncodingError{Value: signature, Err: ErrInvalidSignature}
		}
		t, err := abi.NewType(p, "", nil)
		if err != nil {
			return "", nil, &EncodingError{Value: signature, Err: ErrInvalidSignature}
		}
		types[i] = t
	}
	return name, types, nil
}
