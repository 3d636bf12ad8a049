package evmbridge

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressLength is the size of a remote address in bytes.
const AddressLength = common.AddressLength

// formattedAddressLength is "0x" plus two hex characters per byte.
const formattedAddressLength = 2 + 2*AddressLength

// DeriveAddress maps a local account id to its remote address: the last 20
// bytes of keccak256(id). It is only used for the bridge's own identity.
func DeriveAddress(id string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(id))[12:])
}

// FormatAddress renders an address as 0x-prefixed lowercase hex. Unlike
// common.Address.Hex it never applies the mixed-case checksum.
func FormatAddress(a common.Address) string {
	return hexutil.Encode(a.Bytes())
}

// ParseAddress is the strict inverse of FormatAddress. Anything other than
// "0x" followed by exactly 40 lowercase hex characters is rejected.
func ParseAddress(s string) (common.Address, error) {
	if len(s) < 2 || s[0] != '0' || s[1] != 'x' {
		return common.Address{}, &MalformedAddressError{Input: s, Reason: "missing 0x prefix"}
	}
	if len(s) != formattedAddressLength {
		return common.Address{}, &MalformedAddressError{Input: s, Reason: "not 20 bytes"}
	}
	for i := 2; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return common.Address{}, &MalformedAddressError{Input: s, Reason: "invalid hex character"}
		}
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return common.Address{}, &MalformedAddressError{Input: s, Reason: err.Error()}
	}
	return common.BytesToAddress(raw), nil
}

// MustParseAddress is like ParseAddress but panics on error.
// Use only with constant inputs.
func MustParseAddress(s string) common.Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}
