package evmbridge

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Table prefixes, one per direction of the mapping.
var (
	addressToTokenPrefix = []byte{0x00}
	tokenToAddressPrefix = []byte{0x01}
)

// MappingCache is the persistent, write-once mapping between external token
// ids and their remote addresses. Both directions are stored so either side
// can be looked up directly.
type MappingCache struct {
	store Store
}

// NewMappingCache creates a cache over store.
func NewMappingCache(store Store) *MappingCache {
	return &MappingCache{store: store}
}

func tokenKey(tokenID string) []byte {
	return append(bytes.Clone(tokenToAddressPrefix), tokenID...)
}

func addressKey(addr common.Address) []byte {
	return append(bytes.Clone(addressToTokenPrefix), addr.Bytes()...)
}

// Lookup returns the cached address of tokenID.
func (c *MappingCache) Lookup(tokenID string) (common.Address, bool, error) {
	v, ok, err := c.store.Get(tokenKey(tokenID))
	if err != nil || !ok {
		return common.Address{}, false, err
	}
	if len(v) != AddressLength {
		return common.Address{}, false, fmt.Errorf("%w: stored address for %q has %d bytes", ErrInvalidEncoding, tokenID, len(v))
	}
	return common.BytesToAddress(v), true, nil
}

// LookupAddress returns the token id cached for addr.
func (c *MappingCache) LookupAddress(addr common.Address) (string, bool, error) {
	v, ok, err := c.store.Get(addressKey(addr))
	if err != nil || !ok {
		return "", false, err
	}
	return string(v), true, nil
}

// RequireCached is Lookup for operations that must not trigger a
// resolution round trip.
func (c *MappingCache) RequireCached(tokenID string) (common.Address, error) {
	addr, ok, err := c.Lookup(tokenID)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, &UnresolvedMappingError{TokenID: tokenID}
	}
	return addr, nil
}

// Insert stores tokenID <-> addr in both tables in one commit. Entries are
// never overwritten: inserting an identical pair again is a no-op and a pair
// that disagrees with a stored entry is rejected with a
// *MappingConflictError.
func (c *MappingCache) Insert(tokenID string, addr common.Address) error {
	existing, ok, err := c.Lookup(tokenID)
	if err != nil {
		return err
	}
	if ok {
		if existing == addr {
			return nil
		}
		return &MappingConflictError{TokenID: tokenID, Address: addr, Existing: FormatAddress(existing)}
	}

	owner, ok, err := c.LookupAddress(addr)
	if err != nil {
		return err
	}
	if ok {
		return &MappingConflictError{TokenID: tokenID, Address: addr, Existing: owner}
	}

	return c.store.Commit([]Write{
		{Key: addressKey(addr), Value: []byte(tokenID)},
		{Key: tokenKey(tokenID), Value: addr.Bytes()},
	})
}
