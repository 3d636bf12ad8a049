package evmbridge

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Bridge lets a local account query and move tokens that live in the
// engine's address space.
type Bridge struct {
	account string
	self    common.Address
	cache   *MappingCache
	proxy   *Proxy
	router  *Router
	log     log.Logger
}

// New creates a bridge for the local account id account, talking to engine
// and keeping the token mapping in store.
func New(account string, engine Engine, store Store, opts ...Option) *Bridge {
	cfg := defaultBridgeConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	router := NewRouter(account, cfg.logger)
	return &Bridge{
		account: account,
		self:    DeriveAddress(account),
		cache:   NewMappingCache(store),
		proxy:   NewProxy(engine, router, cfg.budgets, cfg.logger),
		router:  router,
		log:     cfg.logger,
	}
}

// Account returns the bridge's local account id.
func (b *Bridge) Account() string {
	return b.account
}

// Address returns the bridge's derived remote address.
func (b *Bridge) Address() common.Address {
	return b.self
}

// SelfAddress returns the formatted remote address of the bridge account.
func (b *Bridge) SelfAddress() string {
	return FormatAddress(b.self)
}

// Cache returns the token mapping cache.
func (b *Bridge) Cache() *MappingCache {
	return b.cache
}

// Router returns the router tracking the bridge's remote calls.
func (b *Bridge) Router() *Router {
	return b.router
}

// GetNativeBalance queries the native balance of the bridge address.
// The result is nil if the engine call fails.
func (b *Bridge) GetNativeBalance(ctx context.Context) *Pending[*uint256.Int] {
	call := b.proxy.GetNativeBalance(ctx, b.self)
	return then(b.router, call, b.onNativeBalance)
}

// GetTokenBalance queries the bridge's balance of a resolved token. It
// fails with ErrUnresolvedMapping if the token address is not cached. The
// result is nil if the remote view fails.
func (b *Bridge) GetTokenBalance(ctx context.Context, tokenID string) *Pending[*uint256.Int] {
	tokenAddr, err := b.cachedToken(tokenID)
	if err != nil {
		return Fail[*uint256.Int](err)
	}
	payload, err := NewToken(tokenAddr).BalanceOf(b.self)
	if err != nil {
		return Fail[*uint256.Int](err)
	}
	call := b.proxy.ViewCall(ctx, b.self, payload)
	return then(b.router, call, b.onTokenBalance)
}

// ResolveTokenAddress returns the formatted remote address of tokenID,
// resolving and caching it on first use.
func (b *Bridge) ResolveTokenAddress(ctx context.Context, tokenID string) *Pending[string] {
	return resolve(ctx, b, tokenID, FormatAddress)
}

// ResolveAndStore returns the cached address of tokenID, or resolves it
// through the engine and stores both directions of the mapping. A cache hit
// completes immediately without a remote call. Concurrent resolutions of
// the same id are not coalesced.
func (b *Bridge) ResolveAndStore(ctx context.Context, tokenID string) *Pending[common.Address] {
	return resolve(ctx, b, tokenID, func(a common.Address) common.Address { return a })
}

func resolve[T any](ctx context.Context, b *Bridge, tokenID string, present func(common.Address) T) *Pending[T] {
	var (
		cached common.Address
		hit    bool
	)
	err := b.router.exclusive(func() (err error) {
		cached, hit, err = b.cache.Lookup(tokenID)
		return err
	})
	if err != nil {
		return Fail[T](err)
	}
	if hit {
		b.log.Debug("Token address cached", "token", tokenID, "address", FormatAddress(cached))
		return Ready(present(cached))
	}

	call := b.proxy.ResolveRemoteAddress(ctx, tokenID)
	return then(b.router, call, func(caller string, resp Response) (T, error) {
		addr, err := b.onTokenAddress(caller, tokenID, resp)
		if err != nil {
			var zero T
			return zero, err
		}
		return present(addr), nil
	})
}

// TransferToken sends amount of a resolved token to recipient. Only the
// bridge account itself may call it. The token address must already be
// cached and recipient must be a formatted address; neither failure issues
// a remote call.
func (b *Bridge) TransferToken(ctx context.Context, caller, tokenID, recipient string, amount *uint256.Int) *Pending[struct{}] {
	if err := b.router.checkCaller(caller); err != nil {
		return Fail[struct{}](err)
	}
	tokenAddr, err := b.cachedToken(tokenID)
	if err != nil {
		return Fail[struct{}](err)
	}
	receiver, err := ParseAddress(recipient)
	if err != nil {
		return Fail[struct{}](err)
	}
	if amount == nil {
		amount = new(uint256.Int)
	}

	b.log.Info("Sending tokens", "token", tokenID, "amount", amount.Dec(), "to", FormatAddress(receiver))
	payload, err := NewToken(tokenAddr).Transfer(receiver, amount)
	if err != nil {
		return Fail[struct{}](err)
	}
	call := b.proxy.StateCall(ctx, payload)
	return then(b.router, call, b.onTransfer)
}

func (b *Bridge) cachedToken(tokenID string) (common.Address, error) {
	var addr common.Address
	err := b.router.exclusive(func() (err error) {
		addr, err = b.cache.RequireCached(tokenID)
		return err
	})
	if err != nil {
		return common.Address{}, err
	}
	b.log.Debug("Token address", "token", tokenID, "address", FormatAddress(addr))
	return addr, nil
}

// onNativeBalance is the continuation of GetNativeBalance. It decodes the
// 32-byte big-endian balance, or yields nil on failure.
func (b *Bridge) onNativeBalance(caller string, resp Response) (*uint256.Int, error) {
	if err := b.router.checkCaller(caller); err != nil {
		return nil, err
	}
	data, err := resp.Result()
	if err != nil {
		b.log.Warn("Failed to fetch native balance", "err", err)
		return nil, errAbsent
	}
	balance := new(uint256.Int).SetBytes32(data)
	b.log.Debug("Native balance", "balance", balance.Dec())
	return balance, nil
}

// onTokenBalance is the continuation of GetTokenBalance. Any failure
// outcome yields nil; the cache is never touched.
func (b *Bridge) onTokenBalance(caller string, resp Response) (*uint256.Int, error) {
	if err := b.router.checkCaller(caller); err != nil {
		return nil, err
	}
	data, err := resp.Result()
	if err != nil {
		b.log.Warn("Failed to fetch token balance", "err", err)
		return nil, errAbsent
	}
	balance, err := UnpackBalance(data)
	if err != nil {
		b.log.Warn("Failed to decode token balance", "err", err)
		return nil, errAbsent
	}
	b.log.Debug("Token balance", "balance", balance.Dec())
	return balance, nil
}

// onTokenAddress is the continuation of a token address resolution. On
// success it writes the mapping exactly once and returns the address; on
// failure nothing is written and the error wraps ErrResolutionFailed.
func (b *Bridge) onTokenAddress(caller, tokenID string, resp Response) (common.Address, error) {
	if err := b.router.checkCaller(caller); err != nil {
		return common.Address{}, err
	}
	data, err := resp.Result()
	if err != nil {
		b.log.Warn("Failed to resolve token address", "token", tokenID, "err", err)
		return common.Address{}, fmt.Errorf("%w: token %q: %w", ErrResolutionFailed, tokenID, err)
	}

	addr := common.BytesToAddress(data)
	if err := b.cache.Insert(tokenID, addr); err != nil {
		b.log.Error("Failed to store token address", "token", tokenID, "address", FormatAddress(addr), "err", err)
		return common.Address{}, fmt.Errorf("%w: token %q: %w", ErrResolutionFailed, tokenID, err)
	}
	b.log.Info("Token address resolved", "token", tokenID, "address", FormatAddress(addr))
	return addr, nil
}

// onTransfer is the continuation of TransferToken. A failed transfer is
// reported as a *RemoteCallError.
func (b *Bridge) onTransfer(caller string, resp Response) (struct{}, error) {
	if err := b.router.checkCaller(caller); err != nil {
		return struct{}{}, err
	}
	if _, err := resp.Result(); err != nil {
		b.log.Warn("Token transfer failed", "err", err)
		return struct{}{}, err
	}
	b.log.Debug("Token transfer succeeded")
	return struct{}{}, nil
}
