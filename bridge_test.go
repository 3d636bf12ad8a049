package evmbridge

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	bridgeAccount = "bridge.example"
	tokenID       = "token.example"
)

var tokenAddress = common.BytesToAddress(bytes.Repeat([]byte{0x11}, 20))

func newTestBridge(t *testing.T, engine *fakeEngine) (*Bridge, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	return New(bridgeAccount, engine, store, WithLogger(discardLogger())), store
}

func resolvesTo(addr common.Address) func(string) ([]byte, error) {
	return func(string) ([]byte, error) { return addr.Bytes(), nil }
}

func viewReturns(o Outcome) func(common.Address, CallPayload) ([]byte, error) {
	return func(common.Address, CallPayload) ([]byte, error) { return EncodeOutcome(o), nil }
}

func callReturns(o Outcome) func(CallPayload) ([]byte, error) {
	return func(CallPayload) ([]byte, error) { return EncodeOutcome(o), nil }
}

// seed stores the token mapping without a remote call.
func seed(t *testing.T, b *Bridge) {
	t.Helper()
	if err := b.Cache().Insert(tokenID, tokenAddress); err != nil {
		t.Fatal(err)
	}
}

func TestSelfAddress(t *testing.T) {
	b, _ := newTestBridge(t, &fakeEngine{})

	if b.Account() != bridgeAccount {
		t.Errorf("Expected account %s, got %s", bridgeAccount, b.Account())
	}
	if b.Address() != DeriveAddress(bridgeAccount) {
		t.Errorf("Expected derived address, got %s", b.Address().Hex())
	}
	if b.SelfAddress() != FormatAddress(DeriveAddress(bridgeAccount)) {
		t.Errorf("Unexpected self address %s", b.SelfAddress())
	}
	if b.SelfAddress() != b.SelfAddress() {
		t.Error("Self address must be stable")
	}
}

func TestResolveTokenAddress(t *testing.T) {
	t.Run("first resolution stores both directions", func(t *testing.T) {
		engine := &fakeEngine{resolve: resolvesTo(tokenAddress)}
		b, store := newTestBridge(t, engine)

		got, err := b.ResolveTokenAddress(testContext(t), tokenID).Await(testContext(t))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got != "0x1111111111111111111111111111111111111111" {
			t.Errorf("Unexpected address %s", got)
		}
		if engine.count(OpResolveAddress) != 1 {
			t.Errorf("Expected 1 resolve call, got %d", engine.count(OpResolveAddress))
		}
		if engine.gas[0] != 10*TGas {
			t.Errorf("Expected 10 TGas, got %d", engine.gas[0])
		}
		if engine.tokenIDs[0] != tokenID {
			t.Errorf("Expected token id %s, got %s", tokenID, engine.tokenIDs[0])
		}
		if store.Len() != 2 {
			t.Errorf("Expected 2 keys, got %d", store.Len())
		}
		if id, ok, _ := b.Cache().LookupAddress(tokenAddress); !ok || id != tokenID {
			t.Errorf("Expected reverse entry %s, got %q", tokenID, id)
		}
	})

	t.Run("cached resolution issues no call", func(t *testing.T) {
		engine := &fakeEngine{resolve: resolvesTo(tokenAddress)}
		b, _ := newTestBridge(t, engine)
		ctx := testContext(t)

		for i := 0; i < 3; i++ {
			got, err := b.ResolveAndStore(ctx, tokenID).Await(ctx)
			if err != nil {
				t.Fatalf("Resolve %d: %v", i, err)
			}
			if got != tokenAddress {
				t.Errorf("Resolve %d: unexpected address %s", i, got.Hex())
			}
		}
		if engine.total() != 1 {
			t.Errorf("Expected 1 remote call, got %d", engine.total())
		}
		if b.Router().Issued() != 1 {
			t.Errorf("Expected 1 issued call, got %d", b.Router().Issued())
		}
	})

	t.Run("cache hit completes immediately", func(t *testing.T) {
		b, _ := newTestBridge(t, &fakeEngine{})
		seed(t, b)

		p := b.ResolveTokenAddress(testContext(t), tokenID)
		select {
		case <-p.Done():
		default:
			t.Fatal("Expected an immediate result")
		}
	})

	t.Run("concurrent resolutions are not coalesced", func(t *testing.T) {
		engine := &fakeEngine{resolve: resolvesTo(tokenAddress), gate: make(chan struct{})}
		b, store := newTestBridge(t, engine)
		ctx := testContext(t)

		first := b.ResolveTokenAddress(ctx, tokenID)
		second := b.ResolveTokenAddress(ctx, tokenID)
		close(engine.gate)

		for _, p := range []*Pending[string]{first, second} {
			got, err := p.Await(ctx)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != FormatAddress(tokenAddress) {
				t.Errorf("Unexpected address %s", got)
			}
		}
		if engine.count(OpResolveAddress) != 2 {
			t.Errorf("Expected 2 resolve calls, got %d", engine.count(OpResolveAddress))
		}
		if store.Len() != 2 {
			t.Errorf("Expected 2 keys, got %d", store.Len())
		}
	})

	t.Run("failure writes nothing", func(t *testing.T) {
		tests := []struct {
			name    string
			resolve func(string) ([]byte, error)
			wantErr error
		}{
			{"transport", func(string) ([]byte, error) { return nil, errors.New("unreachable") }, ErrRemoteCallFailed},
			{"budget", func(string) ([]byte, error) { return nil, ErrResourceExhausted }, ErrResourceExhausted},
			{"short address", func(string) ([]byte, error) { return []byte{1, 2, 3}, nil }, ErrInvalidEncoding},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				engine := &fakeEngine{resolve: tt.resolve}
				b, store := newTestBridge(t, engine)
				ctx := testContext(t)

				_, err := b.ResolveTokenAddress(ctx, tokenID).Await(ctx)
				if !errors.Is(err, ErrResolutionFailed) {
					t.Fatalf("Expected ErrResolutionFailed, got %v", err)
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v in chain, got %v", tt.wantErr, err)
				}
				if store.Len() != 0 {
					t.Errorf("Expected empty store, got %d keys", store.Len())
				}
				id := b.Router().Issued()
				if s, _ := b.Router().State(uint64(id)); s != StateFailed {
					t.Errorf("Expected failed call, got %s", s)
				}
			})
		}
	})

	t.Run("conflicting address is rejected", func(t *testing.T) {
		engine := &fakeEngine{resolve: resolvesTo(tokenAddress)}
		b, _ := newTestBridge(t, engine)
		if err := b.Cache().Insert("other.example", tokenAddress); err != nil {
			t.Fatal(err)
		}

		_, err := b.ResolveTokenAddress(testContext(t), tokenID).Await(testContext(t))
		if !errors.Is(err, ErrMappingConflict) {
			t.Fatalf("Expected ErrMappingConflict, got %v", err)
		}
		if _, ok, _ := b.Cache().Lookup(tokenID); ok {
			t.Error("Conflicting entry was written")
		}
		if s, _ := b.Router().State(uint64(b.Router().Issued())); s != StateFailed {
			t.Errorf("Expected failed call, got %s", s)
		}
	})
}

func TestGetTokenBalance(t *testing.T) {
	t.Run("unresolved token", func(t *testing.T) {
		engine := &fakeEngine{}
		b, _ := newTestBridge(t, engine)

		_, err := b.GetTokenBalance(testContext(t), tokenID).Await(testContext(t))
		if !errors.Is(err, ErrUnresolvedMapping) {
			t.Fatalf("Expected ErrUnresolvedMapping, got %v", err)
		}
		if engine.total() != 0 {
			t.Errorf("Expected no remote calls, got %d", engine.total())
		}
	})

	t.Run("balance", func(t *testing.T) {
		engine := &fakeEngine{view: viewReturns(Succeeded(balanceWord(750)))}
		b, _ := newTestBridge(t, engine)
		seed(t, b)

		bal, err := b.GetTokenBalance(testContext(t), tokenID).Await(testContext(t))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if bal == nil || bal.Uint64() != 750 {
			t.Fatalf("Expected 750, got %v", bal)
		}

		if engine.gas[0] != 100*TGas {
			t.Errorf("Expected 100 TGas, got %d", engine.gas[0])
		}
		if engine.senders[0] != b.Address() {
			t.Errorf("Expected sender %s, got %s", b.Address().Hex(), engine.senders[0].Hex())
		}
		p := engine.payloads[0]
		if p.Target != tokenAddress || p.HasValue() {
			t.Error("Unexpected target or value")
		}
		if !bytes.Equal(p.Input, MustBuildInput(BalanceOfSignature, b.Address())) {
			t.Errorf("Unexpected input %x", p.Input)
		}
	})

	t.Run("out of resource is absent", func(t *testing.T) {
		engine := &fakeEngine{view: viewReturns(Failed(StatusOutOfResource))}
		b, store := newTestBridge(t, engine)
		seed(t, b)

		bal, err := b.GetTokenBalance(testContext(t), tokenID).Await(testContext(t))
		if err != nil || bal != nil {
			t.Fatalf("Expected absent result, got %v, %v", bal, err)
		}
		if store.Len() != 2 {
			t.Errorf("Cache changed: %d keys", store.Len())
		}
	})

	t.Run("revert and garbage are absent", func(t *testing.T) {
		for _, o := range []Outcome{Reverted([]byte("no")), Succeeded([]byte{1, 2})} {
			engine := &fakeEngine{view: viewReturns(o)}
			b, _ := newTestBridge(t, engine)
			seed(t, b)

			bal, err := b.GetTokenBalance(testContext(t), tokenID).Await(testContext(t))
			if err != nil || bal != nil {
				t.Errorf("%s: expected absent result, got %v, %v", o.Status, bal, err)
			}
			if s, _ := b.Router().State(uint64(b.Router().Issued())); s != StateFailed {
				t.Errorf("%s: expected failed call, got %s", o.Status, s)
			}
		}
	})
}

func TestGetNativeBalance(t *testing.T) {
	t.Run("balance", func(t *testing.T) {
		engine := &fakeEngine{balance: func(common.Address) ([]byte, error) { return balanceWord(1000), nil }}
		b, _ := newTestBridge(t, engine)

		bal, err := b.GetNativeBalance(testContext(t)).Await(testContext(t))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if bal == nil || !bal.Eq(uint256.NewInt(1000)) {
			t.Fatalf("Expected 1000, got %v", bal)
		}
		if engine.gas[0] != 5*TGas {
			t.Errorf("Expected 5 TGas, got %d", engine.gas[0])
		}
	})

	t.Run("queries the bridge address", func(t *testing.T) {
		var asked common.Address
		engine := &fakeEngine{balance: func(a common.Address) ([]byte, error) {
			asked = a
			return balanceWord(0), nil
		}}
		b, _ := newTestBridge(t, engine)

		bal, err := b.GetNativeBalance(testContext(t)).Await(testContext(t))
		if err != nil || bal == nil || !bal.IsZero() {
			t.Fatalf("Expected zero balance, got %v, %v", bal, err)
		}
		if asked != b.Address() {
			t.Errorf("Expected %s, got %s", b.Address().Hex(), asked.Hex())
		}
	})

	t.Run("failure is absent", func(t *testing.T) {
		for name, fn := range map[string]func(common.Address) ([]byte, error){
			"transport":  func(common.Address) ([]byte, error) { return nil, errors.New("down") },
			"short word": func(common.Address) ([]byte, error) { return []byte{1}, nil },
		} {
			b, _ := newTestBridge(t, &fakeEngine{balance: fn})
			bal, err := b.GetNativeBalance(testContext(t)).Await(testContext(t))
			if err != nil || bal != nil {
				t.Errorf("%s: expected absent result, got %v, %v", name, bal, err)
			}
			if s, _ := b.Router().State(uint64(b.Router().Issued())); s != StateFailed {
				t.Errorf("%s: expected failed call, got %s", name, s)
			}
		}
	})
}

func TestTransferToken(t *testing.T) {
	recipient := "0x2222222222222222222222222222222222222222"

	t.Run("unresolved token issues no call", func(t *testing.T) {
		engine := &fakeEngine{}
		b, _ := newTestBridge(t, engine)

		_, err := b.TransferToken(testContext(t), bridgeAccount, tokenID, recipient, uint256.NewInt(1)).Await(testContext(t))
		if !errors.Is(err, ErrUnresolvedMapping) {
			t.Fatalf("Expected ErrUnresolvedMapping, got %v", err)
		}
		if engine.total() != 0 || b.Router().Issued() != 0 {
			t.Errorf("Expected no remote calls, got %d", engine.total())
		}
	})

	t.Run("transfer", func(t *testing.T) {
		engine := &fakeEngine{call: callReturns(Succeeded(nil))}
		b, _ := newTestBridge(t, engine)
		seed(t, b)

		_, err := b.TransferToken(testContext(t), bridgeAccount, tokenID, recipient, uint256.NewInt(1000)).Await(testContext(t))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if engine.count(OpCall) != 1 {
			t.Fatalf("Expected 1 call, got %d", engine.count(OpCall))
		}
		if engine.gas[0] != 200*TGas {
			t.Errorf("Expected 200 TGas, got %d", engine.gas[0])
		}
		p := engine.payloads[0]
		if p.Target != tokenAddress || p.HasValue() {
			t.Error("Unexpected target or value")
		}
		want := MustBuildInput(TransferSignature, MustParseAddress(recipient), uint256.NewInt(1000))
		if !bytes.Equal(p.Input, want) {
			t.Errorf("Expected input %x, got %x", want, p.Input)
		}
		if s, _ := b.Router().State(1); s != StateSucceeded {
			t.Errorf("Expected succeeded, got %s", s)
		}
	})

	t.Run("revert is an error", func(t *testing.T) {
		engine := &fakeEngine{call: callReturns(Reverted([]byte("insufficient balance")))}
		b, _ := newTestBridge(t, engine)
		seed(t, b)

		_, err := b.TransferToken(testContext(t), bridgeAccount, tokenID, recipient, uint256.NewInt(1)).Await(testContext(t))
		var callErr *RemoteCallError
		if !errors.As(err, &callErr) {
			t.Fatalf("Expected *RemoteCallError, got %v", err)
		}
		if callErr.Outcome == nil || callErr.Outcome.Status != StatusReverted {
			t.Errorf("Expected reverted outcome, got %+v", callErr.Outcome)
		}
	})

	t.Run("out of resource", func(t *testing.T) {
		engine := &fakeEngine{call: callReturns(Failed(StatusOutOfResource))}
		b, _ := newTestBridge(t, engine)
		seed(t, b)

		_, err := b.TransferToken(testContext(t), bridgeAccount, tokenID, recipient, uint256.NewInt(1)).Await(testContext(t))
		if !errors.Is(err, ErrResourceExhausted) {
			t.Fatalf("Expected ErrResourceExhausted, got %v", err)
		}
	})

	t.Run("foreign caller", func(t *testing.T) {
		engine := &fakeEngine{call: callReturns(Succeeded(nil))}
		b, _ := newTestBridge(t, engine)
		seed(t, b)

		_, err := b.TransferToken(testContext(t), "mallory.example", tokenID, recipient, uint256.NewInt(1)).Await(testContext(t))
		if !errors.Is(err, ErrNotSelf) {
			t.Fatalf("Expected ErrNotSelf, got %v", err)
		}
		if engine.total() != 0 {
			t.Errorf("Expected no remote calls, got %d", engine.total())
		}
	})

	t.Run("malformed recipient", func(t *testing.T) {
		engine := &fakeEngine{call: callReturns(Succeeded(nil))}
		b, _ := newTestBridge(t, engine)
		seed(t, b)

		for _, r := range []string{"", "2222222222222222222222222222222222222222", "0x2222", "0X2222222222222222222222222222222222222222"} {
			_, err := b.TransferToken(testContext(t), bridgeAccount, tokenID, r, uint256.NewInt(1)).Await(testContext(t))
			if !errors.Is(err, ErrMalformedAddress) {
				t.Errorf("%q: expected ErrMalformedAddress, got %v", r, err)
			}
		}
		if engine.total() != 0 {
			t.Errorf("Expected no remote calls, got %d", engine.total())
		}
	})
}

func TestContinuationsRejectForeignCaller(t *testing.T) {
	engine := &fakeEngine{}
	b, store := newTestBridge(t, engine)
	resp := Response{Op: OpResolveAddress, Data: tokenAddress.Bytes()}

	if _, err := b.onTokenAddress("mallory.example", tokenID, resp); !errors.Is(err, ErrNotSelf) {
		t.Errorf("onTokenAddress: expected ErrNotSelf, got %v", err)
	}
	if store.Len() != 0 {
		t.Error("Forged continuation wrote to the cache")
	}
	if _, err := b.onNativeBalance("mallory.example", Response{Op: OpGetBalance, Data: balanceWord(1)}); !errors.Is(err, ErrNotSelf) {
		t.Errorf("onNativeBalance: expected ErrNotSelf, got %v", err)
	}
	if _, err := b.onTokenBalance("mallory.example", Response{Op: OpView}); !errors.Is(err, ErrNotSelf) {
		t.Errorf("onTokenBalance: expected ErrNotSelf, got %v", err)
	}
	if _, err := b.onTransfer("mallory.example", Response{Op: OpCall}); !errors.Is(err, ErrNotSelf) {
		t.Errorf("onTransfer: expected ErrNotSelf, got %v", err)
	}

	addr, err := b.onTokenAddress(bridgeAccount, tokenID, resp)
	if err != nil || addr != tokenAddress {
		t.Fatalf("Expected %s, got %s, %v", tokenAddress.Hex(), addr.Hex(), err)
	}
	if store.Len() != 2 {
		t.Errorf("Expected 2 keys, got %d", store.Len())
	}
}

func TestBridgeBudgets(t *testing.T) {
	engine := &fakeEngine{balance: func(common.Address) ([]byte, error) { return balanceWord(1), nil }}
	b := New(bridgeAccount, engine, NewMemoryStore(),
		WithLogger(discardLogger()),
		WithBudgets(Budgets{GetBalance: 7 * TGas}),
	)

	if _, err := b.GetNativeBalance(testContext(t)).Await(testContext(t)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if engine.gas[0] != 7*TGas {
		t.Errorf("Expected 7 TGas, got %d", engine.gas[0])
	}
}

func TestBridgeConcurrentOperations(t *testing.T) {
	engine := &fakeEngine{
		balance: func(common.Address) ([]byte, error) { return balanceWord(1), nil },
		view:    viewReturns(Succeeded(balanceWord(2))),
		call:    callReturns(Succeeded(nil)),
	}
	b, _ := newTestBridge(t, engine)
	seed(t, b)
	ctx := testContext(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, 3*n)
	for i := 0; i < n; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := b.GetNativeBalance(ctx).Await(ctx)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := b.GetTokenBalance(ctx, tokenID).Await(ctx)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := b.TransferToken(ctx, bridgeAccount, tokenID, FormatAddress(b.Address()), uint256.NewInt(1)).Await(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if b.Router().Issued() != 3*n || b.Router().InFlight() != 0 {
		t.Errorf("Expected %d settled calls, got %d issued, %d in flight", 3*n, b.Router().Issued(), b.Router().InFlight())
	}
}
