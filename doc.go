// Package evmbridge lets an account in a hierarchical, human-readable
// namespace address and transact against resources that live inside an
// embedded EVM run by a remote execution engine.
//
// The bridge does three things:
//   - Derives its own 20-byte remote address from its local account id
//     (last 20 bytes of keccak256(id)).
//   - Issues the engine's four operations (native balance, token address
//     resolution, read-only view, state-mutating call) with fixed gas
//     budgets and handles each result in exactly one continuation.
//   - Keeps a persistent, write-once mapping between external token ids and
//     their remote addresses, filled lazily the first time a token is
//     resolved.
//
// # Basic Usage
//
//	store := evmbridge.NewMemoryStore()
//	engine, _ := rpcengine.Dial(ctx, "http://127.0.0.1:8545")
//	bridge := evmbridge.New("bridge.example", engine, store)
//
//	// Resolve once; later calls hit the cache.
//	addr, err := bridge.ResolveTokenAddress(ctx, "token.example").Await(ctx)
//
//	// Balances are nil when the engine call fails.
//	bal, err := bridge.GetTokenBalance(ctx, "token.example").Await(ctx)
//
// # Asynchronous Calls
//
// Every public operation returns a Pending. Operations that need no remote
// round trip (cache hits, validation failures) complete immediately.
// Otherwise the call is issued and its continuation runs when the engine
// answers. Continuations of one bridge never run concurrently, and only
// continuations write to the mapping cache.
//
// # Failures
//
// The engine reports view and call results as an Outcome. Every
// non-success variant is a failure, but the variant is preserved in
// RemoteCallError. Balance queries turn failures into a nil result; token
// resolution and transfers return the error.
package evmbridge
