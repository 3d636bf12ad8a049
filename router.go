package evmbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/log"
)

// recentCalls is how many completed calls keep a queryable state.
const recentCalls = 1024

// errAbsent is returned by continuations whose call failed but whose
// operation reports the failure as an absent value rather than an error.
var errAbsent = errors.New("evmbridge: result absent")

// CallState is the lifecycle state of an issued remote call. There is no
// retry or cancellation state.
type CallState uint8

const (
	// StateIssued means the call has been handed to the engine.
	StateIssued CallState = iota

	// StateSucceeded means the engine returned a usable result.
	StateSucceeded

	// StateFailed means the engine returned a failure outcome or the
	// transport failed.
	StateFailed
)

func (s CallState) String() string {
	switch s {
	case StateIssued:
		return "issued"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Response is what the engine returned for one issued call, as delivered
// to its continuation.
type Response struct {
	Op   Operation
	Data []byte
	Err  error
}

// Result returns the usable return data of the response. Balances must be
// a 32-byte word and resolved addresses 20 bytes; view and call outcomes
// are decoded here. Every failure is reported as a *RemoteCallError that
// keeps the engine's failure variant.
func (r Response) Result() ([]byte, error) {
	if r.Err != nil {
		return nil, &RemoteCallError{Op: r.Op, Err: r.Err}
	}
	switch r.Op {
	case OpGetBalance:
		return r.sized(32)
	case OpResolveAddress:
		return r.sized(AddressLength)
	}
	o, err := DecodeOutcome(r.Data)
	if err != nil {
		return nil, &RemoteCallError{Op: r.Op, Err: err}
	}
	if !o.OK() {
		return nil, &RemoteCallError{Op: r.Op, Outcome: &o}
	}
	return o.Data, nil
}

func (r Response) sized(n int) ([]byte, error) {
	if len(r.Data) != n {
		err := fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidEncoding, n, len(r.Data))
		return nil, &RemoteCallError{Op: r.Op, Err: err}
	}
	return r.Data, nil
}

// IssuedCall is a remote call in flight. Exactly one continuation can be
// attached to it.
type IssuedCall struct {
	id       uint64
	op       Operation
	resp     chan Response
	attached atomic.Bool
}

// ID returns the router-assigned call id.
func (c *IssuedCall) ID() uint64 {
	return c.id
}

// Op returns the engine operation of the call.
func (c *IssuedCall) Op() Operation {
	return c.op
}

// deliver hands the engine's answer to the call. It is called once.
func (c *IssuedCall) deliver(resp Response) {
	c.resp <- resp
}

// Router tracks issued calls and runs their continuations one at a time on
// behalf of the bridge account.
type Router struct {
	self string
	log  log.Logger

	// serial is held while a continuation or a cache read of an entry point
	// runs, so the store is observed consistently across a suspension.
	serial sync.Mutex

	mu       sync.Mutex
	nextID   uint64
	inFlight map[uint64]struct{}
	recent   lru.BasicLRU[uint64, CallState]
}

// NewRouter creates a router acting for the local account self.
func NewRouter(self string, logger log.Logger) *Router {
	if logger == nil {
		logger = log.Root()
	}
	return &Router{
		self:     self,
		log:      logger,
		inFlight: make(map[uint64]struct{}),
		recent:   lru.NewBasicLRU[uint64, CallState](recentCalls),
	}
}

// register records a new call in the issued state.
func (r *Router) register(op Operation) *IssuedCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	c := &IssuedCall{
		id:   r.nextID,
		op:   op,
		resp: make(chan Response, 1),
	}
	r.inFlight[c.id] = struct{}{}
	return c
}

func (r *Router) complete(id uint64, state CallState) {
	r.mu.Lock()
	delete(r.inFlight, id)
	r.recent.Add(id, state)
	r.mu.Unlock()
}

// State returns the state of the call with the given id. Only calls in
// flight and the most recently completed ones are known.
func (r *Router) State(id uint64) (CallState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inFlight[id]; ok {
		return StateIssued, true
	}
	return r.recent.Peek(id)
}

// Issued returns the number of calls issued so far.
func (r *Router) Issued() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.nextID)
}

// InFlight returns the number of calls whose continuation has not run yet.
func (r *Router) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inFlight)
}

// checkCaller rejects anyone but the bridge account.
func (r *Router) checkCaller(caller string) error {
	if caller != r.self {
		return fmt.Errorf("%w: %q", ErrNotSelf, caller)
	}
	return nil
}

// exclusive runs fn while no continuation is running.
func (r *Router) exclusive(fn func() error) error {
	r.serial.Lock()
	defer r.serial.Unlock()
	return fn()
}

// then attaches cont to call. cont runs after the call's response arrives,
// serialized with every other continuation of the router, and is invoked
// with the bridge account as caller. The call fails if the response is a
// failure or cont returns an error; errAbsent fails the call but resolves
// the Pending with the zero value and no error.
func then[T any](r *Router, call *IssuedCall, cont func(caller string, resp Response) (T, error)) *Pending[T] {
	p := newPending[T]()
	if !call.attached.CompareAndSwap(false, true) {
		var zero T
		p.resolve(zero, ErrContinuationAttached)
		return p
	}

	go func() {
		resp := <-call.resp

		r.serial.Lock()
		v, err := cont(r.self, resp)
		state := StateSucceeded
		if _, rerr := resp.Result(); rerr != nil || err != nil {
			state = StateFailed
		}
		r.complete(call.id, state)
		r.serial.Unlock()

		if errors.Is(err, errAbsent) {
			err = nil
		}

		r.log.Trace("Continuation finished", "id", call.id, "op", call.op, "state", state)
		p.resolve(v, err)
	}()
	return p
}

// Pending is the eventual result of a public operation. It completes once,
// either immediately (cache hit, validation failure) or when the
// continuation of the issued call has run.
type Pending[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

// Ready returns a completed Pending holding v.
func Ready[T any](v T) *Pending[T] {
	p := newPending[T]()
	p.resolve(v, nil)
	return p
}

// Fail returns a completed Pending holding err.
func Fail[T any](err error) *Pending[T] {
	p := newPending[T]()
	var zero T
	p.resolve(zero, err)
	return p
}

func (p *Pending[T]) resolve(v T, err error) {
	p.once.Do(func() {
		p.value = v
		p.err = err
		close(p.done)
	})
}

// Done is closed once the result is available.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the result is available or ctx is done. Giving up on
// ctx does not cancel the remote call.
func (p *Pending[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
