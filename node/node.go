// Package node assembles a bridge from its file-based configuration: the
// mapping store under DataDir and the engine at EngineURL.
package node

import (
	"context"
	"errors"
	"fmt"

	evmbridge "github.com/branched-services/go-evmbridge"
	"github.com/branched-services/go-evmbridge/pebblestore"
	"github.com/branched-services/go-evmbridge/rpcengine"
	"github.com/ethereum/go-ethereum/log"
)

// ErrNoEngine is returned when the configuration names no EngineURL and no
// fallback engine was given.
var ErrNoEngine = errors.New("node: no engine configured")

// Node owns a bridge together with the store and engine connection it was
// opened with.
type Node struct {
	bridge *evmbridge.Bridge
	store  *pebblestore.Store
	client *rpcengine.Client
	engine string
}

// Open validates cfg and builds a bridge from it. A non-empty DataDir keeps
// the mapping cache on disk, otherwise it lives in memory. A non-empty
// EngineURL is dialed; otherwise fallback serves as the engine.
func Open(ctx context.Context, cfg evmbridge.Config, fallback evmbridge.Engine, opts ...evmbridge.Option) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.EngineURL == "" && fallback == nil {
		return nil, ErrNoEngine
	}

	n := &Node{engine: cfg.Engine}

	var err error
	if cfg.DataDir != "" {
		n.store, err = pebblestore.Open(cfg.DataDir)
	} else {
		n.store, err = pebblestore.OpenInMemory()
	}
	if err != nil {
		return nil, fmt.Errorf("node: open store: %w", err)
	}

	engine := fallback
	if cfg.EngineURL != "" {
		n.client, err = rpcengine.Dial(ctx, cfg.EngineURL)
		if err != nil {
			n.store.Close()
			return nil, fmt.Errorf("node: dial engine %s: %w", cfg.EngineURL, err)
		}
		engine = n.client
	}

	n.bridge = evmbridge.New(cfg.Account, engine, n.store, append(cfg.Options(), opts...)...)

	log.Info("Bridge started", "account", cfg.Account, "address", n.bridge.SelfAddress(),
		"engine", cfg.Engine, "url", cfg.EngineURL, "datadir", cfg.DataDir)
	return n, nil
}

// Bridge returns the assembled bridge.
func (n *Node) Bridge() *evmbridge.Bridge { return n.bridge }

// Engine returns the configured engine account id.
func (n *Node) Engine() string { return n.engine }

// Close releases the engine connection and the store.
func (n *Node) Close() error {
	if n.client != nil {
		n.client.Close()
	}
	return n.store.Close()
}
