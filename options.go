package evmbridge

import "github.com/ethereum/go-ethereum/log"

// Option configures a Bridge.
type Option func(*bridgeConfig)

// bridgeConfig holds the settings New applies.
type bridgeConfig struct {
	logger  log.Logger
	budgets Budgets
}

// defaultBridgeConfig returns the default bridge configuration.
func defaultBridgeConfig() *bridgeConfig {
	return &bridgeConfig{
		logger:  log.Root().New("module", "evmbridge"),
		budgets: DefaultBudgets(),
	}
}

// WithLogger sets the logger used by the bridge, its proxy and router.
func WithLogger(logger log.Logger) Option {
	return func(c *bridgeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBudgets overrides the per-operation gas budgets.
// Zero fields keep their default.
func WithBudgets(b Budgets) Option {
	return func(c *bridgeConfig) {
		if b.GetBalance != 0 {
			c.budgets.GetBalance = b.GetBalance
		}
		if b.ResolveAddress != 0 {
			c.budgets.ResolveAddress = b.ResolveAddress
		}
		if b.View != 0 {
			c.budgets.View = b.View
		}
		if b.Call != 0 {
			c.budgets.Call = b.Call
		}
	}
}
