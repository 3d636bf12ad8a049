package evmbridge

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/naoina/toml"
)

// Config is the file-based configuration of a bridge deployment.
//
//	Account   = "bridge.example"
//	Engine    = "aurora"
//	EngineURL = "http://127.0.0.1:8545"
//	DataDir   = "/var/lib/evmbridge"
//
//	[Budgets]
//	GetBalance = 5000000000000
type Config struct {
	// Account is the bridge's own local account id.
	Account string

	// Engine is the local account id of the remote engine. It is reported
	// by the node and in its startup log.
	Engine string

	// EngineURL is the JSON-RPC endpoint node.Open dials. Empty means the
	// caller supplies the engine.
	EngineURL string

	// DataDir holds the pebble database node.Open keeps the mapping cache
	// in. Empty means in-memory.
	DataDir string

	Budgets Budgets
}

// DefaultConfig returns a configuration with the standard engine account
// and budgets.
func DefaultConfig() Config {
	return Config{
		Engine:  DefaultEngineAccount,
		Budgets: DefaultBudgets(),
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	if err := toml.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("evmbridge: config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields New cannot default.
func (c Config) Validate() error {
	if c.Account == "" {
		return errors.New("evmbridge: config: Account is required")
	}
	return nil
}

// Options converts the configuration into bridge options.
func (c Config) Options() []Option {
	return []Option{WithBudgets(c.Budgets)}
}
