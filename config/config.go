// Package config loads the gate configuration from the environment.
//
// The result is built once at process start and passed explicitly to the
// gate; nothing in the verification path reads the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/x402pay/paygate/types"
	"github.com/x402pay/paygate/utils"
)

// USDC contract and mint addresses used when no asset is configured.
var DefaultAssets = map[types.Network]string{
	types.NetworkBase:          "0x833589fCD6eDb6E08f4c7C32D4f71B54bdA02913",
	types.NetworkSolanaMainnet: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	types.NetworkSolanaDevnet:  "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
}

const (
	DefaultPort         = "8080"
	DefaultPrice        = "$1.00"
	DefaultTimeout      = 10 * time.Second
	DefaultEVMRPCURL    = "https://mainnet.base.org"
	DefaultSolanaRPCURL = "https://api.mainnet-beta.solana.com"
	DefaultCategory     = "api"
	DefaultServiceLabel = "x402 gated resource"
)

// ChainConfig holds everything needed to price and verify payments on one network.
type ChainConfig struct {
	Network types.Network `validate:"required"`

	// Base URL of the facilitator for this network. Empty disables the
	// facilitator and every verification goes straight to the fallback.
	FacilitatorURL string `validate:"omitempty,url"`

	PayTo  string `validate:"required"`
	Asset  string `validate:"required"`
	Scheme string `validate:"required"`
}

// Config is the immutable gate configuration.
type Config struct {
	Port     string `validate:"required"`
	LogLevel string `validate:"oneof=debug info warn error"`

	DefaultPrice string `validate:"required"`

	// Networks is the allow-list advertised in challenges, in order.
	Networks []types.Network              `validate:"required,min=1,dive,oneof=base solana-mainnet solana-devnet"`
	Chains   map[types.Network]ChainConfig `validate:"dive"`

	// Timeout bounds every facilitator and RPC call.
	Timeout time.Duration `validate:"gt=0"`

	EVMRPCURL         string `validate:"omitempty,url"`
	RequireEVMReceipt bool

	SolanaRPCURL     string `validate:"omitempty,url"`
	RequireSolanaRPC bool

	// DatabaseURL is a PostgreSQL DSN for the audit store. Empty selects the
	// in-memory store.
	DatabaseURL string

	Category     string
	ServiceLabel string
}

// Chain returns the configuration of an allow-listed network.
func (c *Config) Chain(n types.Network) (ChainConfig, bool) {
	if !c.Allows(n) {
		return ChainConfig{}, false
	}
	chain, ok := c.Chains[n]
	return chain, ok
}

// Allows reports whether n is on the allow-list.
func (c *Config) Allows(n types.Network) bool {
	for _, allowed := range c.Networks {
		if allowed == n {
			return true
		}
	}
	return false
}

// Validate checks struct constraints and that every allowed network is configured.
func (c *Config) Validate() error {
	if err := utils.Validator().Struct(c); err != nil {
		return types.NewError(types.ErrConfigError, "invalid configuration", err)
	}

	for _, n := range c.Networks {
		chain, ok := c.Chains[n]
		if !ok {
			return types.NewError(types.ErrConfigError, fmt.Sprintf("network %s is allowed but not configured", n), nil)
		}
		if err := utils.ValidateAddressForNetwork(chain.PayTo, n); err != nil {
			return types.NewError(types.ErrConfigError, fmt.Sprintf("invalid payTo for %s", n), err)
		}
		if err := utils.ValidateAddressForNetwork(chain.Asset, n); err != nil {
			return types.NewError(types.ErrConfigError, fmt.Sprintf("invalid asset for %s", n), err)
		}
	}

	if c.RequireSolanaRPC && c.SolanaRPCURL == "" {
		return types.NewError(types.ErrConfigError, "SOLANA_REQUIRE_RPC needs SOLANA_RPC_URL", nil)
	}

	return nil
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return FromEnv(os.Getenv)
}

// FromEnv builds a validated Config from an environment lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := envReader(getenv)

	networks, err := parseNetworks(env.str("X402_NETWORKS", string(types.NetworkBase)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:              env.str("PORT", DefaultPort),
		LogLevel:          strings.ToLower(env.str("LOG_LEVEL", "info")),
		DefaultPrice:      env.str("X402_DEFAULT_PRICE", DefaultPrice),
		Networks:          networks,
		Chains:            make(map[types.Network]ChainConfig, len(networks)),
		Timeout:           env.duration("X402_TIMEOUT", DefaultTimeout),
		EVMRPCURL:         env.str("EVM_RPC_URL", DefaultEVMRPCURL),
		RequireEVMReceipt: env.boolean("EVM_REQUIRE_RECEIPT", false),
		SolanaRPCURL:      env.str("SOLANA_RPC_URL", DefaultSolanaRPCURL),
		RequireSolanaRPC:  env.boolean("SOLANA_REQUIRE_RPC", false),
		DatabaseURL:       env.str("DATABASE_URL", ""),
		Category:          env.str("X402_CATEGORY", DefaultCategory),
		ServiceLabel:      env.str("X402_SERVICE_LABEL", DefaultServiceLabel),
	}

	for _, n := range networks {
		prefix := "X402_" + n.EnvKey() + "_"
		cfg.Chains[n] = ChainConfig{
			Network:        n,
			FacilitatorURL: strings.TrimRight(env.str(prefix+"FACILITATOR_URL", ""), "/"),
			PayTo:          env.str(prefix+"PAY_TO", ""),
			Asset:          env.str(prefix+"ASSET", DefaultAssets[n]),
			Scheme:         env.str(prefix+"SCHEME", n.DefaultScheme()),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseNetworks(list string) ([]types.Network, error) {
	var networks []types.Network
	seen := make(map[types.Network]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		n, ok := types.ParseNetwork(part)
		if !ok {
			return nil, types.NewError(types.ErrConfigError, fmt.Sprintf("unsupported network in X402_NETWORKS: %q", part), nil)
		}
		if !seen[n] {
			seen[n] = true
			networks = append(networks, n)
		}
	}
	return networks, nil
}

type envReader func(string) string

func (e envReader) str(key, defaultValue string) string {
	if value := strings.TrimSpace(e(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) boolean(key string, defaultValue bool) bool {
	if value := e(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func (e envReader) duration(key string, defaultValue time.Duration) time.Duration {
	if value := e(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
