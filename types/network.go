package types

import "strings"

// ChainFamily classifies a network into a blockchain family.
type ChainFamily string

const (
	ChainEVM     ChainFamily = "evm"
	ChainSolana  ChainFamily = "solana"
	ChainUnknown ChainFamily = "unknown"
)

// Network represents supported blockchain networks
type Network string

const (
	NetworkBase          Network = "base"
	NetworkSolanaMainnet Network = "solana-mainnet"
	NetworkSolanaDevnet  Network = "solana-devnet" // testnet
)

// KnownNetworks lists every network the gate knows how to price and verify.
var KnownNetworks = []Network{NetworkBase, NetworkSolanaMainnet, NetworkSolanaDevnet}

// Payment scheme identifiers advertised in 402 challenges.
const (
	SchemeEIP712 = "x402+eip712"
	SchemeSolana = "x402+solana"
)

func (n Network) IsEVM() bool {
	return n == NetworkBase
}

func (n Network) IsSolana() bool {
	return n == NetworkSolanaMainnet || n == NetworkSolanaDevnet
}

func (n Network) IsTestnet() bool {
	return n == NetworkSolanaDevnet
}

func (n Network) Family() ChainFamily {
	switch {
	case n.IsEVM():
		return ChainEVM
	case n.IsSolana():
		return ChainSolana
	default:
		return ChainUnknown
	}
}

// DefaultScheme returns the scheme identifier clients must use on this network.
func (n Network) DefaultScheme() string {
	if n.IsSolana() {
		return SchemeSolana
	}
	return SchemeEIP712
}

// EnvKey returns the upper-snake form used in environment variable names,
// e.g. "solana-mainnet" -> "SOLANA_MAINNET".
func (n Network) EnvKey() string {
	return strings.ToUpper(strings.ReplaceAll(string(n), "-", "_"))
}

func (n Network) String() string {
	return string(n)
}

// ParseNetwork maps a free-form network name onto a known Network.
// Unknown names are returned unchanged with ok=false.
func ParseNetwork(s string) (Network, bool) {
	n := Network(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range KnownNetworks {
		if n == known {
			return n, true
		}
	}
	return n, false
}
