package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
	"github.com/x402pay/paygate/types"
)

// SolanaSignatureLen is the decoded length of an ed25519 transaction signature.
const SolanaSignatureLen = 64

var evmHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidateTransactionHash checks the shape of a transaction identifier for
// the given network.
func ValidateTransactionHash(hash string, network types.Network) error {
	if hash == "" {
		return fmt.Errorf("transaction hash cannot be empty")
	}

	switch {
	case network.IsEVM():
		// 0x + 64 hex
		if !evmHashPattern.MatchString(hash) {
			return fmt.Errorf("EVM transaction hash must be 0x followed by 64 hex characters")
		}

	case network.IsSolana():
		sig, err := base58.Decode(hash)
		if err != nil {
			return fmt.Errorf("Solana transaction signature must be valid base58: %w", err)
		}
		if len(sig) != SolanaSignatureLen {
			return fmt.Errorf("Solana transaction signature must decode to %d bytes, got %d", SolanaSignatureLen, len(sig))
		}

	default:
		return fmt.Errorf("unsupported network for transaction hash validation: %s", network)
	}

	return nil
}

// ValidateAddressForNetwork validates addresses for different networks
func ValidateAddressForNetwork(address string, network types.Network) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	switch {
	case network.IsEVM():
		if !common.IsHexAddress(address) || !strings.HasPrefix(address, "0x") {
			return fmt.Errorf("EVM address must be 0x followed by 40 hex characters")
		}

	case network.IsSolana():
		key, err := base58.Decode(address)
		if err != nil {
			return fmt.Errorf("Solana address must be valid base58: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("Solana address must decode to 32 bytes, got %d", len(key))
		}

	default:
		return fmt.Errorf("unsupported network for address validation: %s", network)
	}

	return nil
}

// SameAddress compares two addresses. EVM addresses compare case-insensitively,
// Solana keys are case-sensitive base58.
func SameAddress(a, b string, network types.Network) bool {
	if network.IsSolana() {
		return a == b
	}
	return strings.EqualFold(a, b)
}
