package clients

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/x402pay/paygate/types"
)

const erc20TransferABI = `[{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

// TransferSelector is the ERC-20 transfer(address,uint256) method ID.
var TransferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

var erc20ABI = mustParseABI(erc20TransferABI)

var _ Client = (*EVMClient)(nil)

// rpcTransaction is the subset of eth_getTransactionByHash the fallback reads.
type rpcTransaction struct {
	Hash        common.Hash     `json:"hash"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	Input       hexutil.Bytes   `json:"input"`
	BlockNumber *hexutil.Big    `json:"blockNumber"`
}

type rpcReceipt struct {
	Status hexutil.Uint64 `json:"status"`
}

// EVMClient checks ERC-20 transfers over JSON-RPC.
type EVMClient struct {
	network        types.Network
	rpcURL         string
	client         *rpc.Client
	requireReceipt bool
}

// EVMOption configures an EVMClient.
type EVMOption func(*EVMClient)

// WithRequireReceipt makes the client also require a successful receipt,
// which rejects pending and reverted transactions.
func WithRequireReceipt(require bool) EVMOption {
	return func(c *EVMClient) {
		c.requireReceipt = require
	}
}

// NewEVMClient dials the RPC endpoint. Dialing an HTTP endpoint does not
// contact the node.
func NewEVMClient(ctx context.Context, network types.Network, rpcURL string, httpClient *http.Client, opts ...EVMOption) (*EVMClient, error) {
	if !network.IsEVM() {
		return nil, types.NewError(types.ErrUnsupportedNetwork, fmt.Sprintf("network %s is not an EVM network", network), nil)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	client, err := rpc.DialOptions(ctx, rpcURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to EVM RPC: %w", err)
	}

	c := &EVMClient{
		network: network,
		rpcURL:  rpcURL,
		client:  client,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Supports implements Client.
func (c *EVMClient) Supports(network types.Network) bool {
	return network == c.network
}

// Close implements Client.
func (c *EVMClient) Close() {
	c.client.Close()
}

// VerifyPayment looks the transaction up and checks that it is an ERC-20
// transfer on the expected token addressed to the expected recipient.
// The transferred amount is decoded and reported but not compared.
func (c *EVMClient) VerifyPayment(ctx context.Context, req *VerifyRequest) (*types.VerifiedPayment, error) {
	var tx *rpcTransaction
	if err := c.client.CallContext(ctx, &tx, "eth_getTransactionByHash", req.TransactionHash); err != nil {
		return nil, unreachable("eth_getTransactionByHash failed", err)
	}
	if tx == nil {
		return nil, mismatch("transaction not found", nil)
	}

	if tx.To == nil || !strings.EqualFold(tx.To.Hex(), req.Asset) {
		return nil, mismatch("transaction is not sent to the token contract", nil)
	}

	recipient, value, err := DecodeTransfer(tx.Input)
	if err != nil {
		return nil, mismatch("transaction is not an ERC-20 transfer", err)
	}
	if !strings.EqualFold(recipient.Hex(), req.ExpectedRecipient) {
		return nil, mismatch(fmt.Sprintf("transfer recipient %s does not match payTo", recipient.Hex()), nil)
	}

	if c.requireReceipt {
		if err := c.checkReceipt(ctx, req.TransactionHash); err != nil {
			return nil, err
		}
	}

	return &types.VerifiedPayment{
		TransactionHash: req.TransactionHash,
		Network:         c.network,
		Amount:          value.String(),
		From:            tx.From.Hex(),
		To:              recipient.Hex(),
		VerifiedBy:      types.VerifiedByFallback,
	}, nil
}

func (c *EVMClient) checkReceipt(ctx context.Context, hash string) error {
	var receipt *rpcReceipt
	if err := c.client.CallContext(ctx, &receipt, "eth_getTransactionReceipt", hash); err != nil {
		return unreachable("eth_getTransactionReceipt failed", err)
	}
	if receipt == nil {
		return mismatch("transaction is not mined yet", nil)
	}
	if receipt.Status != 1 {
		return mismatch("transaction reverted", nil)
	}
	return nil
}

// DecodeTransfer unpacks transfer(address,uint256) calldata.
func DecodeTransfer(input []byte) (common.Address, *big.Int, error) {
	if len(input) < 4 || !bytes.Equal(input[:4], TransferSelector) {
		return common.Address{}, nil, fmt.Errorf("calldata does not start with transfer selector")
	}

	method := erc20ABI.Methods["transfer"]
	values, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to unpack transfer arguments: %w", err)
	}
	if len(values) != 2 {
		return common.Address{}, nil, fmt.Errorf("unexpected transfer argument count %d", len(values))
	}

	to, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("transfer recipient has type %T", values[0])
	}
	value, ok := values[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("transfer value has type %T", values[1])
	}
	return to, value, nil
}

// EncodeTransfer packs transfer(address,uint256) calldata.
func EncodeTransfer(to common.Address, value *big.Int) ([]byte, error) {
	return erc20ABI.Pack("transfer", to, value)
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}
