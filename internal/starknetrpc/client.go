// Package starknetrpc is a minimal Starknet JSON-RPC client, built on
// go-ethereum's generic rpc.Client (the same dial-and-call primitive the
// teacher uses via ethclient, which itself wraps rpc.Client) rather than
// ethclient directly, since Starknet's JSON-RPC method set
// (starknet_call, starknet_getNonce, ...) has no Ethereum-ABI-compatible
// transport in go-ethereum.
package starknetrpc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ponziland/chainindexer/internal/chain"
)

// Client wraps a Starknet JSON-RPC endpoint.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a Starknet JSON-RPC endpoint (e.g. a Juno or Pathfinder
// node, or a hosted provider).
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing starknet rpc %s: %v", chain.ErrTransport, url, err)
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// starknetCallRequest is the params object for starknet_call.
type starknetCallRequest struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector  string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

// decimalsSelector is the Starknet function selector for ERC20's
// decimals() view, precomputed as starknet_keccak("decimals") truncated to
// 250 bits per the Starknet selector convention.
const decimalsSelector = "0x4c4fb1ab068f6039d5780c68dd0fa2f8742cceb3426d19667778ca7f3518a9"

// Decimals calls the ERC20 decimals() view entrypoint on tokenAddress at
// the latest block and parses the single felt result as an integer
// (SPEC_FULL §3: token decimals are needed for USD conversion and are not
// reliably present in static config).
func (c *Client) Decimals(ctx context.Context, tokenAddress string) (int32, error) {
	req := starknetCallRequest{
		ContractAddress:   chain.NormalizeAddress(tokenAddress),
		EntryPointSelector: decimalsSelector,
		Calldata:          []string{},
	}

	var result []string
	err := c.rpc.CallContext(ctx, &result, "starknet_call", req, "latest")
	if err != nil {
		return 0, fmt.Errorf("%w: starknet_call decimals() on %s: %v", chain.ErrTransport, tokenAddress, err)
	}
	if len(result) == 0 {
		return 0, fmt.Errorf("%w: empty decimals() result for %s", chain.ErrParse, tokenAddress)
	}

	felt, err := chain.ParseU256(result[0])
	if err != nil {
		return 0, fmt.Errorf("%w: parsing decimals() felt %q: %v", chain.ErrParse, result[0], err)
	}
	return int32(felt.Big().Int64()), nil
}
