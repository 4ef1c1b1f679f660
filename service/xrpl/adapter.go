package xrpl

import (
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// NewRPCClient creates a JSON-RPC client for a rippled or Clio endpoint.
// Public endpoints include https://s1.ripple.com:51234/ and https://xrplcluster.com/.
func NewRPCClient(rpcURL string) RPCClient {
	return jsonrpc.NewClient(rpcURL)
}
