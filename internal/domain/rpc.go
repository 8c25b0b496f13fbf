package domain

import (
	"bytes"
	"encoding/json"
)

// RPCCall is a single JSON-RPC method invocation
type RPCCall struct {
	Method string
	Params []any
}

// RPCRequest is a JSON-RPC 2.0 request object
type RPCRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// RPCResponse is a JSON-RPC 2.0 response object
type RPCResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// HasResult reports whether the response carries a non-null result
func (r *RPCResponse) HasResult() bool {
	return r != nil && len(r.Result) > 0 && !bytes.Equal(r.Result, []byte("null"))
}
