package anvil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/rpc"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

// Caller sends a single JSON-RPC call
type Caller interface {
	Call(ctx context.Context, method string, params ...any) (*domain.RPCResponse, error)
}

// Node issues the anvil-specific RPC calls used while preparing the chain
type Node struct {
	rpc Caller
	log *slog.Logger
}

// NewNode creates a node backed by the given RPC caller
func NewNode(caller Caller, log *slog.Logger) *Node {
	return &Node{
		rpc: caller,
		log: log.With("component", "AnvilNode"),
	}
}

// NewNodeFromClient adapts the batch RPC client to a Node
func NewNodeFromClient(client *rpc.Client, log *slog.Logger) *Node {
	return NewNode(client, log)
}

// SetNextBlockTimestamp pins the timestamp of the next mined block
func (n *Node) SetNextBlockTimestamp(ctx context.Context, timestamp int64) error {
	_, err := n.call(ctx, "anvil_setNextBlockTimestamp", timestamp)
	return err
}

// SetBlockTimestampInterval makes every new block advance time by seconds
func (n *Node) SetBlockTimestampInterval(ctx context.Context, seconds int64) error {
	_, err := n.call(ctx, "anvil_setBlockTimestampInterval", seconds)
	return err
}

// RemoveBlockTimestampInterval restores wall-clock block timestamps
func (n *Node) RemoveBlockTimestampInterval(ctx context.Context) error {
	_, err := n.call(ctx, "anvil_removeBlockTimestampInterval")
	return err
}

// Snapshot records the current chain state and returns the snapshot id
func (n *Node) Snapshot(ctx context.Context) (string, error) {
	result, err := n.callResult(ctx, "evm_snapshot")
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(result, &id); err != nil {
		return "", fmt.Errorf("failed to parse snapshot ID: %w", err)
	}
	return id, nil
}

// Mine mines a single block
func (n *Node) Mine(ctx context.Context) error {
	_, err := n.call(ctx, "evm_mine")
	return err
}

// BlockNumber returns the current head block number
func (n *Node) BlockNumber(ctx context.Context) (uint64, error) {
	result, err := n.callResult(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	var hex string
	if err := json.Unmarshal(result, &hex); err != nil {
		return 0, fmt.Errorf("failed to parse block number: %w", err)
	}
	number, err := hexutil.DecodeUint64(hex)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q: %w", hex, err)
	}
	return number, nil
}

func (n *Node) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	resp, err := n.rpc.Call(ctx, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%s: %w", method, resp.Error)
	}
	n.log.Debug("rpc call", "method", method, "params", params)
	return resp.Result, nil
}

// callResult is call for methods whose result must be present
func (n *Node) callResult(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	resp, err := n.rpc.Call(ctx, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%s: %w", method, resp.Error)
	}
	if !resp.HasResult() {
		return nil, fmt.Errorf("%s: response has no result", method)
	}
	n.log.Debug("rpc call", "method", method, "params", params)
	return resp.Result, nil
}

// Ensure the node implements the interface
var _ usecase.ChainNode = (*Node)(nil)
