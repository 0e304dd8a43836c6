package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// rpcClient speaks JSON-RPC 2.0 over the server's unix socket, one request
// per connection. A non-empty token is sent with every call.
type rpcClient struct {
	socket      string
	token       string
	dialTimeout time.Duration
	lastID      atomic.Int64
}

type rpcEnvelope struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
	ID      int64          `json:"id"`
}

type rpcReply struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Kind    string `json:"kind"`
	} `json:"error"`
	ID int64 `json:"id"`
}

func newRPCClient(socket, token string) *rpcClient {
	return &rpcClient{socket: socket, token: token, dialTimeout: 5 * time.Second}
}

func (c *rpcClient) call(ctx context.Context, method string, params map[string]any, out any) error {
	merged := make(map[string]any, len(params)+1)
	if c.token != "" {
		merged["token"] = c.token
	}
	for k, v := range params {
		merged[k] = v
	}

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socket)
	if err != nil {
		return fmt.Errorf("connect %s (is the server running?): %w", c.socket, err)
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	id := c.lastID.Add(1)
	if err := json.NewEncoder(conn).Encode(rpcEnvelope{JSONRPC: "2.0", Method: method, Params: merged, ID: id}); err != nil {
		return err
	}
	var reply rpcReply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return fmt.Errorf("read %s reply: %w", method, err)
	}
	if reply.Error != nil {
		kind := reply.Error.Kind
		if kind == "" {
			kind = kindForRPCCode(reply.Error.Code)
		}
		return &remoteError{Transport: "rpc", Code: reply.Error.Code, Kind: kind, Message: reply.Error.Message}
	}
	if reply.ID != id {
		return fmt.Errorf("%s: reply id %d does not match request %d", method, reply.ID, id)
	}
	if out == nil || len(reply.Result) == 0 {
		return nil
	}
	return json.Unmarshal(reply.Result, out)
}
