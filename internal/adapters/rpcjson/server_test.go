package rpcjson

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/adapters/db/sqlite"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/application"
)

type testConn struct {
	t   *testing.T
	dec *json.Decoder
	enc *json.Encoder
	id  int
}

func startTestServer(t *testing.T) *testConn {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "rpc_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqlite.RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	svc := application.NewService(sqlite.NewRepository(db))
	if err := svc.BootstrapAdmin(ctx, "root@example.com", "correct-horse"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	// unix socket paths are length limited, so keep it out of the long test dir
	dir, err := os.MkdirTemp("", "ams-rpc")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	srv, err := Start(filepath.Join(dir, "rpc.sock"), svc)
	if err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	conn, err := net.Dial("unix", filepath.Join(dir, "rpc.sock"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		_ = srv.Close()
		_ = os.RemoveAll(dir)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testConn{t: t, dec: json.NewDecoder(conn), enc: json.NewEncoder(conn)}
}

type testResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *testConn) call(method string, params any) testResponse {
	c.t.Helper()
	c.id++
	if err := c.enc.Encode(map[string]any{"jsonrpc": "2.0", "method": method, "params": params, "id": c.id}); err != nil {
		c.t.Fatalf("encode %s: %v", method, err)
	}
	var resp testResponse
	if err := c.dec.Decode(&resp); err != nil {
		c.t.Fatalf("decode %s: %v", method, err)
	}
	return resp
}

func (c *testConn) ok(method string, params any, out any) {
	c.t.Helper()
	resp := c.call(method, params)
	if resp.Error != nil {
		c.t.Fatalf("%s: %d %s", method, resp.Error.Code, resp.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			c.t.Fatalf("%s result: %v", method, err)
		}
	}
}

func (c *testConn) code(method string, params any) int {
	c.t.Helper()
	resp := c.call(method, params)
	if resp.Error == nil {
		return 0
	}
	return resp.Error.Code
}

func TestRPCAssetAllocationFlow(t *testing.T) {
	c := startTestServer(t)

	if code := c.code("assets.list", map[string]any{"token": "bogus"}); code != 40100 {
		t.Fatalf("expected 40100 for a bad token, got %d", code)
	}
	if code := c.code("assets.nope", map[string]any{"token": "bogus"}); code != -32601 {
		t.Fatalf("expected method not found, got %d", code)
	}

	var login struct {
		UserID uint   `json:"user_id"`
		Token  string `json:"token"`
	}
	c.ok("auth.login", map[string]any{"email": "root@example.com", "password": "correct-horse"}, &login)
	if login.Token == "" {
		t.Fatalf("expected a token")
	}

	var asset struct {
		ID     uint
		Tag    string
		Status string
	}
	c.ok("assets.create", map[string]any{"token": login.Token, "tag": "kb-7", "name": "Keyboard", "category": "keyboard"}, &asset)
	if asset.Tag != "KB-7" || asset.Status != "available" {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if code := c.code("assets.create", map[string]any{"token": login.Token, "tag": "kb-7", "name": "Keyboard", "category": "keyboard"}); code != 40900 {
		t.Fatalf("duplicate tag: expected 40900, got %d", code)
	}
	if code := c.code("assets.create", map[string]any{"token": login.Token, "tag": "x-1", "name": "Thing", "category": "hovercraft"}); code != 40000 {
		t.Fatalf("bad category: expected 40000, got %d", code)
	}

	c.ok("allocations.create", map[string]any{"token": login.Token, "asset_id": asset.ID, "employee_id": login.UserID}, nil)
	if code := c.code("allocations.create", map[string]any{"token": login.Token, "asset_id": asset.ID, "employee_id": login.UserID}); code != 40900 {
		t.Fatalf("double allocation: expected 40900, got %d", code)
	}
	if code := c.code("assets.get", map[string]any{"token": login.Token, "id": 4242}); code != 40400 {
		t.Fatalf("missing asset: expected 40400, got %d", code)
	}

	var exported struct {
		CSV string `json:"csv"`
	}
	c.ok("assets.export", map[string]any{"token": login.Token}, &exported)
	if exported.CSV == "" {
		t.Fatalf("expected csv output")
	}

	var history []struct{ Action string }
	c.ok("history.list", map[string]any{"token": login.Token, "subject_type": "asset", "subject_id": asset.ID}, &history)
	if len(history) == 0 {
		t.Fatalf("expected asset history")
	}
}
