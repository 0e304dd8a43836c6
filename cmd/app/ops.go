package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// operation describes one call in both transports: a JSON-RPC method on the
// unix socket and an HTTP route. params feed the RPC params object, the HTTP
// query string for GET, or the JSON body otherwise.
type operation struct {
	rpc    string
	method string
	path   string
	params map[string]any
}

func (o operation) run(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket, cfg.Token).call(ctx, o.rpc, o.params, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	if o.method == http.MethodGet {
		return client.request(ctx, http.MethodGet, o.path+encodeQuery(o.params), nil, out)
	}
	var body any
	if len(o.params) > 0 {
		body = o.params
	}
	return client.request(ctx, o.method, o.path, body, out)
}

func encodeQuery(params map[string]any) string {
	q := url.Values{}
	for k, v := range params {
		switch t := v.(type) {
		case nil:
		case string:
			if t != "" {
				q.Set(k, t)
			}
		case int:
			if t != 0 {
				q.Set(k, strconv.Itoa(t))
			}
		case uint:
			q.Set(k, uintToString(t))
		case *uint:
			if t != nil {
				q.Set(k, uintToString(*t))
			}
		default:
			q.Set(k, fmt.Sprint(t))
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func doLogin(ctx context.Context, cfg cliConfig, email, password, tokenName string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket, "").call(ctx, "auth.login", map[string]any{
			"email":      email,
			"password":   password,
			"token_name": tokenName,
		}, out)
	}
	client := newAPIClient(cfg.Server, "")
	return client.request(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"email":      email,
		"password":   password,
		"mode":       "token",
		"token_name": tokenName,
	}, out)
}

func doWhoAmI(ctx context.Context, cfg cliConfig, out any) error {
	return operation{rpc: "auth.whoami", method: http.MethodGet, path: "/api/auth/whoami"}.run(ctx, cfg, out)
}

func doLogout(ctx context.Context, cfg cliConfig) error {
	if cfg.Transport == "uds" {
		return nil
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// doImport sends a CSV document to resource ("assets" or "users").
func doImport(ctx context.Context, cfg cliConfig, resource string, csv []byte, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket, cfg.Token).call(ctx, resource+".import", map[string]any{"csv": string(csv)}, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).upload(ctx, "/api/"+resource+"/import", csv, out)
}

func doExport(ctx context.Context, cfg cliConfig, resource string, filter map[string]any) ([]byte, error) {
	if cfg.Transport == "uds" {
		var out struct {
			CSV string `json:"csv"`
		}
		if err := newRPCClient(cfg.Socket, cfg.Token).call(ctx, resource+".export", filter, &out); err != nil {
			return nil, err
		}
		return []byte(out.CSV), nil
	}
	return newAPIClient(cfg.Server, cfg.Token).download(ctx, "/api/"+resource+"/export"+encodeQuery(filter))
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
