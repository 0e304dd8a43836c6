package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

func parseSpecFlags(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	specs := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("spec %q must be key=value", v)
		}
		specs[key] = strings.TrimSpace(value)
	}
	return specs, nil
}

// parseCost checks the amount locally so a typo fails before any network call.
func parseCost(raw string) (json.Number, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("purchase cost %q is not a decimal amount", raw)
	}
	return json.Number(d.String()), nil
}

// attachmentMeta describes a local file. The server stores metadata only.
func attachmentMeta(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return map[string]any{
		"name":         filepath.Base(path),
		"content_type": http.DetectContentType(head[:n]),
		"size":         info.Size(),
	}, nil
}
