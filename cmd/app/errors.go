package main

import (
	"errors"
	"fmt"
	"net/http"
)

// remoteError is a failure reported by the server over either transport.
// Code is the HTTP status or the JSON-RPC error code.
type remoteError struct {
	Transport string
	Code      int
	Kind      string
	Message   string
}

func (e *remoteError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s error (%d %s): %s", e.Transport, e.Code, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s error (%d): %s", e.Transport, e.Code, e.Message)
}

// Exit codes let scripts branch on the failure kind.
var kindExitCodes = map[string]int{
	"validation":         2,
	"unauthenticated":    3,
	"forbidden":          4,
	"not_found":          5,
	"conflict":           6,
	"invalid_attachment": 7,
	"unavailable":        8,
}

func errorKind(err error) string {
	var re *remoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := kindExitCodes[errorKind(err)]; ok {
		return code
	}
	return 1
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "invalid_attachment"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	return "internal"
}

// RPC application codes are the HTTP status times one hundred.
func kindForRPCCode(code int) string {
	switch code {
	case -32602:
		return "validation"
	case -32601, -32700:
		return "internal"
	}
	return kindForStatus(code / 100)
}
