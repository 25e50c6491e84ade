// Copyright 2026 Kestrel Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Node error codes surfaced through the JSON-RPC error object.
const (
	// CodeLockContention is raised when the node loses an internal lock
	// race while serving the call. Safe to retry.
	CodeLockContention = 3030100
	// CodeUnknownException is the node's catch-all for unclassified
	// internal failures. Safe to retry.
	CodeUnknownException = 4990000
	// CodeTxExpired is raised when a broadcast transaction's expiry has
	// lapsed before inclusion. The caller must rebuild.
	CodeTxExpired = 4030100
	// CodeTxDuplicate is raised for a duplicate or conflicting
	// transaction. The caller must rebuild.
	CodeTxDuplicate = 4100000
)

// RPCError is an error object returned by the chain node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("chain rpc error %d: %s", e.Code, e.Message)
}

// HTTPError is a non-200 response from the chain gateway.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("chain gateway returned HTTP %d", e.StatusCode)
}

// IsTransient reports whether an error is worth retrying: node lock
// contention, node unknown-exception errors, and gateway internal error
// or timeout responses. Everything else is fatal and propagates
// immediately.
func IsTransient(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == CodeLockContention ||
			rpcErr.Code == CodeUnknownException
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusInternalServerError ||
			httpErr.StatusCode == http.StatusGatewayTimeout
	}
	return false
}

// IsRejected reports whether a broadcast was rejected in a way that
// requires the caller to rebuild the transaction: expired or duplicate.
func IsRejected(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == CodeTxExpired ||
			rpcErr.Code == CodeTxDuplicate
	}
	return false
}
