package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"mirrorevm/core"
	"mirrorevm/core/types"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	maxBatchSize    = 50
)

const (
	codeReverted       = 3
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeServerError    = -32000
	codeNotFound       = -32001
	codeRateLimited    = -32005
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      json.RawMessage   `json:"id,omitempty"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

func invalidParams(message string) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: message}
}

// revertError renders a domain revert the way ethereum clients do: code 3
// with the raw revert payload as data.
func revertError(reason string, data []byte) *RPCError {
	message := "execution reverted"
	if reason != "" {
		message += ": " + reason
	}
	return &RPCError{Code: codeReverted, Message: message, Data: hexutil.Bytes(data).String()}
}

// toRPCError maps the service error taxonomy onto JSON-RPC codes.
func toRPCError(err error) *RPCError {
	var (
		revert   *types.RevertError
		unknown  *types.UnknownBlockError
		notFound *types.NotFoundError
	)
	switch {
	case errors.As(err, &revert):
		return revertError(revert.Reason, revert.Data)
	case errors.As(err, &unknown):
		return &RPCError{Code: codeInvalidParams, Message: err.Error(), Data: map[string]string{
			"requested": hexutil.EncodeUint64(unknown.Requested),
			"latest":    hexutil.EncodeUint64(unknown.Latest),
		}}
	case errors.Is(err, types.ErrInvalidBlockTag):
		return invalidParams(err.Error())
	case errors.As(err, &notFound):
		return &RPCError{Code: codeNotFound, Message: err.Error(), Data: map[string]string{
			"kind": string(notFound.Kind),
			"id":   notFound.ID,
		}}
	case errors.Is(err, types.ErrUnsupported):
		return &RPCError{Code: codeMethodNotFound, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &RPCError{Code: codeServerError, Message: "request timed out"}
	case errors.Is(err, context.Canceled):
		return &RPCError{Code: codeServerError, Message: "request canceled"}
	case errors.Is(err, core.ErrClosed):
		return &RPCError{Code: codeServerError, Message: err.Error()}
	}
	return &RPCError{Code: codeInternal, Message: err.Error()}
}

// httpStatus picks the transport status for a failed request. Errors about
// the execution itself travel with 200 like any other JSON-RPC result.
func httpStatus(rpcErr *RPCError) int {
	switch rpcErr.Code {
	case codeParseError, codeInvalidRequest:
		return http.StatusBadRequest
	case codeRateLimited:
		return http.StatusTooManyRequests
	case codeInternal:
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, id json.RawMessage, rpcErr *RPCError) {
	writeJSON(w, httpStatus(rpcErr), RPCResponse{JSONRPC: jsonRPCVersion, ID: nullID(id), Error: rpcErr})
}

func nullID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
