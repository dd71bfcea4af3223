// Package rpc serves the simulated execution API as Ethereum-style JSON-RPC
// over HTTP.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coretrace "mirrorevm/core/trace"
	"mirrorevm/core/types"
	"mirrorevm/observability"
	"mirrorevm/observability/logging"
)

const requestIDHeader = "X-Request-ID"

// Backend is the execution API served over JSON-RPC. *core.Service
// satisfies it.
type Backend interface {
	Call(ctx context.Context, req types.CallRequest) (*types.CallResult, error)
	EstimateGas(ctx context.Context, req types.CallRequest) (uint64, error)
	Trace(ctx context.Context, id string, opts types.TracerOptions) (*coretrace.Trace, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	RateLimit RateLimit
	// RequestTimeout bounds each JSON-RPC request. Zero disables the bound.
	RequestTimeout time.Duration
}

type handlerFunc func(ctx context.Context, params []json.RawMessage) (any, *RPCError)

type Server struct {
	backend Backend
	cfg     ServerConfig
	limiter *RateLimiter
	tracer  trace.Tracer
	logger  *slog.Logger
	methods map[string]handlerFunc
}

func NewServer(backend Backend, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		backend: backend,
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.RateLimit),
		tracer:  otel.Tracer("mirrorevm/rpc"),
		logger:  logger,
	}
	s.methods = map[string]handlerFunc{
		"eth_call":               s.handleCall,
		"eth_estimateGas":        s.handleEstimateGas,
		"eth_blockNumber":        s.handleBlockNumber,
		"debug_traceTransaction": s.handleTraceTransaction,
	}
	return s
}

// Handler returns the HTTP routes: JSON-RPC on POST /, plus health and
// prometheus endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.backend.BlockNumber(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.With(s.limiter.Middleware).Post("/", s.handle)
	return otelhttp.NewHandler(r, "mirrorevm-rpc")
}

// Serve listens on addr until ctx is done, then drains in-flight requests
// for at most grace.
func (s *Server) Serve(ctx context.Context, addr string, grace time.Duration) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("json-rpc server listening", "address", listener.Addr().String())
		errCh <- srv.Serve(listener)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type requestIDKey struct{}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	body, err := io.ReadAll(reader)
	if err != nil {
		rpcErr := &RPCError{Code: codeInvalidRequest, Message: "failed to read request body"}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			rpcErr.Message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, nil, rpcErr)
		return
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		writeError(w, nil, &RPCError{Code: codeInvalidRequest, Message: "request body required"})
		return
	}

	if body[0] == '[' {
		var batch []RPCRequest
		if err := json.Unmarshal(body, &batch); err != nil {
			writeError(w, nil, &RPCError{Code: codeParseError, Message: "invalid JSON payload", Data: err.Error()})
			return
		}
		if len(batch) == 0 || len(batch) > maxBatchSize {
			writeError(w, nil, &RPCError{Code: codeInvalidRequest, Message: fmt.Sprintf("batch must hold 1 to %d requests", maxBatchSize)})
			return
		}
		responses := make([]RPCResponse, len(batch))
		for i := range batch {
			responses[i] = s.dispatch(r.Context(), &batch[i])
		}
		writeJSON(w, http.StatusOK, responses)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, nil, &RPCError{Code: codeParseError, Message: "invalid JSON payload", Data: err.Error()})
		return
	}
	resp := s.dispatch(r.Context(), req)
	status := http.StatusOK
	if resp.Error != nil {
		status = httpStatus(resp.Error)
	}
	writeJSON(w, status, resp)
}

// dispatch runs one request and never fails: every error becomes part of the
// response.
func (s *Server) dispatch(ctx context.Context, req *RPCRequest) RPCResponse {
	start := time.Now()
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: nullID(req.ID)}
	switch {
	case req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion:
		resp.Error = &RPCError{Code: codeInvalidRequest, Message: "unsupported jsonrpc version", Data: req.JSONRPC}
	case req.Method == "":
		resp.Error = &RPCError{Code: codeInvalidRequest, Message: "method required"}
	}
	if resp.Error != nil {
		observability.RPC().Observe(req.Method, resp.Error.Code, time.Since(start))
		return resp
	}
	handler, ok := s.methods[req.Method]
	if !ok {
		resp.Error = &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("method %s not found", req.Method)}
		observability.RPC().Observe("unknown", resp.Error.Code, time.Since(start))
		return resp
	}

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}
	ctx, span := s.tracer.Start(ctx, req.Method, trace.WithAttributes(
		attribute.String("rpc.method", req.Method),
		attribute.String("rpc.request_id", requestIDFrom(ctx)),
	))
	defer span.End()

	result, rpcErr := handler(ctx, req.Params)
	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
		resp.Error = rpcErr
		span.SetStatus(codes.Error, rpcErr.Message)
		level := slog.LevelDebug
		if rpcErr.Code == codeInternal {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "json-rpc request failed",
			"method", req.Method,
			"request_id", requestIDFrom(ctx),
			"code", rpcErr.Code,
			"error", rpcErr.Message)
	} else {
		resp.Result = result
	}
	observability.RPC().Observe(req.Method, code, time.Since(start))
	return resp
}

func (s *Server) handleCall(ctx context.Context, params []json.RawMessage) (any, *RPCError) {
	req, rpcErr := callParams(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	s.logger.Debug("eth_call", "request_id", requestIDFrom(ctx), logging.MaskHex("data", req.Data), "block", req.Block.String())
	res, err := s.backend.Call(ctx, req)
	if err != nil {
		return nil, toRPCError(err)
	}
	if res.Success {
		return hexutil.Bytes(res.Output), nil
	}
	if res.Reverted() {
		return nil, revertError(res.RevertReason, res.Output)
	}
	return nil, &RPCError{Code: codeServerError, Message: res.HaltReason}
}

func (s *Server) handleEstimateGas(ctx context.Context, params []json.RawMessage) (any, *RPCError) {
	req, rpcErr := callParams(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	gas, err := s.backend.EstimateGas(ctx, req)
	if err != nil {
		return nil, toRPCError(err)
	}
	return hexutil.Uint64(gas), nil
}

func (s *Server) handleBlockNumber(ctx context.Context, _ []json.RawMessage) (any, *RPCError) {
	n, err := s.backend.BlockNumber(ctx)
	if err != nil {
		return nil, toRPCError(err)
	}
	return hexutil.Uint64(n), nil
}

func (s *Server) handleTraceTransaction(ctx context.Context, params []json.RawMessage) (any, *RPCError) {
	if len(params) == 0 || len(params) > 2 {
		return nil, invalidParams("expected transaction id or hash and optional tracer config")
	}
	var id string
	if err := json.Unmarshal(params[0], &id); err != nil || id == "" {
		return nil, invalidParams("transaction id or hash must be a string")
	}
	var cfg TraceConfig
	if len(params) == 2 && string(params[1]) != "null" {
		if err := json.Unmarshal(params[1], &cfg); err != nil {
			return nil, invalidParams("invalid tracer config: " + err.Error())
		}
	}
	if _, err := coretrace.ParseTransactionRef(id); err != nil {
		return nil, invalidParams(err.Error())
	}
	tr, err := s.backend.Trace(ctx, id, cfg.options())
	if err != nil {
		return nil, toRPCError(err)
	}
	return newTraceResult(tr), nil
}

func callParams(params []json.RawMessage) (types.CallRequest, *RPCError) {
	if len(params) == 0 || len(params) > 2 {
		return types.CallRequest{}, invalidParams("expected call object and optional block")
	}
	var args CallArgs
	if err := json.Unmarshal(params[0], &args); err != nil {
		return types.CallRequest{}, invalidParams("invalid call object: " + err.Error())
	}
	var raw json.RawMessage
	if len(params) == 2 {
		raw = params[1]
	}
	block, err := parseBlockParam(raw)
	if err != nil {
		return types.CallRequest{}, toRPCError(err)
	}
	req, err := args.request(block)
	if err != nil {
		return types.CallRequest{}, invalidParams(err.Error())
	}
	return req, nil
}
