package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"mirrorevm/core/trace"
	"mirrorevm/core/types"
)

// CallArgs is the transaction object of eth_call and eth_estimateGas.
type CallArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Gas   *hexutil.Uint64 `json:"gas"`
	Value *hexutil.Big    `json:"value"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (a CallArgs) data() ([]byte, error) {
	if a.Data != nil && a.Input != nil && !bytes.Equal(*a.Data, *a.Input) {
		return nil, fmt.Errorf("both \"data\" and \"input\" are set and differ")
	}
	if a.Input != nil {
		return *a.Input, nil
	}
	if a.Data != nil {
		return *a.Data, nil
	}
	return nil, nil
}

// request converts the arguments into a call against block.
func (a CallArgs) request(block types.BlockTag) (types.CallRequest, error) {
	data, err := a.data()
	if err != nil {
		return types.CallRequest{}, err
	}
	req := types.CallRequest{Receiver: a.To, Data: data, Block: block}
	if a.From != nil {
		req.Sender = *a.From
	}
	if a.Gas != nil {
		req.GasLimit = uint64(*a.Gas)
	}
	if a.Value != nil {
		req.Value = a.Value.ToInt()
		if req.Value.Sign() < 0 {
			return types.CallRequest{}, fmt.Errorf("negative value")
		}
	}
	return req, nil
}

// TraceConfig mirrors the struct logger switches of debug_traceTransaction.
// Every capture is on unless disabled.
type TraceConfig struct {
	DisableStack   bool `json:"disableStack"`
	DisableMemory  bool `json:"disableMemory"`
	DisableStorage bool `json:"disableStorage"`
}

func (c TraceConfig) options() types.TracerOptions {
	return types.TracerOptions{
		Stack:   !c.DisableStack,
		Memory:  !c.DisableMemory,
		Storage: !c.DisableStorage,
	}
}

// StructLog is one interpreter step in debug_traceTransaction output.
type StructLog struct {
	PC      uint64            `json:"pc"`
	Op      string            `json:"op"`
	Gas     uint64            `json:"gas"`
	GasCost uint64            `json:"gasCost"`
	Depth   int               `json:"depth"`
	Stack   []string          `json:"stack,omitempty"`
	Memory  []string          `json:"memory,omitempty"`
	Storage map[string]string `json:"storage,omitempty"`
	Reason  string            `json:"reason,omitempty"`
}

// TraceResult is the debug_traceTransaction response body.
type TraceResult struct {
	Gas         uint64      `json:"gas"`
	Failed      bool        `json:"failed"`
	ReturnValue string      `json:"returnValue"`
	StructLogs  []StructLog `json:"structLogs"`
}

func newTraceResult(tr *trace.Trace) TraceResult {
	out := TraceResult{
		Gas:         tr.Result.GasUsed,
		Failed:      !tr.Result.Success,
		ReturnValue: hex.EncodeToString(tr.Result.Output),
		StructLogs:  make([]StructLog, 0, tr.Steps),
	}
	for entry := range tr.Entries() {
		out.StructLogs = append(out.StructLogs, newStructLog(entry))
	}
	return out
}

func newStructLog(e types.TraceEntry) StructLog {
	log := StructLog{
		PC:      e.PC,
		Op:      e.Op,
		Gas:     e.RemainingGas,
		GasCost: e.GasCost,
		Depth:   e.Depth,
		Reason:  e.Reason,
	}
	if e.Stack != nil {
		log.Stack = make([]string, len(e.Stack))
		for i := range e.Stack {
			log.Stack[i] = e.Stack[i].Hex()
		}
	}
	if e.Memory != nil {
		log.Memory = make([]string, 0, (len(e.Memory)+31)/32)
		for i := 0; i < len(e.Memory); i += 32 {
			log.Memory = append(log.Memory, hex.EncodeToString(common.RightPadBytes(e.Memory[i:min(i+32, len(e.Memory))], 32)))
		}
	}
	if e.Storage != nil {
		log.Storage = make(map[string]string, len(e.Storage))
		for k, v := range e.Storage {
			log.Storage[hex.EncodeToString(k[:])] = hex.EncodeToString(v[:])
		}
	}
	return log
}

// parseBlockParam accepts a block tag string or an object with blockNumber.
func parseBlockParam(raw json.RawMessage) (types.BlockTag, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return types.LatestBlock, nil
	}
	var tag string
	if err := json.Unmarshal(raw, &tag); err == nil {
		return types.ParseBlockTag(tag)
	}
	var obj struct {
		BlockNumber *string `json:"blockNumber"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.BlockNumber == nil {
		return types.BlockTag{}, fmt.Errorf("%w: %s", types.ErrInvalidBlockTag, strings.TrimSpace(string(raw)))
	}
	return types.ParseBlockTag(*obj.BlockNumber)
}
