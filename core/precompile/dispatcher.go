package precompile

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"

	"mirrorevm/core/state"
	"mirrorevm/core/types"
)

// Reserved system contract addresses.
var (
	TokenServiceAddress = common.HexToAddress("0x0000000000000000000000000000000000000167")
	ExchangeRateAddress = common.HexToAddress("0x0000000000000000000000000000000000000168")
	PrngAddress         = common.HexToAddress("0x0000000000000000000000000000000000000169")
)

// RedirectSelector is the selector of redirectForToken(address,bytes). Token
// proxies forward every call to the token service prefixed with it.
var RedirectSelector = [4]byte{0x61, 0x8d, 0xc6, 0x5e}

// Frame is the calling context of one token-service invocation.
type Frame struct {
	// Sender is the account the token service acts for: the caller of the
	// precompile, or the caller of the token proxy for redirected calls.
	Sender common.Address
	Static bool
}

// FrameSource reports the innermost active call frame.
type FrameSource interface {
	Current() Frame
}

// Result is the outcome of one dispatch.
type Result struct {
	Op       Op
	Output   []byte
	Reverted bool
	Code     ResponseCode
	Reason   string
}

// Dispatcher executes token-service calls against a per-call overlay on a
// pinned state view. It is created for one call and is not safe for
// concurrent use.
type Dispatcher struct {
	ctx    context.Context
	view   *state.View
	ledger *Ledger
	keys   keyCodec
	mode   types.ExecutionMode
	frames FrameSource
	logger *slog.Logger

	err error
}

// NewDispatcher binds a dispatcher to one call.
func NewDispatcher(ctx context.Context, view *state.View, mode types.ExecutionMode, frames FrameSource, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := view.Config()
	return &Dispatcher{
		ctx:    ctx,
		view:   view,
		ledger: NewLedger(view),
		keys:   keyCodec{shard: cfg.Shard, realm: cfg.Realm},
		mode:   mode,
		frames: frames,
		logger: logger,
	}
}

// Ledger exposes the overlay so frame tracking can checkpoint it.
func (d *Dispatcher) Ledger() *Ledger { return d.ledger }

// Err returns the first unsupported-operation or fatal error raised while
// the interpreter was driving the dispatcher.
func (d *Dispatcher) Err() error { return d.err }

// Name implements vm.PrecompiledContract.
func (d *Dispatcher) Name() string { return "HTS" }

// RequiredGas implements vm.PrecompiledContract.
func (d *Dispatcher) RequiredGas(input []byte) uint64 {
	bound, ok := lookup(input)
	if !ok {
		return gasView
	}
	return bound.def.gas
}

// Run implements vm.PrecompiledContract. Domain failures revert with the
// encoded reason; unsupported operations and fatal errors are recorded for
// the executor and abort the frame.
func (d *Dispatcher) Run(input []byte) ([]byte, error) {
	frame := Frame{}
	if d.frames != nil {
		frame = d.frames.Current()
	}
	res, err := d.Dispatch(input, frame)
	if err != nil {
		if d.err == nil {
			d.err = err
		}
		return nil, err
	}
	if res.Reverted {
		return res.Output, vm.ErrExecutionReverted
	}
	return res.Output, nil
}

// lookup resolves the operation an input addresses, looking through
// redirects to the wrapped token call.
func lookup(input []byte) (boundOp, bool) {
	if len(input) < 4 {
		return boundOp{}, false
	}
	bound, ok := htsBySelector[[4]byte(input[:4])]
	if !ok {
		return boundOp{}, false
	}
	if bound.def.kind != kindRedirect {
		return bound, true
	}
	_, inner, err := parseRedirect(input)
	if err != nil || len(inner) < 4 {
		return boundOp{}, false
	}
	bound, ok = ercBySelector[[4]byte(inner[:4])]
	return bound, ok
}

// Dispatch decodes and executes one token-service call. Domain failures come
// back as a reverted Result; the error return is reserved for unsupported
// operations (wrapping types.ErrUnsupported) and fatal conditions.
func (d *Dispatcher) Dispatch(input []byte, frame Frame) (Result, error) {
	if len(input) < 4 {
		return d.revert(OpUnknown, BadEncoding), nil
	}
	selector := [4]byte(input[:4])
	bound, ok := htsBySelector[selector]
	if !ok {
		return Result{}, &types.UnsupportedError{Operation: "0x" + hex.EncodeToString(selector[:])}
	}
	switch bound.def.kind {
	case kindUnsupported:
		return Result{Op: bound.op}, &types.UnsupportedError{Operation: bound.op.String()}
	case kindRedirect:
		return d.dispatchRedirect(input, frame)
	}
	return d.execute(bound, input[4:], common.Address{}, frame)
}

func (d *Dispatcher) dispatchRedirect(input []byte, frame Frame) (Result, error) {
	token, inner, err := parseRedirect(input)
	if err != nil || len(inner) < 4 {
		return d.revert(OpRedirectForToken, BadEncoding), nil
	}
	bound, ok := ercBySelector[[4]byte(inner[:4])]
	if !ok {
		return Result{Op: OpRedirectForToken}, &types.UnsupportedError{Operation: "redirect 0x" + hex.EncodeToString(inner[:4])}
	}
	return d.execute(bound, inner[4:], token, frame)
}

func (d *Dispatcher) execute(bound boundOp, data []byte, token common.Address, frame Frame) (Result, error) {
	if frame.Static && bound.def.kind == kindMutation {
		d.logger.Debug("token service mutation in static frame", "op", bound.op.String())
		return Result{Op: bound.op, Reverted: true, Reason: writeProtection, Output: revertData(writeProtection)}, nil
	}
	c := &call{op: bound.op, method: bound.method, data: data, token: token, frame: frame}
	checkpoint := d.ledger.Checkpoint()
	out, err := d.handle(c)
	if err != nil {
		d.ledger.RevertTo(checkpoint)
		var coded *codeError
		if errors.As(err, &coded) {
			return d.revert(bound.op, coded.code), nil
		}
		return Result{Op: bound.op}, err
	}
	return Result{Op: bound.op, Output: out, Code: Success}, nil
}

func (d *Dispatcher) revert(op Op, code ResponseCode) Result {
	reason := RevertReason(d.mode, code)
	d.logger.Debug("token service revert", "op", op.String(), "code", code.String(), "reason", reason)
	return Result{Op: op, Reverted: true, Code: code, Reason: reason, Output: revertData(reason)}
}

// call is one decoded invocation. token is set for redirected calls.
type call struct {
	op     Op
	method *abi.Method
	data   []byte
	token  common.Address
	frame  Frame
}

// args unpacks the call data into dst, a pointer to the argument struct of
// the operation.
func (c *call) args(dst any) error {
	values, err := c.method.Inputs.Unpack(c.data)
	if err != nil {
		return fail(BadEncoding)
	}
	if err := c.method.Inputs.Copy(dst, values); err != nil {
		return fail(BadEncoding)
	}
	return nil
}

func (c *call) pack(values ...any) ([]byte, error) {
	out, err := c.method.Outputs.Pack(values...)
	if err != nil {
		return nil, types.Internalf("encode %s result: %v", c.op, err)
	}
	return out, nil
}

func (c *call) success(values ...any) ([]byte, error) {
	return c.pack(append([]any{int64(Success)}, values...)...)
}

func (d *Dispatcher) handle(c *call) ([]byte, error) {
	switch c.op {
	case OpIsToken:
		return d.isToken(c)
	case OpIsFrozen:
		return d.isFrozen(c)
	case OpIsKyc:
		return d.isKyc(c)
	case OpGetTokenDefaultFreezeStatus:
		return d.defaultFreezeStatus(c)
	case OpGetTokenDefaultKycStatus:
		return d.defaultKycStatus(c)
	case OpGetTokenType:
		return d.tokenType(c)
	case OpGetTokenInfo:
		return d.getTokenInfo(c)
	case OpGetFungibleTokenInfo:
		return d.getFungibleTokenInfo(c)
	case OpGetNonFungibleTokenInfo:
		return d.getNonFungibleTokenInfo(c)
	case OpGetTokenKey:
		return d.getTokenKey(c)
	case OpGetTokenCustomFees:
		return d.getTokenCustomFees(c)
	case OpGetTokenExpiryInfo:
		return d.getTokenExpiryInfo(c)
	case OpAllowance:
		return d.allowance(c)
	case OpGetApproved:
		return d.getApproved(c)
	case OpIsApprovedForAll:
		return d.isApprovedForAll(c)

	case OpMintToken:
		return d.mint(c)
	case OpBurnToken:
		return d.burn(c)
	case OpWipeTokenAccount:
		return d.wipe(c)
	case OpWipeTokenAccountNFT:
		return d.wipeNFT(c)
	case OpFreezeToken, OpUnfreezeToken:
		return d.setFreeze(c, c.op == OpFreezeToken)
	case OpGrantTokenKyc, OpRevokeTokenKyc:
		return d.setKyc(c, c.op == OpGrantTokenKyc)
	case OpPauseToken, OpUnpauseToken:
		return d.setPause(c, c.op == OpPauseToken)
	case OpDeleteToken:
		return d.deleteToken(c)
	case OpAssociateToken, OpDissociateToken:
		return d.associateOne(c, c.op == OpAssociateToken)
	case OpAssociateTokens, OpDissociateTokens:
		return d.associateMany(c, c.op == OpAssociateTokens)
	case OpTransferToken:
		return d.transferToken(c)
	case OpTransferTokens:
		return d.transferTokens(c)
	case OpTransferNFT:
		return d.transferNFT(c)
	case OpTransferNFTs:
		return d.transferNFTs(c)
	case OpTransferFrom:
		return d.transferFrom(c)
	case OpTransferFromNFT:
		return d.transferFromNFT(c)
	case OpApprove:
		return d.approve(c)
	case OpApproveNFT:
		return d.approveNFT(c)
	case OpSetApprovalForAll:
		return d.setApprovalForAll(c)
	case OpCreateFungibleToken:
		return d.createFungible(c)
	case OpCreateNonFungibleToken:
		return d.createNonFungible(c)
	case OpUpdateTokenInfo:
		return d.updateTokenInfo(c)
	case OpUpdateTokenKeys:
		return d.updateTokenKeys(c)
	case OpUpdateTokenExpiryInfo:
		return d.updateTokenExpiry(c)

	case OpName, OpSymbol, OpDecimals, OpTotalSupply:
		return d.ercMetadata(c)
	case OpBalanceOf:
		return d.ercBalanceOf(c)
	case OpOwnerOf:
		return d.ercOwnerOf(c)
	case OpTokenURI:
		return d.ercTokenURI(c)
	case OpRedirectAllowance:
		return d.ercAllowance(c)
	case OpRedirectGetApproved:
		return d.ercGetApproved(c)
	case OpRedirectIsApprovedForAll:
		return d.ercIsApprovedForAll(c)
	case OpTransfer:
		return d.ercTransfer(c)
	case OpRedirectTransferFrom:
		return d.ercTransferFrom(c)
	case OpRedirectApprove:
		return d.ercApprove(c)
	case OpRedirectSetApprovalForAll:
		return d.ercSetApprovalForAll(c)
	case OpAssociate, OpDissociate:
		return d.hrcAssociate(c, c.op == OpAssociate)
	case OpIsAssociated:
		return d.hrcIsAssociated(c)
	}
	return nil, types.Internalf("operation %s has no handler", c.op)
}

// tokenID maps a token address to its id. Long-zero addresses are taken as
// is so that tokens created earlier in the same call resolve.
func (d *Dispatcher) tokenID(addr common.Address) (types.EntityID, bool, error) {
	cfg := d.view.Config()
	if id, ok := types.EntityIDFromLongZero(addr, cfg.Shard, cfg.Realm); ok {
		return id, true, nil
	}
	return d.view.Resolver().Canonicalize(d.ctx, addr)
}

// token loads a token, failing with INVALID_TOKEN_ID when addr is not one.
func (d *Dispatcher) token(addr common.Address) (*types.TokenView, error) {
	id, ok, err := d.tokenID(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fail(InvalidTokenID)
	}
	t, err := d.ledger.Token(d.ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fail(InvalidTokenID)
	}
	return t, nil
}

// liveToken loads a token that may be changed: not deleted and not paused.
func (d *Dispatcher) liveToken(addr common.Address) (*types.TokenView, error) {
	t, err := d.token(addr)
	if err != nil {
		return nil, err
	}
	if t.Deleted {
		return nil, fail(TokenWasDeleted)
	}
	if t.Paused() {
		return nil, fail(TokenIsPaused)
	}
	return t, nil
}

// account canonicalizes an account argument, failing with code when no
// entity answers to addr.
func (d *Dispatcher) account(addr common.Address, code ResponseCode) (types.EntityID, error) {
	if addr == (common.Address{}) {
		return types.EntityID{}, fail(code)
	}
	id, ok, err := d.view.Resolver().Canonicalize(d.ctx, addr)
	if err != nil {
		return types.EntityID{}, err
	}
	if !ok {
		return types.EntityID{}, fail(code)
	}
	return id, nil
}

// optionalAccount canonicalizes addr, returning ok=false for unknown
// addresses.
func (d *Dispatcher) optionalAccount(addr common.Address) (types.EntityID, bool, error) {
	if addr == (common.Address{}) {
		return types.EntityID{}, false, nil
	}
	return d.view.Resolver().Canonicalize(d.ctx, addr)
}

func (d *Dispatcher) sender(c *call) (types.EntityID, error) {
	return d.account(c.frame.Sender, InvalidAccountID)
}

func (d *Dispatcher) evmAddress(id types.EntityID) (common.Address, error) {
	if id.IsZero() {
		return common.Address{}, nil
	}
	if id.Num > syntheticNumBase {
		return id.LongZeroAddress(), nil
	}
	return d.view.Resolver().EVMAddressOf(d.ctx, id)
}

// redirectToken returns the token of a redirected call.
func (d *Dispatcher) redirectToken(c *call) (*types.TokenView, error) {
	return d.token(c.token)
}

func (d *Dispatcher) String() string {
	return fmt.Sprintf("Dispatcher(block=%d, mode=%s)", d.view.Block().Number, d.mode)
}
