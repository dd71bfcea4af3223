package precompile

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"mirrorevm/core/state"
	"mirrorevm/core/types"
	"mirrorevm/storage"
)

const (
	ownerNum    = 1001
	spenderNum  = 1002
	strangerNum = 1003
	fungible    = 2001
	nonFung     = 2002
)

type fixture struct {
	mem       *storage.Memory
	owner     common.Address
	ownerLZ   common.Address
	spender   common.Address
	token     common.Address
	nftToken  common.Address
	supplyKey []byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)
	compressed := crypto.CompressPubkey(&key.PublicKey)
	supplyKey, err := keyCodec{}.Encode(KeyValue{ECDSASecp256k1: compressed})
	require.NoError(t, err)

	f := &fixture{
		mem:       storage.NewMemory(),
		owner:     crypto.PubkeyToAddress(key.PublicKey),
		ownerLZ:   types.NewEntityID(0, 0, ownerNum).LongZeroAddress(),
		spender:   types.NewEntityID(0, 0, spenderNum).LongZeroAddress(),
		token:     types.NewEntityID(0, 0, fungible).LongZeroAddress(),
		nftToken:  types.NewEntityID(0, 0, nonFung).LongZeroAddress(),
		supplyKey: supplyKey,
	}
	m := f.mem
	since := storage.Versioned{TimestampLower: 10}
	owner := int64(ownerNum)
	require.NoError(t, m.PutRecordFile(storage.RecordFile{Index: 0, ConsensusStart: 100, ConsensusEnd: 199, Hash: []byte{0xab}}))
	require.NoError(t, m.PutEntity(storage.Entity{ID: ownerNum, Num: ownerNum, Type: "ACCOUNT", Alias: append([]byte{0x3a, 0x21}, compressed...), EvmAddress: f.owner.Bytes(), Key: supplyKey, Balance: 1_000, Versioned: since}))
	require.NoError(t, m.PutEntity(storage.Entity{ID: spenderNum, Num: spenderNum, Type: "ACCOUNT", Balance: 1_000, Versioned: since}))
	require.NoError(t, m.PutEntity(storage.Entity{ID: strangerNum, Num: strangerNum, Type: "ACCOUNT", Versioned: since}))
	require.NoError(t, m.PutEntity(storage.Entity{ID: fungible, Num: fungible, Type: "TOKEN", Versioned: since}))
	require.NoError(t, m.PutEntity(storage.Entity{ID: nonFung, Num: nonFung, Type: "TOKEN", Versioned: since}))
	require.NoError(t, m.PutToken(storage.Token{
		TokenID: fungible, Name: "Gold", Symbol: "GLD", Decimals: 12, TotalSupply: 1_000,
		Type: "FUNGIBLE_COMMON", SupplyType: "INFINITE", TreasuryAccountID: ownerNum,
		SupplyKey: supplyKey, Versioned: since,
	}))
	require.NoError(t, m.PutToken(storage.Token{
		TokenID: nonFung, Name: "Art", Symbol: "ART", TotalSupply: 1,
		Type: "NON_FUNGIBLE_UNIQUE", SupplyType: "FINITE", MaxSupply: 10, TreasuryAccountID: ownerNum,
		SupplyKey: supplyKey, Versioned: since,
	}))
	require.NoError(t, m.PutTokenAccount(storage.TokenAccount{AccountID: ownerNum, TokenID: fungible, Balance: 1_000, Associated: true, Versioned: since}))
	require.NoError(t, m.PutTokenAccount(storage.TokenAccount{AccountID: spenderNum, TokenID: fungible, Associated: true, Versioned: since}))
	require.NoError(t, m.PutTokenAccount(storage.TokenAccount{AccountID: ownerNum, TokenID: nonFung, Balance: 1, Associated: true, Versioned: since}))
	require.NoError(t, m.PutNft(storage.Nft{TokenID: nonFung, SerialNumber: 1, AccountID: &owner, Metadata: []byte("ipfs://art/1"), CreatedTimestamp: 50, Versioned: since}))
	return f
}

func (f *fixture) dispatcher(t *testing.T, mode types.ExecutionMode) *Dispatcher {
	t.Helper()
	view, err := state.Open(context.Background(), f.mem, state.Config{GasLimit: 15_000_000, LedgerID: "0x01"}, types.LatestBlock)
	require.NoError(t, err)
	return NewDispatcher(context.Background(), view, mode, nil, nil)
}

func encodeCall(t *testing.T, parsed abi.ABI, method string, args ...any) []byte {
	t.Helper()
	m, ok := parsed.Methods[method]
	require.True(t, ok, "method %s", method)
	packed, err := m.Inputs.Pack(args...)
	require.NoError(t, err)
	return append(append([]byte{}, m.ID...), packed...)
}

func direct(t *testing.T, d *Dispatcher, from common.Address, method string, args ...any) Result {
	t.Helper()
	res, err := d.Dispatch(encodeCall(t, htsABI, method, args...), Frame{Sender: from})
	require.NoError(t, err)
	return res
}

func redirected(t *testing.T, d *Dispatcher, from, token common.Address, method string, args ...any) Result {
	t.Helper()
	res, err := d.Dispatch(PackRedirect(token, encodeCall(t, ercABI, method, args...)), Frame{Sender: from})
	require.NoError(t, err)
	return res
}

func unpack(t *testing.T, parsed abi.ABI, method string, res Result) []any {
	t.Helper()
	require.False(t, res.Reverted, "unexpected revert %s", res.Reason)
	values, err := parsed.Methods[method].Outputs.Unpack(res.Output)
	require.NoError(t, err)
	return values
}

func TestDecimalsDirectAndRedirectParity(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)

	values := unpack(t, htsABI, "getFungibleTokenInfo", direct(t, d, f.owner, "getFungibleTokenInfo", f.token))
	require.Equal(t, int64(Success), values[0])
	info := abi.ConvertType(values[1], new(FungibleTokenInfo)).(*FungibleTokenInfo)
	require.Equal(t, int32(12), info.Decimals)
	require.Equal(t, "Gold", info.TokenInfo.Token.Name)
	require.Equal(t, f.owner, info.TokenInfo.Token.Treasury)
	require.Len(t, info.TokenInfo.Token.TokenKeys, len(types.AllKeyTypes))

	values = unpack(t, ercABI, "decimals", redirected(t, d, f.owner, f.token, "decimals"))
	require.Equal(t, uint8(12), values[0])
}

func TestAllowanceWithoutGrantIsZero(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)

	byAlias := direct(t, d, f.owner, "allowance", f.token, f.owner, f.spender)
	byLongZero := direct(t, d, f.owner, "allowance", f.token, f.ownerLZ, f.spender)
	require.Equal(t, byAlias.Output, byLongZero.Output)
	values := unpack(t, htsABI, "allowance", byAlias)
	require.Zero(t, values[1].(*big.Int).Sign())

	values = unpack(t, ercABI, "allowance", redirected(t, d, f.owner, f.token, "allowance", f.owner, f.spender))
	require.Zero(t, values[0].(*big.Int).Sign())
}

func TestGetApprovedWithoutSpender(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)

	values := unpack(t, htsABI, "getApproved", direct(t, d, f.owner, "getApproved", f.nftToken, big.NewInt(1)))
	require.Equal(t, common.Address{}, values[1])
	values = unpack(t, ercABI, "getApproved", redirected(t, d, f.owner, f.nftToken, "getApproved", big.NewInt(1)))
	require.Equal(t, common.Address{}, values[0])

	values = unpack(t, ercABI, "ownerOf", redirected(t, d, f.owner, f.nftToken, "ownerOf", big.NewInt(1)))
	require.Equal(t, f.owner, values[0])
}

func TestStaticMintReverts(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)

	input := encodeCall(t, htsABI, "mintToken", f.token, int64(5), [][]byte{})
	res, err := d.Dispatch(input, Frame{Sender: f.owner, Static: true})
	require.NoError(t, err)
	require.True(t, res.Reverted)
	require.Equal(t, writeProtection, res.Reason)
	require.False(t, d.Ledger().Dirty())

	reason, err := abi.UnpackRevert(res.Output)
	require.NoError(t, err)
	require.Equal(t, writeProtection, reason)
}

func TestMintAppliesToOverlayOnly(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)

	values := unpack(t, htsABI, "mintToken", direct(t, d, f.owner, "mintToken", f.token, int64(50), [][]byte{}))
	require.Equal(t, int64(1_050), values[1])

	values = unpack(t, ercABI, "totalSupply", redirected(t, d, f.owner, f.token, "totalSupply"))
	require.Equal(t, int64(1_050), values[0].(*big.Int).Int64())
	values = unpack(t, ercABI, "balanceOf", redirected(t, d, f.owner, f.token, "balanceOf", f.owner))
	require.Equal(t, int64(1_050), values[0].(*big.Int).Int64())

	fresh := f.dispatcher(t, types.ModeModularized)
	values = unpack(t, ercABI, "totalSupply", redirected(t, fresh, f.owner, f.token, "totalSupply"))
	require.Equal(t, int64(1_000), values[0].(*big.Int).Int64())
}

func TestMintNonFungibleRespectsMaxSupply(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)

	values := unpack(t, htsABI, "mintToken", direct(t, d, f.owner, "mintToken", f.nftToken, int64(0), [][]byte{[]byte("a"), []byte("b")}))
	require.Equal(t, int64(3), values[1])
	require.Equal(t, []int64{2, 3}, values[2])

	metadata := make([][]byte, 8)
	for i := range metadata {
		metadata[i] = []byte{byte(i)}
	}
	res := direct(t, d, f.owner, "mintToken", f.nftToken, int64(0), metadata)
	require.True(t, res.Reverted)
	require.Equal(t, TokenMaxSupplyReached, res.Code)
}

func TestInvalidTokenReasonPerMode(t *testing.T) {
	f := newFixture(t)
	missing := types.NewEntityID(0, 0, 9999).LongZeroAddress()
	cases := []struct {
		mode   types.ExecutionMode
		reason string
	}{
		{types.ModeModularized, "INVALID_TOKEN_ID"},
		{types.ModeLegacy, "CONTRACT_REVERT_EXECUTED"},
	}
	for _, tc := range cases {
		res := direct(t, f.dispatcher(t, tc.mode), f.owner, "isFrozen", missing, f.owner)
		if !res.Reverted || res.Reason != tc.reason || res.Code != InvalidTokenID {
			t.Fatalf("%s: unexpected result %+v", tc.mode, res)
		}
	}
}

func TestIsTokenReportsFalseForAccounts(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)
	values := unpack(t, htsABI, "isToken", direct(t, d, f.owner, "isToken", f.ownerLZ))
	require.Equal(t, false, values[1])
	values = unpack(t, htsABI, "isToken", direct(t, d, f.owner, "isToken", f.token))
	require.Equal(t, true, values[1])
}

func TestUnsupportedOperation(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)
	input := append([]byte{}, htsABI.Methods["claimAirdrops"].ID...)
	_, err := d.Dispatch(input, Frame{Sender: f.owner})
	require.True(t, errors.Is(err, types.ErrUnsupported), "got %v", err)

	out, err := d.Run(input)
	require.Nil(t, out)
	require.Error(t, err)
	require.True(t, errors.Is(d.Err(), types.ErrUnsupported))
}

func TestTransferFromRequiresAllowance(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)

	res := redirected(t, d, f.spender, f.token, "transferFrom", f.owner, f.spender, big.NewInt(10))
	require.True(t, res.Reverted)
	require.Equal(t, "SPENDER_DOES_NOT_HAVE_ALLOWANCE", res.Reason)

	unpack(t, ercABI, "approve", redirected(t, d, f.owner, f.token, "approve", f.spender, big.NewInt(25)))
	unpack(t, ercABI, "transferFrom", redirected(t, d, f.spender, f.token, "transferFrom", f.owner, f.spender, big.NewInt(10)))

	values := unpack(t, htsABI, "allowance", direct(t, d, f.owner, "allowance", f.token, f.owner, f.spender))
	require.Equal(t, int64(15), values[1].(*big.Int).Int64())
	values = unpack(t, ercABI, "balanceOf", redirected(t, d, f.owner, f.token, "balanceOf", f.spender))
	require.Equal(t, int64(10), values[0].(*big.Int).Int64())

	res = redirected(t, d, f.spender, f.token, "transferFrom", f.owner, f.spender, big.NewInt(20))
	require.Equal(t, AmountExceedsAllowance, res.Code)
}

func TestFailedDispatchLeavesOverlayClean(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)
	stranger := types.NewEntityID(0, 0, strangerNum).LongZeroAddress()

	res := direct(t, d, f.owner, "transferTokens", f.token, []common.Address{f.owner, stranger}, []int64{-5, 5})
	require.Equal(t, TokenNotAssociated, res.Code)
	require.False(t, d.Ledger().Dirty())
	values := unpack(t, ercABI, "balanceOf", redirected(t, d, f.owner, f.token, "balanceOf", f.owner))
	require.Equal(t, int64(1_000), values[0].(*big.Int).Int64())
}

func TestCreateFungibleToken(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)
	token := HederaToken{
		Name:     "Silver",
		Symbol:   "SLV",
		Treasury: f.owner,
		TokenKeys: []TokenKey{
			{KeyType: big.NewInt(int64(types.KeySupply)), Key: KeyValue{InheritAccountKey: true, Ed25519: []byte{}, ECDSASecp256k1: []byte{}}},
		},
	}

	res := direct(t, d, f.owner, "createFungibleToken", token, int64(100), int32(19))
	require.Equal(t, InvalidTokenDecimals, res.Code)

	bad := token
	bad.Name = ""
	res = direct(t, d, f.owner, "createFungibleToken", bad, int64(100), int32(2))
	require.Equal(t, MissingTokenName, res.Code)

	capped := token
	capped.TokenSupplyType = true
	capped.MaxSupply = 50
	res = direct(t, d, f.owner, "createFungibleToken", capped, int64(100), int32(2))
	require.Equal(t, InvalidTokenInitialSupply, res.Code)

	values := unpack(t, htsABI, "createFungibleToken", direct(t, d, f.owner, "createFungibleToken", token, int64(100), int32(2)))
	created := values[1].(common.Address)

	values = unpack(t, ercABI, "symbol", redirected(t, d, f.owner, created, "symbol"))
	require.Equal(t, "SLV", values[0])
	values = unpack(t, ercABI, "balanceOf", redirected(t, d, f.owner, created, "balanceOf", f.owner))
	require.Equal(t, int64(100), values[0].(*big.Int).Int64())

	values = unpack(t, htsABI, "getTokenKey", direct(t, d, f.owner, "getTokenKey", created, big.NewInt(int64(types.KeySupply))))
	key := abi.ConvertType(values[1], new(KeyValue)).(*KeyValue)
	require.Len(t, key.ECDSASecp256k1, 33)
}

func TestAssociateLifecycle(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)

	values := unpack(t, ercABI, "isAssociated", redirected(t, d, f.spender, f.nftToken, "isAssociated"))
	require.Equal(t, false, values[0])
	values = unpack(t, ercABI, "associate", redirected(t, d, f.spender, f.nftToken, "associate"))
	require.Equal(t, int64(Success), values[0].(*big.Int).Int64())
	values = unpack(t, ercABI, "isAssociated", redirected(t, d, f.spender, f.nftToken, "isAssociated"))
	require.Equal(t, true, values[0])

	res := direct(t, d, f.spender, "associateToken", f.spender, f.nftToken)
	require.Equal(t, TokenAlreadyAssociated, res.Code)

	res = direct(t, d, f.owner, "dissociateToken", f.owner, f.token)
	require.Equal(t, RequiresZeroTokenBalances, res.Code)
}

func TestNftTransferClearsSpender(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)
	unpack(t, ercABI, "associate", redirected(t, d, f.spender, f.nftToken, "associate"))

	res := redirected(t, d, f.owner, f.nftToken, "approve", f.spender, big.NewInt(1))
	require.False(t, res.Reverted, res.Reason)
	require.Empty(t, res.Output)
	values := unpack(t, ercABI, "getApproved", redirected(t, d, f.owner, f.nftToken, "getApproved", big.NewInt(1)))
	require.Equal(t, f.spender, values[0])

	res = redirected(t, d, f.spender, f.nftToken, "transferFrom", f.owner, f.spender, big.NewInt(1))
	require.False(t, res.Reverted, res.Reason)
	values = unpack(t, ercABI, "ownerOf", redirected(t, d, f.owner, f.nftToken, "ownerOf", big.NewInt(1)))
	require.Equal(t, f.spender, values[0])
	values = unpack(t, ercABI, "getApproved", redirected(t, d, f.owner, f.nftToken, "getApproved", big.NewInt(1)))
	require.Equal(t, common.Address{}, values[0])
}

func TestParseRedirectForms(t *testing.T) {
	f := newFixture(t)
	inner := encodeCall(t, ercABI, "balanceOf", f.owner)

	token, data, err := parseRedirect(PackRedirect(f.token, inner))
	require.NoError(t, err)
	require.Equal(t, f.token, token)
	require.Equal(t, inner, data)

	token, data, err = parseRedirect(encodeCall(t, htsABI, "redirectForToken", f.token, inner))
	require.NoError(t, err)
	require.Equal(t, f.token, token)
	require.Equal(t, inner, data)

	_, _, err = parseRedirect([]byte{1, 2, 3, 4})
	require.Error(t, err)
}

func TestRequiredGasLooksThroughRedirect(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(t, types.ModeModularized)
	require.Equal(t, gasTransfer, d.RequiredGas(PackRedirect(f.token, encodeCall(t, ercABI, "transfer", f.spender, big.NewInt(1)))))
	require.Equal(t, gasView, d.RequiredGas(encodeCall(t, htsABI, "isToken", f.token)))
	require.Equal(t, gasSupply, d.RequiredGas(encodeCall(t, htsABI, "burnToken", f.token, int64(1), []int64{})))
}
