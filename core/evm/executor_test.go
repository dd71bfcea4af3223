package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"mirrorevm/core/ledgertest"
	"mirrorevm/core/precompile"
	"mirrorevm/core/types"
)

func selector(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

func calldata(t *testing.T, sig string, typeNames []string, args ...any) []byte {
	t.Helper()
	var arguments abi.Arguments
	for _, name := range typeNames {
		typ, err := abi.NewType(name, "", nil)
		require.NoError(t, err)
		arguments = append(arguments, abi.Argument{Type: typ})
	}
	packed, err := arguments.Pack(args...)
	require.NoError(t, err)
	return append(selector(sig), packed...)
}

func execute(t *testing.T, l *ledgertest.Ledger, tag types.BlockTag, req types.CallRequest) *types.CallResult {
	t.Helper()
	exec := New(Config{ChainID: 298}, nil)
	res, err := exec.Execute(context.Background(), l.View(t, tag), req, Options{})
	require.NoError(t, err)
	return res
}

func to(addr common.Address) *common.Address { return &addr }

func TestStorageReadFollowsPinnedBlock(t *testing.T) {
	l := ledgertest.New(t)
	req := types.CallRequest{Sender: l.Owner, Receiver: to(l.SlotRead), GasLimit: 100_000}

	latest := execute(t, l, types.LatestBlock, req)
	require.True(t, latest.Success, latest.Failure())
	require.Equal(t, big.NewInt(42), new(big.Int).SetBytes(latest.Output))
	require.Greater(t, latest.GasUsed, uint64(21_000))

	historical := execute(t, l, types.BlockNumber(0), req)
	require.True(t, historical.Success)
	require.Equal(t, big.NewInt(7), new(big.Int).SetBytes(historical.Output))
	require.Equal(t, uint64(0), historical.Block.Number)
}

func TestTokenProxyAndDirectRedirectAgree(t *testing.T) {
	l := ledgertest.New(t)
	balanceOf := calldata(t, "balanceOf(address)", []string{"address"}, l.Owner)

	viaProxy := execute(t, l, types.LatestBlock, types.CallRequest{Sender: l.Spender, Receiver: to(l.Token), Data: balanceOf, GasLimit: 200_000})
	require.True(t, viaProxy.Success, viaProxy.Failure())
	require.Equal(t, big.NewInt(1_000), new(big.Int).SetBytes(viaProxy.Output))

	redirect := precompile.PackRedirect(l.Token, balanceOf)
	viaRoute := execute(t, l, types.LatestBlock, types.CallRequest{Sender: l.Spender, Receiver: to(l.Token), Data: redirect, GasLimit: 200_000})
	require.True(t, viaRoute.Success, viaRoute.Failure())
	require.Equal(t, viaProxy.Output, viaRoute.Output)

	decimals := execute(t, l, types.LatestBlock, types.CallRequest{Sender: l.Spender, Receiver: to(l.Token), Data: selector("decimals()"), GasLimit: 200_000})
	require.True(t, decimals.Success, decimals.Failure())
	require.Equal(t, big.NewInt(12), new(big.Int).SetBytes(decimals.Output))
}

func TestMintThroughContract(t *testing.T) {
	l := ledgertest.New(t)
	mint := calldata(t, "mintToken(address,int64,bytes[])", []string{"address", "int64", "bytes[]"}, l.Token, int64(5), [][]byte{})

	res := execute(t, l, types.LatestBlock, types.CallRequest{Sender: l.Owner, Receiver: to(l.Forwarder), Data: mint, GasLimit: 500_000})
	require.True(t, res.Success, res.Failure())
	require.GreaterOrEqual(t, len(res.Output), 64)
	require.Equal(t, big.NewInt(int64(precompile.Success)), new(big.Int).SetBytes(res.Output[:32]))
	require.Equal(t, big.NewInt(1_005), new(big.Int).SetBytes(res.Output[32:64]))
}

func TestStaticCallCannotMint(t *testing.T) {
	l := ledgertest.New(t)
	mint := calldata(t, "mintToken(address,int64,bytes[])", []string{"address", "int64", "bytes[]"}, l.Token, int64(5), [][]byte{})

	res := execute(t, l, types.LatestBlock, types.CallRequest{Sender: l.Owner, Receiver: to(l.Forwarder), Data: mint, GasLimit: 500_000, IsStatic: true})
	require.False(t, res.Success)
	require.True(t, res.Reverted())
	require.Equal(t, "write protection", res.RevertReason)
}

func TestRevertWithoutData(t *testing.T) {
	l := ledgertest.New(t)
	res := execute(t, l, types.LatestBlock, types.CallRequest{Sender: l.Owner, Receiver: to(l.Reverter), GasLimit: 50_000})
	require.True(t, res.Reverted())
	require.Equal(t, ReasonContractReverted, res.RevertReason)
	require.False(t, res.OutOfGas)
}

func TestInsufficientBalanceIsRevert(t *testing.T) {
	l := ledgertest.New(t)
	value := new(big.Int).Mul(big.NewInt(1_001), WeibarsPerTinybar)
	res := execute(t, l, types.LatestBlock, types.CallRequest{Sender: l.Owner, Receiver: to(l.Spender), Value: value, GasLimit: 50_000})
	require.True(t, res.Reverted())
	require.Equal(t, ReasonInsufficientBalance, res.RevertReason)

	value = new(big.Int).Mul(big.NewInt(1_000), WeibarsPerTinybar)
	res = execute(t, l, types.LatestBlock, types.CallRequest{Sender: l.Owner, Receiver: to(l.Spender), Value: value, GasLimit: 50_000})
	require.True(t, res.Success, res.Failure())
}

func TestOutOfGasIsFlagged(t *testing.T) {
	l := ledgertest.New(t)
	cases := map[string]uint64{
		"below intrinsic": 20_000,
		"during sload":    21_005,
	}
	for name, gas := range cases {
		t.Run(name, func(t *testing.T) {
			res := execute(t, l, types.LatestBlock, types.CallRequest{Sender: l.Owner, Receiver: to(l.SlotRead), GasLimit: gas})
			require.False(t, res.Success)
			require.True(t, res.OutOfGas)
			require.Equal(t, ReasonInsufficientGas, res.HaltReason)
			require.GreaterOrEqual(t, res.GasConsumed, uint64(21_000))
		})
	}
}

func TestUnsupportedOperationSurfacesAsError(t *testing.T) {
	l := ledgertest.New(t)
	exec := New(Config{}, nil)
	req := types.CallRequest{Sender: l.Owner, Receiver: to(l.Forwarder), Data: selector("claimAirdrops((address,address,address,int64)[])"), GasLimit: 200_000}
	_, err := exec.Execute(context.Background(), l.View(t, types.LatestBlock), req, Options{})
	require.Error(t, err)
	require.True(t, errors.Is(err, types.ErrUnsupported), "got %v", err)
}

func TestPrngSeedIsPinnedToBlock(t *testing.T) {
	l := ledgertest.New(t)
	req := types.CallRequest{Sender: l.Owner, Receiver: to(precompile.PrngAddress), Data: selector("getPseudorandomSeed()"), GasLimit: 50_000}

	first := execute(t, l, types.BlockNumber(0), req)
	again := execute(t, l, types.BlockNumber(0), req)
	other := execute(t, l, types.BlockNumber(1), req)
	require.True(t, first.Success, first.Failure())
	require.Equal(t, first.Output, again.Output)
	require.NotEqual(t, first.Output, other.Output)
}

func TestTokenProxyCodeLayout(t *testing.T) {
	code := TokenProxyCode(ledgertest.Address(ledgertest.FungibleNum))
	require.Equal(t, byte(0x5b), code[proxyJumpDest])
	require.Equal(t, precompile.RedirectSelector[:], code[1:5])
	require.Equal(t, byte(0xf3), code[len(code)-1])
}
