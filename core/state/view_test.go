package state

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"mirrorevm/core/types"
	"mirrorevm/storage"
)

const (
	accountNum = 1001
	tokenNum   = 2001
)

func mustPut(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

type fixture struct {
	mem   *storage.Memory
	alias []byte
	addr  common.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	alias := append([]byte{0x3a, 0x21}, crypto.CompressPubkey(&key.PublicKey)...)
	f := &fixture{mem: storage.NewMemory(), alias: alias, addr: crypto.PubkeyToAddress(key.PublicKey)}
	m := f.mem
	mustPut(t, m.PutRecordFile(storage.RecordFile{Index: 0, ConsensusStart: 100, ConsensusEnd: 199, Hash: []byte{1}}))
	mustPut(t, m.PutRecordFile(storage.RecordFile{Index: 1, ConsensusStart: 200, ConsensusEnd: 299, Hash: []byte{2}}))
	mustPut(t, m.PutRecordFile(storage.RecordFile{Index: 2, ConsensusStart: 300, ConsensusEnd: 399, Hash: []byte{3}}))
	mustPut(t, m.PutEntity(storage.Entity{ID: accountNum, Num: accountNum, Type: "ACCOUNT", Alias: alias, EvmAddress: f.addr.Bytes(), Balance: 500, Versioned: storage.Versioned{TimestampLower: 50}}))
	mustPut(t, m.PutEntity(storage.Entity{ID: accountNum, Num: accountNum, Type: "ACCOUNT", Alias: alias, EvmAddress: f.addr.Bytes(), Balance: 900, Versioned: storage.Versioned{TimestampLower: 350}}))
	mustPut(t, m.PutEntity(storage.Entity{ID: tokenNum, Num: tokenNum, Type: "TOKEN", Versioned: storage.Versioned{TimestampLower: 250}}))
	mustPut(t, m.PutToken(storage.Token{
		TokenID: tokenNum, Name: "Gold", Symbol: "GLD", Decimals: 12, TotalSupply: 1000,
		Type: "FUNGIBLE_COMMON", SupplyType: "INFINITE", TreasuryAccountID: accountNum,
		Versioned: storage.Versioned{TimestampLower: 250},
	}))
	mustPut(t, m.PutCustomFee(storage.CustomFee{
		TokenID:   tokenNum,
		FixedFees: `[{"amount":5,"collector_account_id":1001},{"amount":7,"denominating_token_id":2001,"collector_account_id":1001}]`,
		Versioned: storage.Versioned{TimestampLower: 250},
	}))
	return f
}

func openView(t *testing.T, f *fixture, tag types.BlockTag) *View {
	t.Helper()
	view, err := Open(context.Background(), f.mem, Config{GasLimit: 15_000_000}, tag)
	if err != nil {
		t.Fatalf("open %s: %v", tag, err)
	}
	return view
}

func TestOpenUnknownBlock(t *testing.T) {
	f := newFixture(t)
	_, err := Open(context.Background(), f.mem, Config{}, types.BlockNumber(3))
	if !errors.Is(err, types.ErrUnknownBlock) {
		t.Fatalf("expected ErrUnknownBlock, got %v", err)
	}
	var unknown *types.UnknownBlockError
	if !errors.As(err, &unknown) || unknown.Requested != 3 || unknown.Latest != 2 {
		t.Fatalf("unexpected error detail: %v", err)
	}
}

func TestOpenResolvesBlockContext(t *testing.T) {
	f := newFixture(t)
	view := openView(t, f, types.BlockNumber(1))
	block := view.Block()
	if block.Number != 1 || block.ConsensusTimestampUpperBound != 299 || block.Latest {
		t.Fatalf("unexpected block: %+v", block)
	}
	latest := openView(t, f, types.LatestBlock).Block()
	if latest.Number != 2 || !latest.Latest || latest.GasLimit != 15_000_000 {
		t.Fatalf("unexpected latest block: %+v", latest)
	}
}

func TestHistoricalVersions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := types.NewEntityID(0, 0, accountNum)

	old, err := openView(t, f, types.BlockNumber(1)).AccountByID(ctx, id)
	if err != nil || old == nil || old.Balance.Int64() != 500 {
		t.Fatalf("block 1 account: %+v, %v", old, err)
	}
	cur, err := openView(t, f, types.LatestBlock).AccountByID(ctx, id)
	if err != nil || cur == nil || cur.Balance.Int64() != 900 {
		t.Fatalf("latest account: %+v, %v", cur, err)
	}
	token, err := openView(t, f, types.BlockNumber(0)).Token(ctx, types.NewEntityID(0, 0, tokenNum))
	if err != nil || token != nil {
		t.Fatalf("token before creation: %+v, %v", token, err)
	}
}

func TestAliasCanonicalParity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view := openView(t, f, types.LatestBlock)
	id := types.NewEntityID(0, 0, accountNum)

	byAlias, err := view.Account(ctx, f.addr)
	if err != nil || byAlias == nil {
		t.Fatalf("account by alias: %+v, %v", byAlias, err)
	}
	byLongZero, err := openView(t, f, types.LatestBlock).Account(ctx, id.LongZeroAddress())
	if err != nil || byLongZero == nil {
		t.Fatalf("account by long-zero: %+v, %v", byLongZero, err)
	}
	if !reflect.DeepEqual(byAlias, byLongZero) {
		t.Fatalf("views differ:\n%+v\n%+v", byAlias, byLongZero)
	}
	if byAlias.EVMAddress != f.addr {
		t.Fatalf("expected recovered address %s, got %s", f.addr, byAlias.EVMAddress)
	}
	resolved, err := view.Resolver().EVMAddressOf(ctx, id)
	if err != nil || resolved != f.addr {
		t.Fatalf("evm address of: %s, %v", resolved, err)
	}
	missing, err := view.Account(ctx, common.HexToAddress("0x00000000000000000000000000000000000fffff"))
	if err != nil || missing != nil {
		t.Fatalf("unknown address: %+v, %v", missing, err)
	}
}

func TestSnapshotIsolationOnLatest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view := openView(t, f, types.LatestBlock)
	tokenID := types.NewEntityID(0, 0, tokenNum)

	first, err := view.Token(ctx, tokenID)
	if err != nil || first == nil {
		t.Fatalf("token: %+v, %v", first, err)
	}
	mustPut(t, f.mem.PutToken(storage.Token{TokenID: tokenNum, Name: "Lead", Symbol: "PB", Decimals: 2, Versioned: storage.Versioned{TimestampLower: 500}}))
	second, err := view.Token(ctx, tokenID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if !reflect.DeepEqual(first, second) || second.Decimals != 12 {
		t.Fatalf("read changed within one view: %+v vs %+v", first, second)
	}
	fresh, _ := openView(t, f, types.LatestBlock).Token(ctx, tokenID)
	if fresh == nil || fresh.Decimals != 2 {
		t.Fatalf("new view should observe the new version: %+v", fresh)
	}
}

func TestCustomFeesKeepOrder(t *testing.T) {
	f := newFixture(t)
	fees, err := openView(t, f, types.LatestBlock).CustomFees(context.Background(), types.NewEntityID(0, 0, tokenNum))
	if err != nil {
		t.Fatalf("fees: %v", err)
	}
	if len(fees.Fixed) != 2 || fees.Fixed[0].Amount != 5 || fees.Fixed[1].Amount != 7 {
		t.Fatalf("unexpected fixed fees: %+v", fees.Fixed)
	}
	if fees.Fixed[1].DenominatingTokenID.Num != tokenNum || fees.Fixed[0].Collector.Num != accountNum {
		t.Fatalf("unexpected fee ids: %+v", fees.Fixed)
	}
}

func TestRelationshipAbsence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := types.NewEntityID(0, 0, accountNum)
	token := types.NewEntityID(0, 0, tokenNum)
	mustPut(t, f.mem.PutTokenAccount(storage.TokenAccount{AccountID: accountNum, TokenID: tokenNum, Associated: false, Versioned: storage.Versioned{TimestampLower: 260}}))

	rel, err := openView(t, f, types.LatestBlock).Relationship(ctx, account, token)
	if err != nil || rel == nil || rel.Associated {
		t.Fatalf("dissociated relationship: %+v, %v", rel, err)
	}
	rel, err = openView(t, f, types.BlockNumber(0)).Relationship(ctx, account, token)
	if err != nil || rel != nil {
		t.Fatalf("never associated: %+v, %v", rel, err)
	}
}

func TestEVMAddressRecoveredFromAlias(t *testing.T) {
	f := newFixture(t)
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	mustPut(t, f.mem.PutEntity(storage.Entity{ID: 1002, Num: 1002, Type: "ACCOUNT", Alias: crypto.CompressPubkey(&key.PublicKey), Versioned: storage.Versioned{TimestampLower: 50}}))
	got, err := openView(t, f, types.LatestBlock).Resolver().EVMAddressOf(context.Background(), types.NewEntityID(0, 0, 1002))
	if err != nil {
		t.Fatalf("evm address of: %v", err)
	}
	if want := crypto.PubkeyToAddress(key.PublicKey); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	plain, err := openView(t, f, types.LatestBlock).Resolver().EVMAddressOf(context.Background(), types.NewEntityID(0, 0, tokenNum))
	if err != nil || plain != types.NewEntityID(0, 0, tokenNum).LongZeroAddress() {
		t.Fatalf("long-zero fallback: %s, %v", plain, err)
	}
}

func TestAliasOnlyAccountRoundTrip(t *testing.T) {
	f := newFixture(t)
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	alias := append([]byte{0x3a, 0x21}, crypto.CompressPubkey(&key.PublicKey)...)
	mustPut(t, f.mem.PutEntity(storage.Entity{ID: 1077, Num: 1077, Type: "ACCOUNT", Alias: alias, Balance: 3, Versioned: storage.Versioned{TimestampLower: 50}}))

	ctx := context.Background()
	resolver := openView(t, f, types.LatestBlock).Resolver()
	id := types.NewEntityID(0, 0, 1077)
	addr, err := resolver.EVMAddressOf(ctx, id)
	if err != nil {
		t.Fatalf("evm address of: %v", err)
	}
	if addr != crypto.PubkeyToAddress(key.PublicKey) {
		t.Fatalf("unexpected address %s", addr)
	}
	for _, form := range []common.Address{addr, id.LongZeroAddress()} {
		got, ok, err := resolver.Canonicalize(ctx, form)
		if err != nil || !ok || got != id {
			t.Fatalf("canonicalize %s: %s %v %v", form, got, ok, err)
		}
	}
}

func TestAliasAddress(t *testing.T) {
	if _, ok := AliasAddress([]byte{1, 2, 3}); ok {
		t.Fatalf("short alias should not resolve")
	}
	raw := common.HexToAddress("0x1234567890123456789012345678901234567890")
	if got, ok := AliasAddress(raw.Bytes()); !ok || got != raw {
		t.Fatalf("raw address alias: %s %v", got, ok)
	}
}
