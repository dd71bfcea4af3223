// Package ledgertest seeds an in-memory ledger with a small, fixed set of
// accounts, tokens and contracts for tests of the execution layers.
package ledgertest

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/protobuf/encoding/protowire"

	"mirrorevm/core/state"
	"mirrorevm/core/types"
	"mirrorevm/storage"
)

// Entity numbers of the seeded ledger.
const (
	OwnerNum     = 1001
	SpenderNum   = 1002
	FungibleNum  = 2001
	NftNum       = 2002
	SlotReadNum  = 3001
	ForwarderNum = 3002
	ReverterNum  = 3003
	WriterNum    = 3004
)

// Block timestamps of the two seeded blocks.
const (
	Block0Start = 100
	Block0End   = 199
	Block1Start = 200
	Block1End   = 299
)

// Runtime bytecode of the seeded contracts.
var (
	// SlotReaderCode returns storage slot 0.
	SlotReaderCode = common.FromHex("0x60005460005260206000f3")
	// ForwarderCode calls the token service with its own call data and
	// bubbles the result, reverting when the token service reverts.
	ForwarderCode = common.FromHex("0x3660006000376000600036600060006101675af13d600060003e6021573d6000fd5b3d6000f3")
	// ReverterCode reverts without data.
	ReverterCode = common.FromHex("0x60006000fd")
	// WriterCode stores 1 in slot 1.
	WriterCode = common.FromHex("0x600160015500")
)

// Config is the network configuration of the seeded ledger.
var Config = state.Config{GasLimit: 15_000_000, LedgerID: "0x01"}

// Ledger is a seeded in-memory ledger.
type Ledger struct {
	Mem       *storage.Memory
	SupplyKey []byte

	Owner     common.Address
	Spender   common.Address
	Token     common.Address
	NFT       common.Address
	SlotRead  common.Address
	Forwarder common.Address
	Reverter  common.Address
	Writer    common.Address
}

// Address is the long-zero address of an entity number.
func Address(num int64) common.Address {
	return types.NewEntityID(0, 0, num).LongZeroAddress()
}

// New seeds two blocks. The fungible token has 12 decimals and a supply of
// 1000 held by the owner; the NFT has serial 1 owned by the owner and no
// spender. The slot reader holds 42 in slot 0 from block 1 onwards and 7
// before.
func New(t testing.TB) *Ledger {
	t.Helper()
	l := &Ledger{
		Mem:       storage.NewMemory(),
		SupplyKey: protowire.AppendBytes(protowire.AppendTag(nil, 2, protowire.BytesType), make([]byte, 32)),
		Owner:     Address(OwnerNum),
		Spender:   Address(SpenderNum),
		Token:     Address(FungibleNum),
		NFT:       Address(NftNum),
		SlotRead:  Address(SlotReadNum),
		Forwarder: Address(ForwarderNum),
		Reverter:  Address(ReverterNum),
		Writer:    Address(WriterNum),
	}
	m := l.Mem
	since := storage.Versioned{TimestampLower: 10}
	owner := int64(OwnerNum)
	must(t, m.PutRecordFile(storage.RecordFile{Index: 0, ConsensusStart: Block0Start, ConsensusEnd: Block0End, Hash: common.FromHex("0xab")}))
	must(t, m.PutRecordFile(storage.RecordFile{Index: 1, ConsensusStart: Block1Start, ConsensusEnd: Block1End, Hash: common.FromHex("0xcd")}))
	must(t, m.PutEntity(storage.Entity{ID: OwnerNum, Num: OwnerNum, Type: "ACCOUNT", Balance: 1_000, Versioned: since}))
	must(t, m.PutEntity(storage.Entity{ID: SpenderNum, Num: SpenderNum, Type: "ACCOUNT", Balance: 1_000, Versioned: since}))
	must(t, m.PutEntity(storage.Entity{ID: FungibleNum, Num: FungibleNum, Type: "TOKEN", Versioned: since}))
	must(t, m.PutEntity(storage.Entity{ID: NftNum, Num: NftNum, Type: "TOKEN", Versioned: since}))
	for num, code := range map[int64][]byte{
		SlotReadNum:  SlotReaderCode,
		ForwarderNum: ForwarderCode,
		ReverterNum:  ReverterCode,
		WriterNum:    WriterCode,
	} {
		must(t, m.PutEntity(storage.Entity{ID: num, Num: num, Type: "CONTRACT", Versioned: since}))
		m.PutContract(storage.Contract{ID: num, RuntimeBytecode: code})
	}
	must(t, m.PutContractState(storage.ContractState{ContractID: SlotReadNum, Slot: make([]byte, 32), Value: []byte{7}, Versioned: since}))
	must(t, m.PutContractState(storage.ContractState{ContractID: SlotReadNum, Slot: make([]byte, 32), Value: []byte{42}, Versioned: storage.Versioned{TimestampLower: Block1Start}}))
	must(t, m.PutToken(storage.Token{
		TokenID: FungibleNum, Name: "Gold", Symbol: "GLD", Decimals: 12, TotalSupply: 1_000,
		Type: "FUNGIBLE_COMMON", SupplyType: "INFINITE", TreasuryAccountID: OwnerNum,
		SupplyKey: l.SupplyKey, Versioned: since,
	}))
	must(t, m.PutToken(storage.Token{
		TokenID: NftNum, Name: "Art", Symbol: "ART", TotalSupply: 1,
		Type: "NON_FUNGIBLE_UNIQUE", SupplyType: "FINITE", MaxSupply: 10, TreasuryAccountID: OwnerNum,
		SupplyKey: l.SupplyKey, Versioned: since,
	}))
	must(t, m.PutTokenAccount(storage.TokenAccount{AccountID: OwnerNum, TokenID: FungibleNum, Balance: 1_000, Associated: true, Versioned: since}))
	must(t, m.PutTokenAccount(storage.TokenAccount{AccountID: SpenderNum, TokenID: FungibleNum, Associated: true, Versioned: since}))
	must(t, m.PutTokenAccount(storage.TokenAccount{AccountID: OwnerNum, TokenID: NftNum, Balance: 1, Associated: true, Versioned: since}))
	must(t, m.PutNft(storage.Nft{TokenID: NftNum, SerialNumber: 1, AccountID: &owner, Metadata: []byte("ipfs://art/1"), CreatedTimestamp: 50, Versioned: since}))
	return l
}

// View opens a view of the ledger at tag.
func (l *Ledger) View(t testing.TB, tag types.BlockTag) *state.View {
	t.Helper()
	view, err := state.Open(context.Background(), l.Mem, Config, tag)
	if err != nil {
		t.Fatalf("open view: %v", err)
	}
	return view
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
}
