package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func upper(ts int64) *int64 { return &ts }

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	store := New(db, 0)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedStore(t *testing.T, store *Store) {
	t.Helper()
	rows := []any{
		&Entity{ID: 1001, Num: 1001, Type: "ACCOUNT", Balance: 10, EvmAddress: []byte{0xaa}, Versioned: Versioned{TimestampLower: 100, TimestampUpper: upper(200)}},
		&Entity{ID: 1001, Num: 1001, Type: "ACCOUNT", Balance: 20, EvmAddress: []byte{0xaa}, Versioned: Versioned{TimestampLower: 200}},
		&Token{TokenID: 2001, Name: "Gold", Symbol: "GLD", Decimals: 12, Versioned: Versioned{TimestampLower: 150}},
		&ContractState{ContractID: 3001, Slot: []byte{1}, Value: []byte{7}, Versioned: Versioned{TimestampLower: 100}},
		&RecordFile{Index: 0, ConsensusStart: 100, ConsensusEnd: 199},
		&RecordFile{Index: 1, ConsensusStart: 200, ConsensusEnd: 299},
		&ContractTransactionHash{Hash: []byte{0xbe, 0xef}, ConsensusTimestamp: 250},
	}
	for _, row := range rows {
		if err := store.DB().Create(row).Error; err != nil {
			t.Fatalf("seed %T: %v", row, err)
		}
	}
}

func seedMemory(t *testing.T, mem *Memory) {
	t.Helper()
	steps := []error{
		mem.PutEntity(Entity{ID: 1001, Num: 1001, Type: "ACCOUNT", Balance: 10, EvmAddress: []byte{0xaa}, Versioned: Versioned{TimestampLower: 100}}),
		mem.PutEntity(Entity{ID: 1001, Num: 1001, Type: "ACCOUNT", Balance: 20, EvmAddress: []byte{0xaa}, Versioned: Versioned{TimestampLower: 200}}),
		mem.PutToken(Token{TokenID: 2001, Name: "Gold", Symbol: "GLD", Decimals: 12, Versioned: Versioned{TimestampLower: 150}}),
		mem.PutContractState(ContractState{ContractID: 3001, Slot: []byte{1}, Value: []byte{7}, Versioned: Versioned{TimestampLower: 100}}),
		mem.PutRecordFile(RecordFile{Index: 0, ConsensusStart: 100, ConsensusEnd: 199}),
		mem.PutRecordFile(RecordFile{Index: 1, ConsensusStart: 200, ConsensusEnd: 299}),
	}
	for i, err := range steps {
		if err != nil {
			t.Fatalf("seed step %d: %v", i, err)
		}
	}
	mem.PutContractTransactionHash(ContractTransactionHash{Hash: []byte{0xbe, 0xef}, ConsensusTimestamp: 250})
}

func accessors(t *testing.T) map[string]Accessor {
	store := openTestStore(t)
	seedStore(t, store)
	mem := NewMemory()
	seedMemory(t, mem)
	return map[string]Accessor{"gorm": store, "memory": mem}
}

func TestAccessorIntervalSelection(t *testing.T) {
	ctx := context.Background()
	for name, acc := range accessors(t) {
		t.Run(name, func(t *testing.T) {
			cases := []struct {
				at      AsOf
				balance int64
				missing bool
			}{
				{at: At(99), missing: true},
				{at: At(100), balance: 10},
				{at: At(199), balance: 10},
				{at: At(200), balance: 20},
				{at: Latest(), balance: 20},
			}
			for _, tc := range cases {
				row, err := acc.Entity(ctx, 1001, tc.at)
				if err != nil {
					t.Fatalf("entity %+v: %v", tc.at, err)
				}
				if tc.missing {
					if row != nil {
						t.Fatalf("expected no entity at %+v, got %+v", tc.at, row)
					}
					continue
				}
				if row == nil || row.Balance != tc.balance {
					t.Fatalf("unexpected entity at %+v: %+v", tc.at, row)
				}
			}
		})
	}
}

func TestAccessorLookups(t *testing.T) {
	ctx := context.Background()
	for name, acc := range accessors(t) {
		t.Run(name, func(t *testing.T) {
			byAddr, err := acc.EntityByEvmAddress(ctx, []byte{0xaa}, At(150))
			if err != nil || byAddr == nil || byAddr.ID != 1001 || byAddr.Balance != 10 {
				t.Fatalf("entity by address: %+v, %v", byAddr, err)
			}
			token, err := acc.Token(ctx, 2001, At(120))
			if err != nil || token != nil {
				t.Fatalf("token before creation: %+v, %v", token, err)
			}
			token, err = acc.Token(ctx, 2001, Latest())
			if err != nil || token == nil || token.Decimals != 12 {
				t.Fatalf("latest token: %+v, %v", token, err)
			}
			value, err := acc.ContractState(ctx, 3001, []byte{1}, At(500))
			if err != nil || len(value) != 1 || value[0] != 7 {
				t.Fatalf("contract state: %x, %v", value, err)
			}
			missing, err := acc.ContractState(ctx, 3001, []byte{2}, Latest())
			if err != nil || missing != nil {
				t.Fatalf("missing slot: %x, %v", missing, err)
			}
			latest, err := acc.LatestRecordFile(ctx)
			if err != nil || latest == nil || latest.Index != 1 {
				t.Fatalf("latest record file: %+v, %v", latest, err)
			}
			block, err := acc.RecordFileByTimestamp(ctx, 150)
			if err != nil || block == nil || block.Index != 0 {
				t.Fatalf("record file by timestamp: %+v, %v", block, err)
			}
			block, err = acc.RecordFileByIndex(ctx, 7)
			if err != nil || block != nil {
				t.Fatalf("unknown record file: %+v, %v", block, err)
			}
			hash, err := acc.ContractTransactionHash(ctx, []byte{0xbe, 0xef})
			if err != nil || hash == nil || hash.ConsensusTimestamp != 250 {
				t.Fatalf("transaction hash: %+v, %v", hash, err)
			}
			tx, err := acc.Transaction(ctx, 1, 2, 0)
			if err != nil || tx != nil {
				t.Fatalf("unknown transaction: %+v, %v", tx, err)
			}
		})
	}
}

func TestAliasOnlyEntityResolvesByAddress(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	alias := append([]byte{0x3a, 0x21}, crypto.CompressPubkey(&key.PublicKey)...)
	want := crypto.PubkeyToAddress(key.PublicKey)
	row := Entity{ID: 1077, Num: 1077, Type: "ACCOUNT", Alias: alias, Versioned: Versioned{TimestampLower: 100}}

	store := openTestStore(t)
	if err := store.DB().Create(&row).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	mem := NewMemory()
	if err := mem.PutEntity(Entity{ID: 1077, Num: 1077, Type: "ACCOUNT", Alias: alias, Versioned: Versioned{TimestampLower: 100}}); err != nil {
		t.Fatalf("put: %v", err)
	}

	for name, acc := range map[string]Accessor{"gorm": store, "memory": mem} {
		t.Run(name, func(t *testing.T) {
			got, err := acc.EntityByEvmAddress(ctx, want.Bytes(), Latest())
			if err != nil || got == nil || got.ID != 1077 {
				t.Fatalf("entity by recovered address: %+v, %v", got, err)
			}
			byID, err := acc.Entity(ctx, 1077, At(150))
			if err != nil || byID == nil || string(byID.EvmAddress) != string(want.Bytes()) {
				t.Fatalf("entity by id: %+v, %v", byID, err)
			}
		})
	}
}

func TestAliasEVMAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	compressed := crypto.CompressPubkey(&key.PublicKey)
	want := crypto.PubkeyToAddress(key.PublicKey)
	cases := []struct {
		name  string
		alias []byte
		ok    bool
	}{
		{"compressed key", compressed, true},
		{"protobuf key", append([]byte{0x3a, 0x21}, compressed...), true},
		{"raw address", want.Bytes(), true},
		{"wrong prefix", append([]byte{0x12, 0x21}, compressed...), false},
		{"short", []byte{1, 2, 3}, false},
	}
	for _, tc := range cases {
		got, ok := AliasEVMAddress(tc.alias)
		if ok != tc.ok || (ok && got != want) {
			t.Fatalf("%s: got %s %v", tc.name, got, ok)
		}
	}
}

func TestMemoryClosesPreviousVersion(t *testing.T) {
	mem := NewMemory()
	if err := mem.PutTokenAccount(TokenAccount{AccountID: 1, TokenID: 2, Balance: 5, Associated: true, Versioned: Versioned{TimestampLower: 10}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	ctx := context.Background()
	before, _ := mem.TokenAccount(ctx, 1, 2, Latest())
	if err := mem.PutTokenAccount(TokenAccount{AccountID: 1, TokenID: 2, Balance: 9, Associated: true, Versioned: Versioned{TimestampLower: 20}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if before == nil || !before.Current() || before.Balance != 5 {
		t.Fatalf("previously returned version changed: %+v", before)
	}
	old, _ := mem.TokenAccount(ctx, 1, 2, At(15))
	if old == nil || old.TimestampUpper == nil || *old.TimestampUpper != 20 {
		t.Fatalf("old version not closed: %+v", old)
	}
	err := mem.PutTokenAccount(TokenAccount{AccountID: 1, TokenID: 2, Versioned: Versioned{TimestampLower: 20}})
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
}

func TestMemoryClosed(t *testing.T) {
	mem := NewMemory()
	if err := mem.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := mem.Entity(context.Background(), 1, Latest()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestFileDSN(t *testing.T) {
	if _, err := FileDSN("  "); !errors.Is(err, ErrPathRequired) {
		t.Fatalf("expected ErrPathRequired, got %v", err)
	}
	dsn, err := FileDSN("file:x.db?mode=ro")
	if err != nil || dsn != "file:x.db?mode=ro" {
		t.Fatalf("passthrough: %q, %v", dsn, err)
	}
	if _, err := Open("oracle", "x", Options{}); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}
