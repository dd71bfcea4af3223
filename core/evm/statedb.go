package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	gethstate "github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/state/snapshot"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/trie/utils"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/holiman/uint256"
	"github.com/puzpuzpuz/xsync/v4"

	"mirrorevm/core/precompile"
	"mirrorevm/core/state"
	"mirrorevm/core/types"
)

// WeibarsPerTinybar scales ledger balances to the 18-decimal unit the EVM
// sees.
var WeibarsPerTinybar = big.NewInt(10_000_000_000)

var errNoTrie = errors.New("evm: historical state has no tries")

// TinybarsToWeibars converts a ledger balance to EVM units.
func TinybarsToWeibars(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(v, WeibarsPerTinybar)
}

// database serves a pinned View to geth's StateDB. It is read-only: the
// StateDB keeps every write in its own journal and is discarded after the
// call, so the trie methods are never reached.
type database struct {
	reader *reader
	triedb *triedb.Database
	points *utils.PointCache
}

func newDatabase(ctx context.Context, view *state.View, ledger *precompile.Ledger) *database {
	return &database{
		reader: &reader{ctx: ctx, view: view, ledger: ledger, code: xsync.NewMap[common.Address, []byte]()},
		triedb: triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil),
		points: utils.NewPointCache(1),
	}
}

func (db *database) Reader(common.Hash) (gethstate.Reader, error) { return db.reader, nil }

func (db *database) OpenTrie(common.Hash) (gethstate.Trie, error) { return nil, errNoTrie }

func (db *database) OpenStorageTrie(common.Hash, common.Address, common.Hash, gethstate.Trie) (gethstate.Trie, error) {
	return nil, errNoTrie
}

func (db *database) PointCache() *utils.PointCache { return db.points }

func (db *database) TrieDB() *triedb.Database { return db.triedb }

func (db *database) Snapshot() *snapshot.Tree { return nil }

// reader answers account, storage and code reads from the view. Tokens,
// including ones created earlier in the same call, present the redirect
// proxy as their code.
type reader struct {
	ctx    context.Context
	view   *state.View
	ledger *precompile.Ledger
	code   *xsync.Map[common.Address, []byte]
}

type resolved struct {
	id      types.EntityID
	balance *big.Int
	nonce   uint64
	code    []byte
	token   bool
}

func (r *reader) resolve(addr common.Address) (*resolved, error) {
	acct, err := r.view.Account(r.ctx, addr)
	if err != nil {
		return nil, err
	}
	if acct != nil && !acct.Deleted {
		out := &resolved{id: acct.ID, balance: acct.Balance, nonce: acct.Nonce, code: acct.Code}
		if acct.IsToken() {
			out.token = true
			out.code = TokenProxyCode(acct.ID.LongZeroAddress())
		}
		return out, nil
	}
	cfg := r.view.Config()
	id, ok := types.EntityIDFromLongZero(addr, cfg.Shard, cfg.Realm)
	if !ok || r.ledger == nil {
		return nil, nil
	}
	tok, err := r.ledger.Token(r.ctx, id)
	if err != nil || tok == nil {
		return nil, err
	}
	return &resolved{id: id, balance: new(big.Int), token: true, code: TokenProxyCode(addr)}, nil
}

func (r *reader) Account(addr common.Address) (*gethtypes.StateAccount, error) {
	res, err := r.resolve(addr)
	if err != nil {
		return nil, fmt.Errorf("read account %s: %w", addr.Hex(), err)
	}
	if res == nil {
		return nil, nil
	}
	balance, overflow := uint256.FromBig(TinybarsToWeibars(res.balance))
	if overflow {
		return nil, types.Internalf("balance of %s overflows", res.id)
	}
	codeHash := gethtypes.EmptyCodeHash
	if len(res.code) > 0 {
		codeHash = crypto.Keccak256Hash(res.code)
		r.code.Store(addr, res.code)
	}
	return &gethtypes.StateAccount{
		Nonce:    res.nonce,
		Balance:  balance,
		Root:     gethtypes.EmptyRootHash,
		CodeHash: codeHash.Bytes(),
	}, nil
}

func (r *reader) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	res, err := r.resolve(addr)
	if err != nil {
		return common.Hash{}, fmt.Errorf("read storage %s: %w", addr.Hex(), err)
	}
	if res == nil || res.token {
		return common.Hash{}, nil
	}
	return r.view.Storage(r.ctx, res.id, slot)
}

func (r *reader) Code(addr common.Address, codeHash common.Hash) ([]byte, error) {
	if codeHash == gethtypes.EmptyCodeHash {
		return nil, nil
	}
	if code, ok := r.code.Load(addr); ok {
		return code, nil
	}
	res, err := r.resolve(addr)
	if err != nil {
		return nil, fmt.Errorf("read code %s: %w", addr.Hex(), err)
	}
	if res == nil {
		return nil, nil
	}
	return res.code, nil
}

func (r *reader) CodeSize(addr common.Address, codeHash common.Hash) (int, error) {
	code, err := r.Code(addr, codeHash)
	return len(code), err
}

func (r *reader) Has(addr common.Address, codeHash common.Hash) bool {
	code, err := r.Code(addr, codeHash)
	return err == nil && len(code) > 0
}
