package precompile

import (
	"context"
	"math/big"

	"mirrorevm/core/state"
	"mirrorevm/core/types"
)

// syntheticNumBase is the first entity number handed to tokens created
// during a simulated call. It sits far above any number the ledger assigns.
const syntheticNumBase int64 = 1 << 37

type relKey struct{ account, token types.EntityID }

type nftKey struct {
	token  types.EntityID
	serial int64
}

type allowanceKey struct{ token, owner, spender types.EntityID }

// Ledger is the per-call overlay that receives simulated token mutations.
// Reads fall through to the pinned view for anything not yet written. Every
// write is journaled so a reverted frame can roll back to its checkpoint;
// nothing written here outlives the call.
type Ledger struct {
	view *state.View

	tokens        map[types.EntityID]*types.TokenView
	rels          map[relKey]*types.TokenRelationship
	nfts          map[nftKey]*types.NftView
	allowances    map[allowanceKey]*types.FungibleAllowance
	nftAllowances map[allowanceKey]*types.NftAllowance
	created       int64

	journal []func()
}

// NewLedger returns an empty overlay on top of view.
func NewLedger(view *state.View) *Ledger {
	return &Ledger{
		view:          view,
		tokens:        make(map[types.EntityID]*types.TokenView),
		rels:          make(map[relKey]*types.TokenRelationship),
		nfts:          make(map[nftKey]*types.NftView),
		allowances:    make(map[allowanceKey]*types.FungibleAllowance),
		nftAllowances: make(map[allowanceKey]*types.NftAllowance),
	}
}

// Checkpoint returns a marker for RevertTo.
func (l *Ledger) Checkpoint() int { return len(l.journal) }

// RevertTo undoes every write made after the checkpoint was taken.
func (l *Ledger) RevertTo(checkpoint int) {
	for i := len(l.journal) - 1; i >= checkpoint; i-- {
		l.journal[i]()
	}
	l.journal = l.journal[:checkpoint]
}

// Dirty reports whether any write is outstanding.
func (l *Ledger) Dirty() bool { return len(l.journal) > 0 }

func put[K comparable, V any](l *Ledger, m map[K]*V, key K, value *V) {
	prev, had := m[key]
	l.journal = append(l.journal, func() {
		if had {
			m[key] = prev
		} else {
			delete(m, key)
		}
	})
	m[key] = value
}

func (l *Ledger) Token(ctx context.Context, id types.EntityID) (*types.TokenView, error) {
	if t, ok := l.tokens[id]; ok {
		return t, nil
	}
	return l.view.Token(ctx, id)
}

func (l *Ledger) PutToken(t *types.TokenView) { put(l, l.tokens, t.ID, t) }

func (l *Ledger) Relationship(ctx context.Context, account, token types.EntityID) (*types.TokenRelationship, error) {
	if r, ok := l.rels[relKey{account, token}]; ok {
		return r, nil
	}
	return l.view.Relationship(ctx, account, token)
}

func (l *Ledger) PutRelationship(r *types.TokenRelationship) {
	put(l, l.rels, relKey{r.AccountID, r.TokenID}, r)
}

func (l *Ledger) Nft(ctx context.Context, token types.EntityID, serial int64) (*types.NftView, error) {
	if n, ok := l.nfts[nftKey{token, serial}]; ok {
		return n, nil
	}
	return l.view.Nft(ctx, token, serial)
}

func (l *Ledger) PutNft(n *types.NftView) { put(l, l.nfts, nftKey{n.TokenID, n.Serial}, n) }

func (l *Ledger) Allowance(ctx context.Context, token, owner, spender types.EntityID) (*types.FungibleAllowance, error) {
	if a, ok := l.allowances[allowanceKey{token, owner, spender}]; ok {
		return a, nil
	}
	return l.view.Allowance(ctx, token, owner, spender)
}

func (l *Ledger) PutAllowance(a *types.FungibleAllowance) {
	put(l, l.allowances, allowanceKey{a.TokenID, a.Owner, a.Spender}, a)
}

func (l *Ledger) NftAllowance(ctx context.Context, token, owner, spender types.EntityID) (*types.NftAllowance, error) {
	if a, ok := l.nftAllowances[allowanceKey{token, owner, spender}]; ok {
		return a, nil
	}
	return l.view.NftAllowance(ctx, token, owner, spender)
}

func (l *Ledger) PutNftAllowance(a *types.NftAllowance) {
	put(l, l.nftAllowances, allowanceKey{a.TokenID, a.Owner, a.Spender}, a)
}

// NextTokenID allocates an id for a token created during the call.
func (l *Ledger) NextTokenID() types.EntityID {
	prev := l.created
	l.journal = append(l.journal, func() { l.created = prev })
	l.created++
	cfg := l.view.Config()
	return types.NewEntityID(cfg.Shard, cfg.Realm, syntheticNumBase+l.created)
}

func cloneToken(t *types.TokenView) *types.TokenView {
	c := *t
	c.TotalSupply = cloneInt(t.TotalSupply)
	c.MaxSupply = cloneInt(t.MaxSupply)
	return &c
}

func cloneRel(r *types.TokenRelationship) *types.TokenRelationship {
	c := *r
	c.Balance = cloneInt(r.Balance)
	return &c
}

func cloneNft(n *types.NftView) *types.NftView {
	c := *n
	return &c
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
