package state

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/puzpuzpuz/xsync/v4"

	"mirrorevm/core/types"
	"mirrorevm/storage"
)

// Config carries the network parameters a view needs to derive addresses and
// block contexts.
type Config struct {
	Shard    int64
	Realm    int64
	GasLimit uint64
	LedgerID string
}

// View is a snapshot of the ledger pinned to one block. Every read within the
// lifetime of a view observes the same row versions: historical blocks query
// by the block's upper consensus timestamp, and each result is memoized so a
// repeated read returns the identical value even for "latest".
//
// Returned values are shared between callers and must not be mutated.
type View struct {
	acc      storage.Accessor
	cfg      Config
	block    types.BlockContext
	at       storage.AsOf
	resolver *Resolver
	memo     *xsync.Map[string, any]
}

// Open resolves tag against the accessor and returns a view pinned to it.
// Block numbers newer than the latest record file fail with
// types.ErrUnknownBlock before any entity is read.
func Open(ctx context.Context, acc storage.Accessor, cfg Config, tag types.BlockTag) (*View, error) {
	if acc == nil {
		return nil, fmt.Errorf("state: accessor required")
	}
	block, err := resolveBlock(ctx, acc, cfg, tag)
	if err != nil {
		return nil, err
	}
	at := storage.At(block.ConsensusTimestampUpperBound)
	if block.Latest {
		at = storage.Latest()
	}
	return newView(acc, cfg, block, at), nil
}

// OpenBefore returns a view of the state immediately before the consensus
// timestamp ts, within the block that contains ts. Replays of a recorded
// transaction read through such a view.
func OpenBefore(ctx context.Context, acc storage.Accessor, cfg Config, ts int64) (*View, error) {
	if acc == nil {
		return nil, fmt.Errorf("state: accessor required")
	}
	row, err := acc.RecordFileByTimestamp(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("load block at %d: %w", ts, err)
	}
	if row == nil {
		return nil, &types.NotFoundError{Kind: types.NotFoundBlock, ID: strconv.FormatInt(ts, 10)}
	}
	return newView(acc, cfg, blockContext(row, cfg, false), storage.At(ts-1)), nil
}

func newView(acc storage.Accessor, cfg Config, block types.BlockContext, at storage.AsOf) *View {
	v := &View{
		acc:   acc,
		cfg:   cfg,
		block: block,
		at:    at,
		memo:  xsync.NewMap[string, any](),
	}
	v.resolver = &Resolver{view: v}
	return v
}

func resolveBlock(ctx context.Context, acc storage.Accessor, cfg Config, tag types.BlockTag) (types.BlockContext, error) {
	latest, err := acc.LatestRecordFile(ctx)
	if err != nil {
		return types.BlockContext{}, fmt.Errorf("load latest block: %w", err)
	}
	if latest == nil {
		return types.BlockContext{}, &types.NotFoundError{Kind: types.NotFoundBlock, ID: tag.String()}
	}
	if tag.Latest {
		return blockContext(latest, cfg, true), nil
	}
	if tag.Number > uint64(latest.Index) {
		return types.BlockContext{}, &types.UnknownBlockError{Requested: tag.Number, Latest: uint64(latest.Index)}
	}
	row, err := acc.RecordFileByIndex(ctx, int64(tag.Number))
	if err != nil {
		return types.BlockContext{}, fmt.Errorf("load block %d: %w", tag.Number, err)
	}
	if row == nil {
		return types.BlockContext{}, &types.NotFoundError{Kind: types.NotFoundBlock, ID: tag.String()}
	}
	return blockContext(row, cfg, false), nil
}

func blockContext(row *storage.RecordFile, cfg Config, latest bool) types.BlockContext {
	hash := row.Hash
	if len(hash) > common.HashLength {
		hash = hash[:common.HashLength]
	}
	return types.BlockContext{
		Number:                       uint64(row.Index),
		Hash:                         common.BytesToHash(hash),
		ConsensusTimestampLowerBound: row.ConsensusStart,
		ConsensusTimestampUpperBound: row.ConsensusEnd,
		GasLimit:                     cfg.GasLimit,
		Latest:                       latest,
	}
}

// Block returns the resolved block.
func (v *View) Block() types.BlockContext { return v.block }

// Config returns the network parameters of the view.
func (v *View) Config() Config { return v.cfg }

// Resolver returns the address resolver bound to this view.
func (v *View) Resolver() *Resolver { return v.resolver }

// memoize returns the cached result for key, loading it once. Absent rows are
// cached as typed nils so they stay absent for the life of the view.
func memoize[T any](v *View, key string, load func() (T, error)) (T, error) {
	if cached, ok := v.memo.Load(key); ok {
		return cached.(T), nil
	}
	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	actual, _ := v.memo.LoadOrStore(key, value)
	return actual.(T), nil
}

func memoKey(kind string, ids ...int64) string {
	key := kind
	for _, id := range ids {
		key += ":" + strconv.FormatInt(id, 10)
	}
	return key
}

func (v *View) entity(ctx context.Context, id types.EntityID) (*storage.Entity, error) {
	return memoize(v, memoKey("entity", id.Encoded()), func() (*storage.Entity, error) {
		row, err := v.acc.Entity(ctx, id.Encoded(), v.at)
		if err != nil {
			return nil, fmt.Errorf("load entity %s: %w", id, err)
		}
		return row, nil
	})
}

// AccountByID returns the account, contract or token entity with the given
// id, or nil when it did not exist at the pinned block.
func (v *View) AccountByID(ctx context.Context, id types.EntityID) (*types.AccountView, error) {
	return memoize(v, memoKey("account", id.Encoded()), func() (*types.AccountView, error) {
		row, err := v.entity(ctx, id)
		if err != nil || row == nil {
			return nil, err
		}
		return v.accountView(ctx, row)
	})
}

// Account resolves addr in any of its forms and returns the account, or nil
// when no entity answers to the address.
func (v *View) Account(ctx context.Context, addr common.Address) (*types.AccountView, error) {
	id, ok, err := v.resolver.Canonicalize(ctx, addr)
	if err != nil || !ok {
		return nil, err
	}
	return v.AccountByID(ctx, id)
}

func (v *View) accountView(ctx context.Context, row *storage.Entity) (*types.AccountView, error) {
	id := entityID(row)
	evmAddr, err := v.resolver.addressOf(row)
	if err != nil {
		return nil, err
	}
	view := &types.AccountView{
		ID:          id,
		Type:        types.EntityType(row.Type),
		EVMAddress:  evmAddr,
		Alias:       row.Alias,
		Balance:     big.NewInt(row.Balance),
		Nonce:       uint64(max(row.EthereumNonce, 0)),
		IsContract:  row.Type == string(types.EntityContract),
		KeyMaterial: row.Key,
		Deleted:     row.Deleted,
	}
	if row.ExpirationTimestamp != nil {
		view.ExpirationTimestamp = *row.ExpirationTimestamp
	}
	if row.AutoRenewPeriod != nil {
		view.AutoRenewPeriod = *row.AutoRenewPeriod
	}
	if view.IsContract {
		code, err := v.acc.ContractBytecode(ctx, row.ID)
		if err != nil {
			return nil, fmt.Errorf("load bytecode %s: %w", id, err)
		}
		view.Code = code
	}
	return view, nil
}

func entityID(row *storage.Entity) types.EntityID {
	if row.Num != 0 || row.Shard != 0 || row.Realm != 0 {
		return types.NewEntityID(row.Shard, row.Realm, row.Num)
	}
	return types.DecodeEntityID(row.ID)
}

// Token returns the token with the given id, or nil when it did not exist at
// the pinned block. Deleted tokens are returned with Deleted set.
func (v *View) Token(ctx context.Context, id types.EntityID) (*types.TokenView, error) {
	return memoize(v, memoKey("token", id.Encoded()), func() (*types.TokenView, error) {
		row, err := v.acc.Token(ctx, id.Encoded(), v.at)
		if err != nil {
			return nil, fmt.Errorf("load token %s: %w", id, err)
		}
		if row == nil {
			return nil, nil
		}
		ent, err := v.entity(ctx, id)
		if err != nil {
			return nil, err
		}
		fees, err := v.CustomFees(ctx, id)
		if err != nil {
			return nil, err
		}
		return v.tokenView(id, row, ent, fees), nil
	})
}

func (v *View) tokenView(id types.EntityID, row *storage.Token, ent *storage.Entity, fees types.CustomFees) *types.TokenView {
	tokenType := types.FungibleCommon
	if row.Type == types.NonFungibleUnique.String() {
		tokenType = types.NonFungibleUnique
	}
	supplyType := types.SupplyInfinite
	if row.SupplyType == string(types.SupplyFinite) {
		supplyType = types.SupplyFinite
	}
	pause := types.PauseNotApplicable
	switch types.PauseStatus(row.PauseStatus) {
	case types.PausePaused:
		pause = types.PausePaused
	case types.PauseUnpaused:
		pause = types.PauseUnpaused
	}
	view := &types.TokenView{
		ID:            id,
		Type:          tokenType,
		Name:          row.Name,
		Symbol:        row.Symbol,
		Metadata:      row.Metadata,
		Decimals:      row.Decimals,
		TotalSupply:   big.NewInt(row.TotalSupply),
		MaxSupply:     big.NewInt(row.MaxSupply),
		SupplyType:    supplyType,
		Treasury:      types.DecodeEntityID(row.TreasuryAccountID),
		FreezeDefault: row.FreezeDefault,
		KycDefault:    row.KycDefault,
		PauseStatus:   pause,
		Keys: types.TokenKeys{
			Admin:       row.AdminKey,
			Kyc:         row.KycKey,
			Freeze:      row.FreezeKey,
			Wipe:        row.WipeKey,
			Supply:      row.SupplyKey,
			FeeSchedule: row.FeeScheduleKey,
			Pause:       row.PauseKey,
		},
		CustomFees: fees,
		LedgerID:   v.cfg.LedgerID,
	}
	if ent != nil {
		view.Memo = ent.Memo
		view.Deleted = ent.Deleted
		if ent.ExpirationTimestamp != nil {
			view.Expiry.Second = *ent.ExpirationTimestamp
		}
		if ent.AutoRenewAccountID != nil {
			view.Expiry.AutoRenewAccount = types.DecodeEntityID(*ent.AutoRenewAccountID)
		}
		if ent.AutoRenewPeriod != nil {
			view.Expiry.AutoRenewPeriod = *ent.AutoRenewPeriod
		}
	}
	return view
}

// Relationship returns the association of account with token. Nil means the
// account was never associated; a non-nil relationship may still carry
// Associated=false.
func (v *View) Relationship(ctx context.Context, account, token types.EntityID) (*types.TokenRelationship, error) {
	return memoize(v, memoKey("rel", account.Encoded(), token.Encoded()), func() (*types.TokenRelationship, error) {
		row, err := v.acc.TokenAccount(ctx, account.Encoded(), token.Encoded(), v.at)
		if err != nil {
			return nil, fmt.Errorf("load relationship %s/%s: %w", account, token, err)
		}
		if row == nil {
			return nil, nil
		}
		return &types.TokenRelationship{
			AccountID:    account,
			TokenID:      token,
			Balance:      big.NewInt(row.Balance),
			Associated:   row.Associated,
			FreezeStatus: types.FreezeStatus(row.FreezeStatus),
			KycStatus:    types.KycStatus(row.KycStatus),
		}, nil
	})
}

// Nft returns one serial of a non-fungible token.
func (v *View) Nft(ctx context.Context, token types.EntityID, serial int64) (*types.NftView, error) {
	return memoize(v, memoKey("nft", token.Encoded(), serial), func() (*types.NftView, error) {
		row, err := v.acc.Nft(ctx, token.Encoded(), serial, v.at)
		if err != nil {
			return nil, fmt.Errorf("load nft %s/%d: %w", token, serial, err)
		}
		if row == nil {
			return nil, nil
		}
		view := &types.NftView{
			TokenID:          token,
			Serial:           serial,
			Metadata:         row.Metadata,
			CreatedTimestamp: row.CreatedTimestamp,
			Deleted:          row.Deleted,
		}
		if row.AccountID != nil {
			view.Owner = types.DecodeEntityID(*row.AccountID)
		}
		if row.Spender != nil {
			view.Spender = types.DecodeEntityID(*row.Spender)
		}
		return view, nil
	})
}

// Allowance returns the fungible allowance of owner to spender, or nil when
// none was ever granted.
func (v *View) Allowance(ctx context.Context, token, owner, spender types.EntityID) (*types.FungibleAllowance, error) {
	return memoize(v, memoKey("allowance", token.Encoded(), owner.Encoded(), spender.Encoded()), func() (*types.FungibleAllowance, error) {
		row, err := v.acc.TokenAllowance(ctx, owner.Encoded(), spender.Encoded(), token.Encoded(), v.at)
		if err != nil {
			return nil, fmt.Errorf("load allowance %s: %w", token, err)
		}
		if row == nil {
			return nil, nil
		}
		return &types.FungibleAllowance{
			TokenID:         token,
			Owner:           owner,
			Spender:         spender,
			AmountGranted:   big.NewInt(row.AmountGranted),
			AmountRemaining: big.NewInt(row.Amount),
		}, nil
	})
}

// NftAllowance returns the approve-for-all grant of owner to spender.
func (v *View) NftAllowance(ctx context.Context, token, owner, spender types.EntityID) (*types.NftAllowance, error) {
	return memoize(v, memoKey("nft-allowance", token.Encoded(), owner.Encoded(), spender.Encoded()), func() (*types.NftAllowance, error) {
		row, err := v.acc.NftAllowance(ctx, owner.Encoded(), spender.Encoded(), token.Encoded(), v.at)
		if err != nil {
			return nil, fmt.Errorf("load nft allowance %s: %w", token, err)
		}
		if row == nil {
			return nil, nil
		}
		return &types.NftAllowance{
			TokenID:        token,
			Owner:          owner,
			Spender:        spender,
			ApprovedForAll: row.ApprovedForAll,
		}, nil
	})
}

// CustomFees returns the fee schedule of a token in ledger insertion order.
// A token without a schedule has empty lists.
func (v *View) CustomFees(ctx context.Context, token types.EntityID) (types.CustomFees, error) {
	return memoize(v, memoKey("fees", token.Encoded()), func() (types.CustomFees, error) {
		row, err := v.acc.CustomFee(ctx, token.Encoded(), v.at)
		if err != nil {
			return types.CustomFees{}, fmt.Errorf("load custom fees %s: %w", token, err)
		}
		var fees types.CustomFees
		if row == nil {
			return fees, nil
		}
		if err := decodeFees(row.FixedFees, &fees.Fixed); err != nil {
			return fees, types.Internalf("token %s fixed fees: %v", token, err)
		}
		if err := decodeFees(row.FractionalFees, &fees.Fractional); err != nil {
			return fees, types.Internalf("token %s fractional fees: %v", token, err)
		}
		if err := decodeFees(row.RoyaltyFees, &fees.Royalty); err != nil {
			return fees, types.Internalf("token %s royalty fees: %v", token, err)
		}
		return fees, nil
	})
}

func decodeFees[T any](raw string, out *[]T) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

// Storage returns the value of a contract storage slot. Unset slots read as
// the zero hash.
func (v *View) Storage(ctx context.Context, contract types.EntityID, slot common.Hash) (common.Hash, error) {
	key := "slot:" + strconv.FormatInt(contract.Encoded(), 10) + ":" + slot.Hex()
	return memoize(v, key, func() (common.Hash, error) {
		value, err := v.acc.ContractState(ctx, contract.Encoded(), slot.Bytes(), v.at)
		if err != nil {
			return common.Hash{}, fmt.Errorf("load slot %s/%s: %w", contract, slot.Hex(), err)
		}
		return common.BytesToHash(value), nil
	})
}

// BlockHash returns the hash of an earlier block for the BLOCKHASH opcode.
// Blocks past the pinned one, and unknown blocks, read as the zero hash.
func (v *View) BlockHash(ctx context.Context, number uint64) (common.Hash, error) {
	if number > v.block.Number {
		return common.Hash{}, nil
	}
	if number == v.block.Number {
		return v.block.Hash, nil
	}
	return memoize(v, "blockhash:"+strconv.FormatUint(number, 10), func() (common.Hash, error) {
		row, err := v.acc.RecordFileByIndex(ctx, int64(number))
		if err != nil {
			return common.Hash{}, fmt.Errorf("load block %d: %w", number, err)
		}
		if row == nil {
			return common.Hash{}, nil
		}
		return blockContext(row, v.cfg, false).Hash, nil
	})
}
