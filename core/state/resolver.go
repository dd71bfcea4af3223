package state

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"mirrorevm/core/types"
	"mirrorevm/storage"
)

type canonical struct {
	id types.EntityID
	ok bool
}

// Resolver maps between canonical entity ids and the EVM address forms an
// entity answers to: its long-zero address, its stored EVM address and the
// address recovered from an ECDSA alias. All lookups go through the owning
// view and observe its snapshot.
type Resolver struct {
	view *View
}

// Canonicalize returns the entity id addr refers to. The boolean is false
// when no entity answers to addr at the pinned block; that is not an error.
func (r *Resolver) Canonicalize(ctx context.Context, addr common.Address) (types.EntityID, bool, error) {
	res, err := memoize(r.view, "canon:"+addr.Hex(), func() (canonical, error) {
		return r.canonicalize(ctx, addr)
	})
	return res.id, res.ok, err
}

func (r *Resolver) canonicalize(ctx context.Context, addr common.Address) (canonical, error) {
	cfg := r.view.cfg
	if id, ok := types.EntityIDFromLongZero(addr, cfg.Shard, cfg.Realm); ok {
		row, err := r.view.entity(ctx, id)
		if err != nil {
			return canonical{}, err
		}
		return canonical{id: id, ok: row != nil}, nil
	}
	row, err := r.view.acc.EntityByEvmAddress(ctx, addr.Bytes(), r.view.at)
	if err != nil {
		return canonical{}, fmt.Errorf("resolve %s: %w", addr.Hex(), err)
	}
	if row == nil {
		row, err = r.view.acc.EntityByAlias(ctx, addr.Bytes(), r.view.at)
		if err != nil {
			return canonical{}, fmt.Errorf("resolve alias %s: %w", addr.Hex(), err)
		}
	}
	if row == nil {
		return canonical{}, nil
	}
	return canonical{id: entityID(row), ok: true}, nil
}

// EVMAddressOf returns the address the entity presents to the EVM: its stored
// EVM address, else the address recovered from its ECDSA alias, else its
// long-zero address. Unknown ids map to their long-zero address.
func (r *Resolver) EVMAddressOf(ctx context.Context, id types.EntityID) (common.Address, error) {
	if id.IsZero() {
		return common.Address{}, nil
	}
	row, err := r.view.entity(ctx, id)
	if err != nil {
		return common.Address{}, err
	}
	if row == nil {
		return id.LongZeroAddress(), nil
	}
	return r.addressOf(row)
}

func (r *Resolver) addressOf(row *storage.Entity) (common.Address, error) {
	if len(row.EvmAddress) == common.AddressLength {
		return common.BytesToAddress(row.EvmAddress), nil
	}
	if len(row.EvmAddress) != 0 {
		return common.Address{}, types.Internalf("entity %d has malformed evm address of %d bytes", row.ID, len(row.EvmAddress))
	}
	if addr, ok := AliasAddress(row.Alias); ok {
		return addr, nil
	}
	return entityID(row).LongZeroAddress(), nil
}

// AliasAddress recovers the EVM address of an alias: a raw 20-byte address, a
// compressed secp256k1 public key, or a serialized protobuf key wrapping one.
func AliasAddress(alias []byte) (common.Address, bool) {
	return storage.AliasEVMAddress(alias)
}
