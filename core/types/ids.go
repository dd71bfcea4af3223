package types

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	shardBits = 10
	realmBits = 16
	numBits   = 38

	maxShard = 1<<shardBits - 1
	maxRealm = 1<<realmBits - 1
	maxNum   = 1<<numBits - 1
)

// EntityID is the canonical ledger identifier shard.realm.num.
type EntityID struct {
	Shard int64
	Realm int64
	Num   int64
}

// NewEntityID builds an id in the supplied shard and realm.
func NewEntityID(shard, realm, num int64) EntityID {
	return EntityID{Shard: shard, Realm: realm, Num: num}
}

// IsZero reports whether the id is unset.
func (id EntityID) IsZero() bool {
	return id.Shard == 0 && id.Realm == 0 && id.Num == 0
}

// Encoded packs the id into the single integer used as the storage key.
func (id EntityID) Encoded() int64 {
	return (id.Shard&maxShard)<<(realmBits+numBits) | (id.Realm&maxRealm)<<numBits | id.Num&maxNum
}

// DecodeEntityID reverses Encoded.
func DecodeEntityID(encoded int64) EntityID {
	if encoded <= 0 {
		return EntityID{}
	}
	return EntityID{
		Shard: encoded >> (realmBits + numBits) & maxShard,
		Realm: encoded >> numBits & maxRealm,
		Num:   encoded & maxNum,
	}
}

// String renders the id in shard.realm.num form.
func (id EntityID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Shard, id.Realm, id.Num)
}

// ParseEntityID parses a shard.realm.num string.
func ParseEntityID(raw string) (EntityID, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 3 {
		return EntityID{}, fmt.Errorf("entity id %q: expected shard.realm.num", raw)
	}
	var out [3]int64
	for i, part := range parts {
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil || v < 0 {
			return EntityID{}, fmt.Errorf("entity id %q: invalid component %q", raw, part)
		}
		out[i] = v
	}
	if out[0] > maxShard || out[1] > maxRealm || out[2] > maxNum {
		return EntityID{}, fmt.Errorf("entity id %q: component out of range", raw)
	}
	return EntityID{Shard: out[0], Realm: out[1], Num: out[2]}, nil
}

// LongZeroAddress derives the EVM address of the id: 4 bytes shard, 8 bytes
// realm, 8 bytes num, big endian.
func (id EntityID) LongZeroAddress() common.Address {
	var addr common.Address
	binary.BigEndian.PutUint32(addr[0:4], uint32(id.Shard))
	binary.BigEndian.PutUint64(addr[4:12], uint64(id.Realm))
	binary.BigEndian.PutUint64(addr[12:20], uint64(id.Num))
	return addr
}

// EntityIDFromLongZero recovers the id from a long-zero address. The second
// return value is false when the address is not in long-zero form for the
// given shard and realm.
func EntityIDFromLongZero(addr common.Address, shard, realm int64) (EntityID, bool) {
	s := int64(binary.BigEndian.Uint32(addr[0:4]))
	r := int64(binary.BigEndian.Uint64(addr[4:12]))
	n := int64(binary.BigEndian.Uint64(addr[12:20]))
	if s != shard || r != realm || n < 0 || n > maxNum {
		return EntityID{}, false
	}
	return EntityID{Shard: s, Realm: r, Num: n}, true
}

// IsLongZero reports whether addr has the long-zero prefix for shard and realm.
func IsLongZero(addr common.Address, shard, realm int64) bool {
	_, ok := EntityIDFromLongZero(addr, shard, realm)
	return ok
}

// MarshalJSON encodes the id as its packed integer, the form persisted in
// fee and key columns.
func (id EntityID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Encoded())
}

// UnmarshalJSON accepts the packed integer or a shard.realm.num string.
func (id *EntityID) UnmarshalJSON(data []byte) error {
	var encoded int64
	if err := json.Unmarshal(data, &encoded); err == nil {
		*id = DecodeEntityID(encoded)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("entity id: %w", err)
	}
	if raw == "" {
		*id = EntityID{}
		return nil
	}
	parsed, err := ParseEntityID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
