package precompile

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/protobuf/encoding/protowire"

	"mirrorevm/core/types"
)

// Field numbers of the ledger's protobuf Key and ContractID messages.
const (
	keyContractID          protowire.Number = 1
	keyEd25519             protowire.Number = 2
	keyECDSASecp256k1      protowire.Number = 7
	keyDelegatableContract protowire.Number = 8

	contractShard      protowire.Number = 1
	contractRealm      protowire.Number = 2
	contractNum        protowire.Number = 3
	contractEvmAddress protowire.Number = 4
)

var errAmbiguousKey = errors.New("key must set exactly one alternative")

// keyCodec converts between stored protobuf keys and the KeyValue ABI tuple.
// Contract ids are rendered as long-zero addresses of the configured shard
// and realm.
type keyCodec struct {
	shard int64
	realm int64
}

// Decode turns a stored key into a KeyValue. An empty key, or a key kind
// without an ABI representation (key lists, threshold keys), decodes to the
// all-default tuple.
func (c keyCodec) Decode(raw []byte) (KeyValue, error) {
	var kv KeyValue
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return KeyValue{}, fmt.Errorf("key tag: %w", protowire.ParseError(n))
		}
		raw = raw[n:]
		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, raw)
			if n < 0 {
				return KeyValue{}, fmt.Errorf("key field %d: %w", num, protowire.ParseError(n))
			}
			raw = raw[n:]
			continue
		}
		value, n := protowire.ConsumeBytes(raw)
		if n < 0 {
			return KeyValue{}, fmt.Errorf("key field %d: %w", num, protowire.ParseError(n))
		}
		raw = raw[n:]
		switch num {
		case keyEd25519:
			kv.Ed25519 = append([]byte(nil), value...)
		case keyECDSASecp256k1:
			kv.ECDSASecp256k1 = append([]byte(nil), value...)
		case keyContractID:
			addr, err := c.decodeContractID(value)
			if err != nil {
				return KeyValue{}, err
			}
			kv.ContractId = addr
		case keyDelegatableContract:
			addr, err := c.decodeContractID(value)
			if err != nil {
				return KeyValue{}, err
			}
			kv.DelegatableContractId = addr
		}
	}
	if kv.Ed25519 == nil {
		kv.Ed25519 = []byte{}
	}
	if kv.ECDSASecp256k1 == nil {
		kv.ECDSASecp256k1 = []byte{}
	}
	return kv, nil
}

func (c keyCodec) decodeContractID(raw []byte) (common.Address, error) {
	id := types.EntityID{Shard: c.shard, Realm: c.realm}
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return common.Address{}, fmt.Errorf("contract id tag: %w", protowire.ParseError(n))
		}
		raw = raw[n:]
		switch {
		case num == contractEvmAddress && typ == protowire.BytesType:
			value, n := protowire.ConsumeBytes(raw)
			if n < 0 {
				return common.Address{}, fmt.Errorf("contract evm address: %w", protowire.ParseError(n))
			}
			return common.BytesToAddress(value), nil
		case typ == protowire.VarintType:
			value, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return common.Address{}, fmt.Errorf("contract id field %d: %w", num, protowire.ParseError(n))
			}
			raw = raw[n:]
			switch num {
			case contractShard:
				id.Shard = int64(value)
			case contractRealm:
				id.Realm = int64(value)
			case contractNum:
				id.Num = int64(value)
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, raw)
			if n < 0 {
				return common.Address{}, fmt.Errorf("contract id field %d: %w", num, protowire.ParseError(n))
			}
			raw = raw[n:]
		}
	}
	return id.LongZeroAddress(), nil
}

// Encode serializes a KeyValue that sets exactly one key alternative.
// inheritAccountKey must be resolved by the caller before encoding.
func (c keyCodec) Encode(kv KeyValue) ([]byte, error) {
	set := 0
	var out []byte
	if len(kv.Ed25519) > 0 {
		set++
		out = protowire.AppendTag(out, keyEd25519, protowire.BytesType)
		out = protowire.AppendBytes(out, kv.Ed25519)
	}
	if len(kv.ECDSASecp256k1) > 0 {
		set++
		out = protowire.AppendTag(out, keyECDSASecp256k1, protowire.BytesType)
		out = protowire.AppendBytes(out, kv.ECDSASecp256k1)
	}
	if kv.ContractId != (common.Address{}) {
		set++
		out = protowire.AppendTag(out, keyContractID, protowire.BytesType)
		out = protowire.AppendBytes(out, c.encodeContractID(kv.ContractId))
	}
	if kv.DelegatableContractId != (common.Address{}) {
		set++
		out = protowire.AppendTag(out, keyDelegatableContract, protowire.BytesType)
		out = protowire.AppendBytes(out, c.encodeContractID(kv.DelegatableContractId))
	}
	if set != 1 {
		return nil, errAmbiguousKey
	}
	return out, nil
}

func (c keyCodec) encodeContractID(addr common.Address) []byte {
	var out []byte
	if id, ok := types.EntityIDFromLongZero(addr, c.shard, c.realm); ok {
		out = protowire.AppendTag(out, contractShard, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(id.Shard))
		out = protowire.AppendTag(out, contractRealm, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(id.Realm))
		out = protowire.AppendTag(out, contractNum, protowire.VarintType)
		return protowire.AppendVarint(out, uint64(id.Num))
	}
	out = protowire.AppendTag(out, contractEvmAddress, protowire.BytesType)
	return protowire.AppendBytes(out, addr.Bytes())
}
