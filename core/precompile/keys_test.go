package precompile

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/protobuf/encoding/protowire"

	"mirrorevm/core/types"
)

func setAlternatives(kv KeyValue) int {
	n := 0
	if kv.InheritAccountKey {
		n++
	}
	if len(kv.Ed25519) > 0 {
		n++
	}
	if len(kv.ECDSASecp256k1) > 0 {
		n++
	}
	if kv.ContractId != (common.Address{}) {
		n++
	}
	if kv.DelegatableContractId != (common.Address{}) {
		n++
	}
	return n
}

func TestKeyRoundTrip(t *testing.T) {
	codec := keyCodec{}
	contract := types.EntityID{Num: 5}.LongZeroAddress()
	cases := []struct {
		name  string
		key   KeyValue
		check func(KeyValue) bool
	}{
		{"ed25519", KeyValue{Ed25519: make32(0x11)}, func(kv KeyValue) bool { return string(kv.Ed25519) == string(make32(0x11)) }},
		{"ecdsa", KeyValue{ECDSASecp256k1: append([]byte{0x02}, make32(0x22)...)}, func(kv KeyValue) bool { return len(kv.ECDSASecp256k1) == 33 }},
		{"contract", KeyValue{ContractId: contract}, func(kv KeyValue) bool { return kv.ContractId == contract }},
		{"delegatable", KeyValue{DelegatableContractId: contract}, func(kv KeyValue) bool { return kv.DelegatableContractId == contract }},
		{"evm address contract", KeyValue{ContractId: common.HexToAddress("0xabcdef0000000000000000000000000000000001")}, func(kv KeyValue) bool {
			return kv.ContractId == common.HexToAddress("0xabcdef0000000000000000000000000000000001")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := codec.Encode(tc.key)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			decoded, err := codec.Decode(raw)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got := setAlternatives(decoded); got != 1 {
				t.Fatalf("expected exactly one alternative, got %d (%+v)", got, decoded)
			}
			if !tc.check(decoded) {
				t.Fatalf("unexpected decoded key %+v", decoded)
			}
		})
	}
}

func TestKeyEncodeRejectsAmbiguousKeys(t *testing.T) {
	codec := keyCodec{}
	if _, err := codec.Encode(KeyValue{}); err != errAmbiguousKey {
		t.Fatalf("empty key: got %v", err)
	}
	if _, err := codec.Encode(KeyValue{Ed25519: make32(1), ECDSASecp256k1: make32(2)}); err != errAmbiguousKey {
		t.Fatalf("two alternatives: got %v", err)
	}
}

func TestKeyDecodeWithoutAbiForm(t *testing.T) {
	// Field 3 is a threshold key, which has no tuple representation.
	raw := protowire.AppendTag(nil, 3, protowire.BytesType)
	raw = protowire.AppendBytes(raw, []byte{0x08, 0x01})
	kv, err := keyCodec{}.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if setAlternatives(kv) != 0 || kv.Ed25519 == nil || kv.ECDSASecp256k1 == nil {
		t.Fatalf("expected default tuple with empty byte fields, got %+v", kv)
	}

	if _, err := (keyCodec{}).Decode([]byte{0x12, 0x40}); err == nil {
		t.Fatalf("expected error for truncated key")
	}
}

func make32(b byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = b
	}
	return out
}
