package storage

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gorm.io/gorm"
)

// Serialized protobuf Key.ECDSASecp256k1 prefix: field 7, length 33.
var ecdsaKeyPrefix = [2]byte{0x3a, 0x21}

// AliasEVMAddress recovers the EVM address an alias answers to: a raw 20-byte
// address, a compressed secp256k1 public key, or a serialized protobuf key
// wrapping one.
func AliasEVMAddress(alias []byte) (common.Address, bool) {
	switch {
	case len(alias) == common.AddressLength:
		return common.BytesToAddress(alias), true
	case len(alias) == 35 && alias[0] == ecdsaKeyPrefix[0] && alias[1] == ecdsaKeyPrefix[1]:
		alias = alias[2:]
	case len(alias) != 33:
		return common.Address{}, false
	}
	pub, err := crypto.DecompressPubkey(alias)
	if err != nil {
		return common.Address{}, false
	}
	return crypto.PubkeyToAddress(*pub), true
}

// fillEvmAddress derives evm_address from the alias when the row carries none,
// so address lookups reach alias-only accounts.
func (e *Entity) fillEvmAddress() {
	if len(e.EvmAddress) != 0 || len(e.Alias) == 0 {
		return
	}
	if addr, ok := AliasEVMAddress(e.Alias); ok {
		e.EvmAddress = addr.Bytes()
	}
}

func (e *Entity) BeforeSave(*gorm.DB) error {
	e.fillEvmAddress()
	return nil
}
