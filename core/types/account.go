package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EntityType classifies ledger entities.
type EntityType string

const (
	EntityAccount  EntityType = "ACCOUNT"
	EntityContract EntityType = "CONTRACT"
	EntityToken    EntityType = "TOKEN"
)

// AccountView is a read-only projection of an account or contract at a
// pinned timestamp.
type AccountView struct {
	ID         EntityID
	Type       EntityType
	EVMAddress common.Address
	// Alias holds the serialized public key the account was created from, if
	// any.
	Alias               []byte
	Balance             *big.Int
	Nonce               uint64
	IsContract          bool
	Code                []byte
	ExpirationTimestamp int64
	AutoRenewPeriod     int64
	KeyMaterial         []byte
	Deleted             bool
}

// IsToken reports whether the entity is a token rather than an account.
func (a *AccountView) IsToken() bool {
	return a != nil && a.Type == EntityToken
}
