package types

import (
	"math/big"
)

// TokenType mirrors the HTS token type ordinal returned by getTokenType.
type TokenType int32

const (
	FungibleCommon    TokenType = 0
	NonFungibleUnique TokenType = 1
)

func (t TokenType) String() string {
	if t == NonFungibleUnique {
		return "NON_FUNGIBLE_UNIQUE"
	}
	return "FUNGIBLE_COMMON"
}

// SupplyType distinguishes capped from uncapped tokens.
type SupplyType string

const (
	SupplyInfinite SupplyType = "INFINITE"
	SupplyFinite   SupplyType = "FINITE"
)

// PauseStatus of a token.
type PauseStatus string

const (
	PauseNotApplicable PauseStatus = "NOT_APPLICABLE"
	PausePaused        PauseStatus = "PAUSED"
	PauseUnpaused      PauseStatus = "UNPAUSED"
)

// FreezeStatus of a token relationship.
type FreezeStatus int16

const (
	FreezeNotApplicable FreezeStatus = 0
	FreezeFrozen        FreezeStatus = 1
	FreezeUnfrozen      FreezeStatus = 2
)

// KycStatus of a token relationship.
type KycStatus int16

const (
	KycNotApplicable KycStatus = 0
	KycGranted       KycStatus = 1
	KycRevoked       KycStatus = 2
)

// KeyType is the HTS key selector bit used by getTokenKey and updateTokenKeys.
type KeyType uint64

const (
	KeyAdmin       KeyType = 1
	KeyKyc         KeyType = 2
	KeyFreeze      KeyType = 4
	KeyWipe        KeyType = 8
	KeySupply      KeyType = 16
	KeyFeeSchedule KeyType = 32
	KeyPause       KeyType = 64
)

// AllKeyTypes in ABI order.
var AllKeyTypes = []KeyType{KeyAdmin, KeyKyc, KeyFreeze, KeyWipe, KeySupply, KeyFeeSchedule, KeyPause}

// TokenKeys holds the raw stored (protobuf encoded) keys of a token. A nil
// slice means the key is not set.
type TokenKeys struct {
	Admin       []byte
	Kyc         []byte
	Freeze      []byte
	Wipe        []byte
	Supply      []byte
	FeeSchedule []byte
	Pause       []byte
}

// Get returns the stored key for the given type.
func (k TokenKeys) Get(t KeyType) []byte {
	switch t {
	case KeyAdmin:
		return k.Admin
	case KeyKyc:
		return k.Kyc
	case KeyFreeze:
		return k.Freeze
	case KeyWipe:
		return k.Wipe
	case KeySupply:
		return k.Supply
	case KeyFeeSchedule:
		return k.FeeSchedule
	case KeyPause:
		return k.Pause
	}
	return nil
}

// Set stores raw key bytes for every type bit present in mask.
func (k *TokenKeys) Set(mask KeyType, raw []byte) {
	if mask&KeyAdmin != 0 {
		k.Admin = raw
	}
	if mask&KeyKyc != 0 {
		k.Kyc = raw
	}
	if mask&KeyFreeze != 0 {
		k.Freeze = raw
	}
	if mask&KeyWipe != 0 {
		k.Wipe = raw
	}
	if mask&KeySupply != 0 {
		k.Supply = raw
	}
	if mask&KeyFeeSchedule != 0 {
		k.FeeSchedule = raw
	}
	if mask&KeyPause != 0 {
		k.Pause = raw
	}
}

// Expiry of a token or account.
type Expiry struct {
	Second           int64
	AutoRenewAccount EntityID
	AutoRenewPeriod  int64
}

// FixedFee charges a flat amount in hbar or a denominating token.
type FixedFee struct {
	Amount int64 `json:"amount"`
	// DenominatingTokenID zero means the fee is paid in hbar.
	DenominatingTokenID EntityID `json:"denominating_token_id"`
	Collector           EntityID `json:"collector_account_id"`
}

// FractionalFee charges a fraction of the transferred units.
type FractionalFee struct {
	Numerator      int64    `json:"numerator"`
	Denominator    int64    `json:"denominator"`
	MinimumAmount  int64    `json:"minimum_amount"`
	MaximumAmount  int64    `json:"maximum_amount"`
	NetOfTransfers bool     `json:"net_of_transfers"`
	Collector      EntityID `json:"collector_account_id"`
}

// RoyaltyFee charges a fraction of the exchanged value of an NFT transfer,
// with an optional fixed fallback when no value is exchanged.
type RoyaltyFee struct {
	Numerator   int64     `json:"numerator"`
	Denominator int64     `json:"denominator"`
	FallbackFee *FixedFee `json:"fallback_fee,omitempty"`
	Collector   EntityID  `json:"collector_account_id"`
}

// CustomFees keeps the three fee lists in ledger insertion order.
type CustomFees struct {
	Fixed      []FixedFee
	Fractional []FractionalFee
	Royalty    []RoyaltyFee
}

// TokenView is a read-only projection of a token at a pinned timestamp.
type TokenView struct {
	ID            EntityID
	Type          TokenType
	Name          string
	Symbol        string
	Memo          string
	Metadata      []byte
	Decimals      int32
	TotalSupply   *big.Int
	MaxSupply     *big.Int
	SupplyType    SupplyType
	Treasury      EntityID
	FreezeDefault bool
	KycDefault    bool
	PauseStatus   PauseStatus
	Deleted       bool
	Expiry        Expiry
	Keys          TokenKeys
	CustomFees    CustomFees
	// LedgerID is the network ledger id reported in token info.
	LedgerID string
}

// Paused reports whether the token is currently paused.
func (t *TokenView) Paused() bool {
	return t != nil && t.PauseStatus == PausePaused
}

// TokenRelationship is the association of an account with a token. The
// absence of a relationship means "never associated"; a relationship with
// Associated=false is a dissociated historical state.
type TokenRelationship struct {
	AccountID    EntityID
	TokenID      EntityID
	Balance      *big.Int
	Associated   bool
	FreezeStatus FreezeStatus
	KycStatus    KycStatus
}

// NftView is a single serial of a non-fungible token.
type NftView struct {
	TokenID EntityID
	Serial  int64
	Owner   EntityID
	// Spender is zero when no single-serial approval exists. It is independent
	// of NftAllowance.ApprovedForAll.
	Spender          EntityID
	Metadata         []byte
	CreatedTimestamp int64
	Deleted          bool
}

// FungibleAllowance is an owner's grant to a spender for a fungible token.
type FungibleAllowance struct {
	TokenID         EntityID
	Owner           EntityID
	Spender         EntityID
	AmountGranted   *big.Int
	AmountRemaining *big.Int
}

// NftAllowance is an owner's operator approval for all serials of a token.
type NftAllowance struct {
	TokenID        EntityID
	Owner          EntityID
	Spender        EntityID
	ApprovedForAll bool
}
