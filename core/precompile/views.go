package precompile

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"mirrorevm/core/types"
)

const nanosPerSecond = 1_000_000_000

type tokenArg struct {
	Token common.Address `abi:"token"`
}

type tokenAccountArgs struct {
	Token   common.Address `abi:"token"`
	Account common.Address `abi:"account"`
}

type tokenSerialArgs struct {
	Token        common.Address `abi:"token"`
	SerialNumber int64          `abi:"serialNumber"`
}

type tokenKeyArgs struct {
	Token   common.Address `abi:"token"`
	KeyType *big.Int       `abi:"keyType"`
}

type allowanceArgs struct {
	Token   common.Address `abi:"token"`
	Owner   common.Address `abi:"owner"`
	Spender common.Address `abi:"spender"`
}

type getApprovedArgs struct {
	Token        common.Address `abi:"token"`
	SerialNumber *big.Int       `abi:"serialNumber"`
}

type approvedForAllArgs struct {
	Token    common.Address `abi:"token"`
	Owner    common.Address `abi:"owner"`
	Operator common.Address `abi:"operator"`
}

// tokenOf decodes the single token argument and loads it.
func (d *Dispatcher) tokenOf(c *call) (*types.TokenView, error) {
	var a tokenArg
	if err := c.args(&a); err != nil {
		return nil, err
	}
	return d.token(a.Token)
}

func (d *Dispatcher) isToken(c *call) ([]byte, error) {
	_, err := d.tokenOf(c)
	var coded *codeError
	switch {
	case err == nil:
		return c.success(true)
	case errors.As(err, &coded) && coded.code == InvalidTokenID:
		return c.success(false)
	}
	return nil, err
}

func (d *Dispatcher) relationshipOf(c *call) (*types.TokenRelationship, error) {
	var a tokenAccountArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.token(a.Token)
	if err != nil {
		return nil, err
	}
	account, err := d.account(a.Account, InvalidAccountID)
	if err != nil {
		return nil, err
	}
	rel, err := d.ledger.Relationship(d.ctx, account, t.ID)
	if err != nil || rel == nil || !rel.Associated {
		return nil, err
	}
	return rel, nil
}

func (d *Dispatcher) isFrozen(c *call) ([]byte, error) {
	rel, err := d.relationshipOf(c)
	if err != nil {
		return nil, err
	}
	return c.success(rel != nil && rel.FreezeStatus == types.FreezeFrozen)
}

func (d *Dispatcher) isKyc(c *call) ([]byte, error) {
	rel, err := d.relationshipOf(c)
	if err != nil {
		return nil, err
	}
	return c.success(rel != nil && rel.KycStatus == types.KycGranted)
}

func (d *Dispatcher) defaultFreezeStatus(c *call) ([]byte, error) {
	t, err := d.tokenOf(c)
	if err != nil {
		return nil, err
	}
	return c.success(t.FreezeDefault)
}

func (d *Dispatcher) defaultKycStatus(c *call) ([]byte, error) {
	t, err := d.tokenOf(c)
	if err != nil {
		return nil, err
	}
	return c.success(t.KycDefault)
}

func (d *Dispatcher) tokenType(c *call) ([]byte, error) {
	t, err := d.tokenOf(c)
	if err != nil {
		return nil, err
	}
	return c.success(int32(t.Type))
}

func (d *Dispatcher) getTokenInfo(c *call) ([]byte, error) {
	t, err := d.tokenOf(c)
	if err != nil {
		return nil, err
	}
	info, err := d.tokenInfo(t)
	if err != nil {
		return nil, err
	}
	return c.success(info)
}

func (d *Dispatcher) getFungibleTokenInfo(c *call) ([]byte, error) {
	t, err := d.tokenOf(c)
	if err != nil {
		return nil, err
	}
	if t.Type != types.FungibleCommon {
		return nil, fail(InvalidTokenID)
	}
	info, err := d.tokenInfo(t)
	if err != nil {
		return nil, err
	}
	return c.success(FungibleTokenInfo{TokenInfo: info, Decimals: t.Decimals})
}

func (d *Dispatcher) getNonFungibleTokenInfo(c *call) ([]byte, error) {
	var a tokenSerialArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.token(a.Token)
	if err != nil {
		return nil, err
	}
	if t.Type != types.NonFungibleUnique {
		return nil, fail(InvalidTokenID)
	}
	nft, err := d.nft(t, a.SerialNumber)
	if err != nil {
		return nil, err
	}
	info, err := d.tokenInfo(t)
	if err != nil {
		return nil, err
	}
	owner, err := d.evmAddress(nft.Owner)
	if err != nil {
		return nil, err
	}
	spender, err := d.evmAddress(nft.Spender)
	if err != nil {
		return nil, err
	}
	return c.success(NonFungibleTokenInfo{
		TokenInfo:    info,
		SerialNumber: nft.Serial,
		OwnerId:      owner,
		CreationTime: nft.CreatedTimestamp / nanosPerSecond,
		Metadata:     nonNil(nft.Metadata),
		SpenderId:    spender,
	})
}

func (d *Dispatcher) getTokenKey(c *call) ([]byte, error) {
	var a tokenKeyArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.token(a.Token)
	if err != nil {
		return nil, err
	}
	kt, ok := singleKeyType(a.KeyType)
	if !ok {
		return nil, fail(BadEncoding)
	}
	kv, err := d.keyValue(t.Keys.Get(kt))
	if err != nil {
		return nil, err
	}
	return c.success(kv)
}

func (d *Dispatcher) getTokenCustomFees(c *call) ([]byte, error) {
	t, err := d.tokenOf(c)
	if err != nil {
		return nil, err
	}
	fixed, fractional, royalty, err := d.fees(t)
	if err != nil {
		return nil, err
	}
	return c.success(fixed, fractional, royalty)
}

func (d *Dispatcher) getTokenExpiryInfo(c *call) ([]byte, error) {
	t, err := d.tokenOf(c)
	if err != nil {
		return nil, err
	}
	expiry, err := d.expiry(t.Expiry)
	if err != nil {
		return nil, err
	}
	return c.success(expiry)
}

func (d *Dispatcher) allowance(c *call) ([]byte, error) {
	var a allowanceArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.token(a.Token)
	if err != nil {
		return nil, err
	}
	amount, err := d.allowanceOf(t, a.Owner, a.Spender)
	if err != nil {
		return nil, err
	}
	return c.success(amount)
}

func (d *Dispatcher) getApproved(c *call) ([]byte, error) {
	var a getApprovedArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.token(a.Token)
	if err != nil {
		return nil, err
	}
	approved, err := d.approvedOf(t, a.SerialNumber)
	if err != nil {
		return nil, err
	}
	return c.success(approved)
}

func (d *Dispatcher) isApprovedForAll(c *call) ([]byte, error) {
	var a approvedForAllArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.token(a.Token)
	if err != nil {
		return nil, err
	}
	approved, err := d.approvedForAll(t, a.Owner, a.Operator)
	if err != nil {
		return nil, err
	}
	return c.success(approved)
}

// allowanceOf is shared by the direct and redirected allowance queries. An
// owner that never granted anything has a zero allowance.
func (d *Dispatcher) allowanceOf(t *types.TokenView, ownerAddr, spenderAddr common.Address) (*big.Int, error) {
	owner, err := d.account(ownerAddr, InvalidAllowanceOwnerID)
	if err != nil {
		return nil, err
	}
	spender, ok, err := d.optionalAccount(spenderAddr)
	if err != nil || !ok {
		return new(big.Int), err
	}
	a, err := d.ledger.Allowance(d.ctx, t.ID, owner, spender)
	if err != nil || a == nil || a.AmountRemaining == nil {
		return new(big.Int), err
	}
	return new(big.Int).Set(a.AmountRemaining), nil
}

// approvedOf returns the single-serial spender of an NFT, the zero address
// when none is approved.
func (d *Dispatcher) approvedOf(t *types.TokenView, serial *big.Int) (common.Address, error) {
	if t.Type != types.NonFungibleUnique {
		return common.Address{}, fail(InvalidTokenID)
	}
	if !serial.IsInt64() {
		return common.Address{}, fail(InvalidNftID)
	}
	nft, err := d.nft(t, serial.Int64())
	if err != nil {
		return common.Address{}, err
	}
	return d.evmAddress(nft.Spender)
}

func (d *Dispatcher) approvedForAll(t *types.TokenView, ownerAddr, operatorAddr common.Address) (bool, error) {
	owner, err := d.account(ownerAddr, InvalidAllowanceOwnerID)
	if err != nil {
		return false, err
	}
	operator, ok, err := d.optionalAccount(operatorAddr)
	if err != nil || !ok {
		return false, err
	}
	a, err := d.ledger.NftAllowance(d.ctx, t.ID, owner, operator)
	if err != nil {
		return false, err
	}
	return a != nil && a.ApprovedForAll, nil
}

// nft loads a live serial of t.
func (d *Dispatcher) nft(t *types.TokenView, serial int64) (*types.NftView, error) {
	if serial <= 0 {
		return nil, fail(InvalidNftID)
	}
	nft, err := d.ledger.Nft(d.ctx, t.ID, serial)
	if err != nil {
		return nil, err
	}
	if nft == nil || nft.Deleted {
		return nil, fail(InvalidNftID)
	}
	return nft, nil
}

func (d *Dispatcher) tokenInfo(t *types.TokenView) (TokenInfo, error) {
	hedera, err := d.hederaToken(t)
	if err != nil {
		return TokenInfo{}, err
	}
	fixed, fractional, royalty, err := d.fees(t)
	if err != nil {
		return TokenInfo{}, err
	}
	supply := cloneInt(t.TotalSupply)
	if !supply.IsInt64() {
		return TokenInfo{}, types.Internalf("token %s total supply %s exceeds int64", t.ID, supply)
	}
	return TokenInfo{
		Token:            hedera,
		TotalSupply:      supply.Int64(),
		Deleted:          t.Deleted,
		DefaultKycStatus: t.KycDefault,
		PauseStatus:      t.Paused(),
		FixedFees:        fixed,
		FractionalFees:   fractional,
		RoyaltyFees:      royalty,
		LedgerId:         t.LedgerID,
	}, nil
}

func (d *Dispatcher) hederaToken(t *types.TokenView) (HederaToken, error) {
	treasury, err := d.evmAddress(t.Treasury)
	if err != nil {
		return HederaToken{}, err
	}
	keys := make([]TokenKey, 0, len(types.AllKeyTypes))
	for _, kt := range types.AllKeyTypes {
		kv, err := d.keyValue(t.Keys.Get(kt))
		if err != nil {
			return HederaToken{}, err
		}
		keys = append(keys, TokenKey{KeyType: new(big.Int).SetUint64(uint64(kt)), Key: kv})
	}
	expiry, err := d.expiry(t.Expiry)
	if err != nil {
		return HederaToken{}, err
	}
	maxSupply := cloneInt(t.MaxSupply)
	if !maxSupply.IsInt64() {
		return HederaToken{}, types.Internalf("token %s max supply %s exceeds int64", t.ID, maxSupply)
	}
	return HederaToken{
		Name:            t.Name,
		Symbol:          t.Symbol,
		Treasury:        treasury,
		Memo:            t.Memo,
		TokenSupplyType: t.SupplyType == types.SupplyFinite,
		MaxSupply:       maxSupply.Int64(),
		FreezeDefault:   t.FreezeDefault,
		TokenKeys:       keys,
		Expiry:          expiry,
	}, nil
}

func (d *Dispatcher) keyValue(raw []byte) (KeyValue, error) {
	kv, err := d.keys.Decode(raw)
	if err != nil {
		return KeyValue{}, types.Internalf("stored key: %v", err)
	}
	return kv, nil
}

// expiry renders a stored expiry; the ABI carries whole seconds.
func (d *Dispatcher) expiry(e types.Expiry) (Expiry, error) {
	renew, err := d.evmAddress(e.AutoRenewAccount)
	if err != nil {
		return Expiry{}, err
	}
	return Expiry{
		Second:           e.Second / nanosPerSecond,
		AutoRenewAccount: renew,
		AutoRenewPeriod:  e.AutoRenewPeriod,
	}, nil
}

func (d *Dispatcher) fees(t *types.TokenView) ([]FixedFee, []FractionalFee, []RoyaltyFee, error) {
	fixed := make([]FixedFee, 0, len(t.CustomFees.Fixed))
	for _, f := range t.CustomFees.Fixed {
		fee, err := d.fixedFee(t, f)
		if err != nil {
			return nil, nil, nil, err
		}
		fixed = append(fixed, fee)
	}
	fractional := make([]FractionalFee, 0, len(t.CustomFees.Fractional))
	for _, f := range t.CustomFees.Fractional {
		collector, err := d.evmAddress(f.Collector)
		if err != nil {
			return nil, nil, nil, err
		}
		fractional = append(fractional, FractionalFee{
			Numerator:      f.Numerator,
			Denominator:    f.Denominator,
			MinimumAmount:  f.MinimumAmount,
			MaximumAmount:  f.MaximumAmount,
			NetOfTransfers: f.NetOfTransfers,
			FeeCollector:   collector,
		})
	}
	royalty := make([]RoyaltyFee, 0, len(t.CustomFees.Royalty))
	for _, f := range t.CustomFees.Royalty {
		collector, err := d.evmAddress(f.Collector)
		if err != nil {
			return nil, nil, nil, err
		}
		fee := RoyaltyFee{Numerator: f.Numerator, Denominator: f.Denominator, FeeCollector: collector}
		if f.FallbackFee != nil {
			if fee.FallbackFee, err = d.fixedFee(t, *f.FallbackFee); err != nil {
				return nil, nil, nil, err
			}
		}
		royalty = append(royalty, fee)
	}
	return fixed, fractional, royalty, nil
}

func (d *Dispatcher) fixedFee(t *types.TokenView, f types.FixedFee) (FixedFee, error) {
	collector, err := d.evmAddress(f.Collector)
	if err != nil {
		return FixedFee{}, err
	}
	denom, err := d.evmAddress(f.DenominatingTokenID)
	if err != nil {
		return FixedFee{}, err
	}
	return FixedFee{
		Amount:                    f.Amount,
		TokenId:                   denom,
		UseHbarsForPayment:        f.DenominatingTokenID.IsZero(),
		UseCurrentTokenForPayment: f.DenominatingTokenID == t.ID,
		FeeCollector:              collector,
	}, nil
}

// singleKeyType accepts a key selector naming exactly one key.
func singleKeyType(v *big.Int) (types.KeyType, bool) {
	if v == nil || !v.IsUint64() {
		return 0, false
	}
	kt := types.KeyType(v.Uint64())
	for _, known := range types.AllKeyTypes {
		if kt == known {
			return kt, true
		}
	}
	return 0, false
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
