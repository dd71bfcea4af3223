package precompile

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"mirrorevm/core/types"
)

const (
	maxTokenNameBytes   = 100
	maxTokenSymbolBytes = 100
	maxTokenDecimals    = 18
)

type createFungibleArgs struct {
	Token              HederaToken `abi:"token"`
	InitialTotalSupply int64       `abi:"initialTotalSupply"`
	Decimals           int32       `abi:"decimals"`
}

type createNonFungibleArgs struct {
	Token HederaToken `abi:"token"`
}

type updateInfoArgs struct {
	Token     common.Address `abi:"token"`
	TokenInfo HederaToken    `abi:"tokenInfo"`
}

type updateKeysArgs struct {
	Token common.Address `abi:"token"`
	Keys  []TokenKey     `abi:"keys"`
}

type updateExpiryArgs struct {
	Token      common.Address `abi:"token"`
	ExpiryInfo Expiry         `abi:"expiryInfo"`
}

func (d *Dispatcher) createFungible(c *call) ([]byte, error) {
	var a createFungibleArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	if a.Decimals < 0 || a.Decimals > maxTokenDecimals {
		return nil, fail(InvalidTokenDecimals)
	}
	if a.InitialTotalSupply < 0 {
		return nil, fail(InvalidTokenInitialSupply)
	}
	addr, err := d.createToken(c, a.Token, types.FungibleCommon, a.InitialTotalSupply, a.Decimals)
	if err != nil {
		return nil, err
	}
	return c.success(addr)
}

func (d *Dispatcher) createNonFungible(c *call) ([]byte, error) {
	var a createNonFungibleArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	addr, err := d.createToken(c, a.Token, types.NonFungibleUnique, 0, 0)
	if err != nil {
		return nil, err
	}
	return c.success(addr)
}

// createToken validates a token definition and installs it, with its
// treasury association, in the overlay. The new token is addressed by the
// long-zero form of its synthetic id.
func (d *Dispatcher) createToken(c *call, def HederaToken, kind types.TokenType, initial int64, decimals int32) (common.Address, error) {
	if err := validateNaming(def.Name, def.Symbol, true); err != nil {
		return common.Address{}, err
	}
	maxSupply := big.NewInt(def.MaxSupply)
	supplyType := types.SupplyInfinite
	if def.TokenSupplyType {
		supplyType = types.SupplyFinite
		if def.MaxSupply <= 0 || initial > def.MaxSupply {
			return common.Address{}, fail(InvalidTokenInitialSupply)
		}
	} else {
		maxSupply = new(big.Int)
	}
	treasury, err := d.account(def.Treasury, InvalidTreasuryAccount)
	if err != nil {
		return common.Address{}, err
	}
	keys, err := d.tokenKeys(c, def.TokenKeys, types.TokenKeys{})
	if err != nil {
		return common.Address{}, err
	}
	expiry, err := d.newExpiry(def.Expiry, types.Expiry{})
	if err != nil {
		return common.Address{}, err
	}
	t := &types.TokenView{
		ID:            d.ledger.NextTokenID(),
		Type:          kind,
		Name:          def.Name,
		Symbol:        def.Symbol,
		Memo:          def.Memo,
		Decimals:      decimals,
		TotalSupply:   big.NewInt(initial),
		MaxSupply:     maxSupply,
		SupplyType:    supplyType,
		Treasury:      treasury,
		FreezeDefault: def.FreezeDefault,
		PauseStatus:   types.PauseNotApplicable,
		Expiry:        expiry,
		Keys:          keys,
		LedgerID:      d.view.Config().LedgerID,
	}
	if len(keys.Pause) > 0 {
		t.PauseStatus = types.PauseUnpaused
	}
	d.ledger.PutToken(t)
	rel := newRelationship(treasury, t, big.NewInt(initial))
	rel.FreezeStatus = unfrozenIfApplicable(rel.FreezeStatus)
	if rel.KycStatus != types.KycNotApplicable {
		rel.KycStatus = types.KycGranted
	}
	d.ledger.PutRelationship(rel)
	d.logger.Debug("simulated token created", "token", t.ID.String(), "type", kind.String(), "treasury", treasury.String())
	return t.ID.LongZeroAddress(), nil
}

func unfrozenIfApplicable(s types.FreezeStatus) types.FreezeStatus {
	if s == types.FreezeNotApplicable {
		return s
	}
	return types.FreezeUnfrozen
}

// validateNaming checks name and symbol. On update an empty value means
// "unchanged" and is accepted.
func validateNaming(name, symbol string, required bool) error {
	switch {
	case required && name == "":
		return fail(MissingTokenName)
	case len(name) > maxTokenNameBytes:
		return fail(TokenNameTooLong)
	case required && symbol == "":
		return fail(MissingTokenSymbol)
	case len(symbol) > maxTokenSymbolBytes:
		return fail(TokenSymbolTooLong)
	}
	return nil
}

// tokenKeys applies ABI key entries on top of base. A key marked
// inheritAccountKey takes the calling account's own key.
func (d *Dispatcher) tokenKeys(c *call, entries []TokenKey, base types.TokenKeys) (types.TokenKeys, error) {
	out := base
	for _, entry := range entries {
		if entry.KeyType == nil || !entry.KeyType.IsUint64() || entry.KeyType.Uint64() == 0 || entry.KeyType.Uint64() >= 128 {
			return types.TokenKeys{}, fail(BadEncoding)
		}
		raw, err := d.keyBytes(c, entry.Key)
		if err != nil {
			return types.TokenKeys{}, err
		}
		out.Set(types.KeyType(entry.KeyType.Uint64()), raw)
	}
	return out, nil
}

func (d *Dispatcher) keyBytes(c *call, kv KeyValue) ([]byte, error) {
	if kv.InheritAccountKey {
		return d.inheritedKey(c)
	}
	raw, err := d.keys.Encode(kv)
	if err != nil {
		return nil, fail(BadEncoding)
	}
	return raw, nil
}

// inheritedKey is the key of the calling account, or a contract id key
// naming it when the account stores none.
func (d *Dispatcher) inheritedKey(c *call) ([]byte, error) {
	id, err := d.sender(c)
	if err != nil {
		return nil, err
	}
	acct, err := d.view.AccountByID(d.ctx, id)
	if err != nil {
		return nil, err
	}
	if acct != nil && len(acct.KeyMaterial) > 0 {
		return append([]byte(nil), acct.KeyMaterial...), nil
	}
	return d.keys.Encode(KeyValue{ContractId: id.LongZeroAddress()})
}

// newExpiry merges an ABI expiry into base. Zero fields keep the base value.
func (d *Dispatcher) newExpiry(e Expiry, base types.Expiry) (types.Expiry, error) {
	out := base
	if e.Second < 0 {
		return types.Expiry{}, fail(InvalidExpirationTime)
	}
	if e.Second > 0 {
		out.Second = e.Second * nanosPerSecond
	}
	if e.AutoRenewPeriod < 0 {
		return types.Expiry{}, fail(InvalidRenewalPeriod)
	}
	if e.AutoRenewPeriod > 0 {
		out.AutoRenewPeriod = e.AutoRenewPeriod
	}
	if e.AutoRenewAccount != (common.Address{}) {
		id, err := d.account(e.AutoRenewAccount, InvalidAccountID)
		if err != nil {
			return types.Expiry{}, err
		}
		out.AutoRenewAccount = id
	}
	return out, nil
}

// administered loads a live token that carries an admin key.
func (d *Dispatcher) administered(addr common.Address) (*types.TokenView, error) {
	t, err := d.liveToken(addr)
	if err != nil {
		return nil, err
	}
	if err := requireKey(t, types.KeyAdmin, TokenIsImmutable); err != nil {
		return nil, err
	}
	return cloneToken(t), nil
}

func (d *Dispatcher) updateTokenInfo(c *call) ([]byte, error) {
	var a updateInfoArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.administered(a.Token)
	if err != nil {
		return nil, err
	}
	def := a.TokenInfo
	if err := validateNaming(def.Name, def.Symbol, false); err != nil {
		return nil, err
	}
	if def.Name != "" {
		t.Name = def.Name
	}
	if def.Symbol != "" {
		t.Symbol = def.Symbol
	}
	if def.Memo != "" {
		t.Memo = def.Memo
	}
	if def.Treasury != (common.Address{}) {
		treasury, err := d.account(def.Treasury, InvalidTreasuryAccount)
		if err != nil {
			return nil, err
		}
		if treasury != t.Treasury {
			if err := d.moveTreasury(t, treasury); err != nil {
				return nil, err
			}
		}
	}
	if t.Keys, err = d.tokenKeys(c, def.TokenKeys, t.Keys); err != nil {
		return nil, err
	}
	if t.Expiry, err = d.newExpiry(def.Expiry, t.Expiry); err != nil {
		return nil, err
	}
	d.ledger.PutToken(t)
	return c.success()
}

// moveTreasury hands a fungible treasury balance to the new treasury, which
// must already be associated.
func (d *Dispatcher) moveTreasury(t *types.TokenView, to types.EntityID) error {
	if _, err := d.holding(to, t); err != nil {
		return err
	}
	if t.Type == types.FungibleCommon {
		old, err := d.holding(t.Treasury, t)
		if err != nil {
			return err
		}
		if err := d.credit(t, to, new(big.Int).Set(old.Balance)); err != nil {
			return err
		}
		old.Balance = new(big.Int)
		d.ledger.PutRelationship(old)
	}
	t.Treasury = to
	return nil
}

func (d *Dispatcher) updateTokenKeys(c *call) ([]byte, error) {
	var a updateKeysArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.administered(a.Token)
	if err != nil {
		return nil, err
	}
	for _, entry := range a.Keys {
		if entry.KeyType == nil || !entry.KeyType.IsUint64() {
			return nil, fail(BadEncoding)
		}
		mask := types.KeyType(entry.KeyType.Uint64())
		for _, kt := range types.AllKeyTypes {
			if mask&kt != 0 && len(t.Keys.Get(kt)) == 0 {
				return nil, fail(missingKeyCode(kt))
			}
		}
	}
	if t.Keys, err = d.tokenKeys(c, a.Keys, t.Keys); err != nil {
		return nil, err
	}
	d.ledger.PutToken(t)
	return c.success()
}

// missingKeyCode is the failure for updating a key the token never had.
func missingKeyCode(kt types.KeyType) ResponseCode {
	switch kt {
	case types.KeyKyc:
		return TokenHasNoKycKey
	case types.KeyFreeze:
		return TokenHasNoFreezeKey
	case types.KeyWipe:
		return TokenHasNoWipeKey
	case types.KeySupply:
		return TokenHasNoSupplyKey
	case types.KeyPause:
		return TokenHasNoPauseKey
	}
	return TokenIsImmutable
}

func (d *Dispatcher) updateTokenExpiry(c *call) ([]byte, error) {
	var a updateExpiryArgs
	if err := c.args(&a); err != nil {
		return nil, err
	}
	t, err := d.administered(a.Token)
	if err != nil {
		return nil, err
	}
	if t.Expiry, err = d.newExpiry(a.ExpiryInfo, t.Expiry); err != nil {
		return nil, err
	}
	d.ledger.PutToken(t)
	return c.success()
}
